//go:build linux && !tinygo

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// CdevController drives lines through the Linux GPIO character device.
type CdevController struct {
	chip *gpiocdev.Chip

	mu     sync.Mutex
	lines  map[int]*gpiocdev.Line
	inputs map[int]InputConfig
}

// NewCdevController opens the named chip, e.g. "gpiochip0".
func NewCdevController(chipName string) (*CdevController, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	return &CdevController{
		chip:   chip,
		lines:  make(map[int]*gpiocdev.Line),
		inputs: make(map[int]InputConfig),
	}, nil
}

// ConfigureOutput requests pin as an output driven to level.
func (c *CdevController) ConfigureOutput(pin, level int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked(pin)
	l, err := c.chip.RequestLine(pin, gpiocdev.AsOutput(level))
	if err != nil {
		return fmt.Errorf("request output pin %d: %w", pin, err)
	}
	c.lines[pin] = l
	return nil
}

// ConfigureInput requests pin as an input with the given bias.
func (c *CdevController) ConfigureInput(pin int, cfg InputConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked(pin)
	l, err := c.chip.RequestLine(pin, gpiocdev.AsInput, cdevBias(cfg))
	if err != nil {
		return fmt.Errorf("request input pin %d: %w", pin, err)
	}
	c.lines[pin] = l
	c.inputs[pin] = cfg
	return nil
}

// RegisterInterrupt re-requests the input with edge detection enabled.
// gpiocdev delivers events for a line from a single goroutine, so h is never
// run concurrently with itself.
func (c *CdevController) RegisterInterrupt(pin int, h InterruptHandler, arg int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, ok := c.inputs[pin]
	if !ok {
		return fmt.Errorf("register interrupt on pin %d: %w", pin, ErrNotConfigured)
	}

	c.releaseLocked(pin)
	l, err := c.chip.RequestLine(pin,
		gpiocdev.AsInput,
		cdevBias(cfg),
		cdevEdge(cfg.Edge),
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			h(arg)
		}),
	)
	if err != nil {
		return fmt.Errorf("request interrupt pin %d: %w", pin, err)
	}
	c.lines[pin] = l
	return nil
}

// SetOutput drives a configured output.
func (c *CdevController) SetOutput(pin, level int) error {
	l, err := c.line(pin)
	if err != nil {
		return err
	}
	if err := l.SetValue(level); err != nil {
		return fmt.Errorf("set pin %d: %w", pin, err)
	}
	return nil
}

// Value reads a configured line.
func (c *CdevController) Value(pin int) (int, error) {
	l, err := c.line(pin)
	if err != nil {
		return 0, err
	}
	v, err := l.Value()
	if err != nil {
		return 0, fmt.Errorf("read pin %d: %w", pin, err)
	}
	return v, nil
}

// Close reconfigures every line as a plain input before releasing it, so the
// LED is not left driven after the process exits.
func (c *CdevController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for pin, l := range c.lines {
		if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
		delete(c.lines, pin)
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		c.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (c *CdevController) line(pin int) (*gpiocdev.Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lines[pin]
	if !ok {
		return nil, fmt.Errorf("pin %d: %w", pin, ErrNotConfigured)
	}
	return l, nil
}

func (c *CdevController) releaseLocked(pin int) {
	if l, ok := c.lines[pin]; ok {
		l.Close()
		delete(c.lines, pin)
	}
}

func cdevBias(cfg InputConfig) gpiocdev.LineReqOption {
	switch {
	case cfg.PullUp:
		return gpiocdev.WithPullUp
	case cfg.PullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}

func cdevEdge(e Edge) gpiocdev.LineReqOption {
	switch e {
	case EdgeRising:
		return gpiocdev.WithRisingEdge
	case EdgeFalling:
		return gpiocdev.WithFallingEdge
	case EdgeBoth:
		return gpiocdev.WithBothEdges
	default:
		return gpiocdev.WithoutEdges
	}
}
