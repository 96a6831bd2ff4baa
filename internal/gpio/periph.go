//go:build !tinygo

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePoll bounds each WaitForEdge so watchers notice Close. Halt does not
// wake a sysfs edge wait.
const edgePoll = 100 * time.Millisecond

// PeriphController drives pins through periph.io. Interrupts are delivered
// by one goroutine per line waiting in WaitForEdge.
type PeriphController struct {
	mu      sync.Mutex
	pins    map[int]pgpio.PinIO
	inputs  map[int]InputConfig
	watched map[int]pgpio.PinIO

	closing atomic.Bool
	wg      sync.WaitGroup
}

// NewPeriphController initializes periph.io host drivers.
func NewPeriphController() (*PeriphController, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return &PeriphController{
		pins:    make(map[int]pgpio.PinIO),
		inputs:  make(map[int]InputConfig),
		watched: make(map[int]pgpio.PinIO),
	}, nil
}

// resolvePin looks up a GPIO pin by number, caching the result.
func (c *PeriphController) resolvePin(pin int) (pgpio.PinIO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pins[pin]; ok {
		return p, nil
	}
	name := fmt.Sprintf("GPIO%d", pin)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %d (%s) not found in hardware", pin, name)
	}
	c.pins[pin] = p
	return p, nil
}

// ConfigureOutput makes pin an output driven to level.
func (c *PeriphController) ConfigureOutput(pin, level int) error {
	p, err := c.resolvePin(pin)
	if err != nil {
		return err
	}
	if err := p.Out(periphLevel(level)); err != nil {
		return fmt.Errorf("set pin %d to output: %w", pin, err)
	}
	return nil
}

// ConfigureInput makes pin an input with the given bias and no edge detection.
func (c *PeriphController) ConfigureInput(pin int, cfg InputConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	p, err := c.resolvePin(pin)
	if err != nil {
		return err
	}
	if err := p.In(periphPull(cfg), pgpio.NoEdge); err != nil {
		return fmt.Errorf("set pin %d to input: %w", pin, err)
	}
	c.mu.Lock()
	c.inputs[pin] = cfg
	c.mu.Unlock()
	return nil
}

// RegisterInterrupt enables edge detection and starts the watcher goroutine.
func (c *PeriphController) RegisterInterrupt(pin int, h InterruptHandler, arg int) error {
	c.mu.Lock()
	cfg, ok := c.inputs[pin]
	p := c.pins[pin]
	_, dup := c.watched[pin]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("register interrupt on pin %d: %w", pin, ErrNotConfigured)
	}
	if dup {
		return fmt.Errorf("register interrupt on pin %d: handler already registered", pin)
	}

	if err := p.In(periphPull(cfg), periphEdge(cfg.Edge)); err != nil {
		return fmt.Errorf("enable edges on pin %d: %w", pin, err)
	}

	c.mu.Lock()
	c.watched[pin] = p
	c.mu.Unlock()

	c.wg.Add(1)
	go c.watch(p, h, arg)
	return nil
}

// watch delivers edges on p to h until Close.
func (c *PeriphController) watch(p pgpio.PinIO, h InterruptHandler, arg int) {
	defer c.wg.Done()
	for !c.closing.Load() {
		start := time.Now()
		if p.WaitForEdge(edgePoll) {
			if c.closing.Load() {
				return
			}
			h(arg)
			continue
		}
		// A wait that fails early is an error, not a timeout; pace retries.
		if rest := edgePoll - time.Since(start); rest > 0 {
			time.Sleep(rest)
		}
	}
}

// SetOutput drives a configured output.
func (c *PeriphController) SetOutput(pin, level int) error {
	c.mu.Lock()
	p, ok := c.pins[pin]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("pin %d: %w", pin, ErrNotConfigured)
	}
	if err := p.Out(periphLevel(level)); err != nil {
		return fmt.Errorf("set pin %d: %w", pin, err)
	}
	return nil
}

// Value reads a configured pin.
func (c *PeriphController) Value(pin int) (int, error) {
	c.mu.Lock()
	p, ok := c.pins[pin]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("pin %d: %w", pin, ErrNotConfigured)
	}
	if p.Read() == pgpio.High {
		return 1, nil
	}
	return 0, nil
}

// Close stops the watchers and returns every pin to a floating input. It
// returns within one edgePoll of the watchers' last wait.
func (c *PeriphController) Close() error {
	c.closing.Store(true)

	c.mu.Lock()
	var errs []error
	for pin, p := range c.watched {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt pin %d: %w", pin, err))
		}
	}
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for pin, p := range c.pins {
		if err := p.In(pgpio.Float, pgpio.NoEdge); err != nil {
			errs = append(errs, fmt.Errorf("release pin %d: %w", pin, err))
		}
	}
	c.pins = make(map[int]pgpio.PinIO)
	c.watched = make(map[int]pgpio.PinIO)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func periphLevel(level int) pgpio.Level {
	if level != 0 {
		return pgpio.High
	}
	return pgpio.Low
}

func periphPull(cfg InputConfig) pgpio.Pull {
	switch {
	case cfg.PullUp:
		return pgpio.PullUp
	case cfg.PullDown:
		return pgpio.PullDown
	default:
		return pgpio.Float
	}
}

func periphEdge(e Edge) pgpio.Edge {
	switch e {
	case EdgeRising:
		return pgpio.RisingEdge
	case EdgeFalling:
		return pgpio.FallingEdge
	case EdgeBoth:
		return pgpio.BothEdges
	default:
		return pgpio.NoEdge
	}
}
