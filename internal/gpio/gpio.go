// Package gpio provides the GPIO capabilities the button/LED core depends on.
// The cdev implementation uses the Linux GPIO character device, the periph
// implementation uses periph.io and the machine implementation runs on a
// microcontroller under TinyGo.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
)

// Pin definitions (BOOT button and on-board LED of an ESP32 devkit, which
// the defaults follow).
const (
	DefaultPinButton = 0
	DefaultPinLED    = 2
)

// Consumer is the label attached to requested lines.
const Consumer = "button-led"

var (
	// ErrNotConfigured is returned when a pin is used before it is configured.
	ErrNotConfigured = errors.New("gpio: pin not configured")
	// ErrBias is returned for an input with both pull-up and pull-down.
	ErrBias = errors.New("gpio: pull-up and pull-down are mutually exclusive")
	// ErrUnsupported is returned by backends not built for this platform.
	ErrUnsupported = errors.New("gpio: backend not supported on this platform")
)

// Edge selects which transitions raise an interrupt.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	}
	return fmt.Sprintf("Edge(%d)", int(e))
}

// InputConfig describes an input line.
type InputConfig struct {
	PullUp   bool
	PullDown bool
	Edge     Edge
}

func (c InputConfig) validate() error {
	if c.PullUp && c.PullDown {
		return ErrBias
	}
	return nil
}

// InterruptHandler runs in interrupt context for each matching edge. arg is
// the value supplied at registration. Handlers must not block, allocate or log.
// Edges for one line are delivered serially.
type InterruptHandler func(arg int)

// Output drives digital output lines.
type Output interface {
	// SetOutput drives pin to level (0 or 1). Synchronous.
	SetOutput(pin, level int) error
}

// Controller is the full set of GPIO capabilities.
type Controller interface {
	Output

	// ConfigureOutput makes pin an output driven to level.
	ConfigureOutput(pin, level int) error

	// ConfigureInput makes pin an input with the given bias. Edge detection
	// takes effect once a handler is registered.
	ConfigureInput(pin int, cfg InputConfig) error

	// RegisterInterrupt attaches h to a configured input.
	RegisterInterrupt(pin int, h InterruptHandler, arg int) error

	// Value reads the raw level of a configured pin.
	Value(pin int) (int, error)

	// Close releases all lines. Lines are returned to inputs first.
	Close() error
}

// unsupported backs controllers that are not available in this build.
type unsupported struct{}

func (unsupported) SetOutput(int, int) error                           { return ErrUnsupported }
func (unsupported) ConfigureOutput(int, int) error                     { return ErrUnsupported }
func (unsupported) ConfigureInput(int, InputConfig) error              { return ErrUnsupported }
func (unsupported) RegisterInterrupt(int, InterruptHandler, int) error { return ErrUnsupported }
func (unsupported) Value(int) (int, error)                             { return 0, ErrUnsupported }
func (unsupported) Close() error                                       { return nil }
