//go:build tinygo

package gpio

import (
	"fmt"
	"machine"
)

// MachineController drives pins of the microcontroller the program runs on.
// Registered handlers run inside the hardware interrupt.
type MachineController struct {
	inputs map[int]InputConfig
}

// NewMachineController returns a controller for the board's pins.
func NewMachineController() (*MachineController, error) {
	return &MachineController{inputs: make(map[int]InputConfig)}, nil
}

// ConfigureOutput makes pin an output driven to level.
func (c *MachineController) ConfigureOutput(pin, level int) error {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Set(level != 0)
	return nil
}

// ConfigureInput makes pin an input with the given bias.
func (c *MachineController) ConfigureInput(pin int, cfg InputConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	mode := machine.PinInput
	switch {
	case cfg.PullUp:
		mode = machine.PinInputPullup
	case cfg.PullDown:
		mode = machine.PinInputPulldown
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: mode})
	c.inputs[pin] = cfg
	return nil
}

// RegisterInterrupt attaches h to the pin's hardware interrupt.
func (c *MachineController) RegisterInterrupt(pin int, h InterruptHandler, arg int) error {
	cfg, ok := c.inputs[pin]
	if !ok {
		return fmt.Errorf("register interrupt on pin %d: %w", pin, ErrNotConfigured)
	}
	var change machine.PinChange
	switch cfg.Edge {
	case EdgeRising:
		change = machine.PinRising
	case EdgeFalling:
		change = machine.PinFalling
	case EdgeBoth:
		change = machine.PinToggle
	default:
		return fmt.Errorf("register interrupt on pin %d: no edge configured", pin)
	}
	err := machine.Pin(pin).SetInterrupt(change, func(machine.Pin) {
		h(arg)
	})
	if err != nil {
		return fmt.Errorf("set interrupt on pin %d: %w", pin, err)
	}
	return nil
}

// SetOutput drives pin to level.
func (c *MachineController) SetOutput(pin, level int) error {
	machine.Pin(pin).Set(level != 0)
	return nil
}

// Value reads pin.
func (c *MachineController) Value(pin int) (int, error) {
	if machine.Pin(pin).Get() {
		return 1, nil
	}
	return 0, nil
}

// Close detaches interrupts. The device runs until reset, so pins keep
// their configuration.
func (c *MachineController) Close() error {
	for pin := range c.inputs {
		machine.Pin(pin).SetInterrupt(0, nil)
	}
	return nil
}
