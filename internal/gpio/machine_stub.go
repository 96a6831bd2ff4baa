//go:build !tinygo

package gpio

// MachineController is only available in TinyGo builds.
type MachineController struct {
	unsupported
}

// NewMachineController returns an error outside TinyGo builds.
func NewMachineController() (*MachineController, error) {
	return nil, ErrUnsupported
}
