//go:build tinygo

package gpio

// PeriphController is not available in TinyGo builds.
type PeriphController struct {
	unsupported
}

// NewPeriphController returns an error in TinyGo builds.
func NewPeriphController() (*PeriphController, error) {
	return nil, ErrUnsupported
}
