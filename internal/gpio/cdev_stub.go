//go:build !linux || tinygo

package gpio

// CdevController is not available on non-Linux platforms.
type CdevController struct {
	unsupported
}

// NewCdevController returns an error on non-Linux platforms.
func NewCdevController(string) (*CdevController, error) {
	return nil, ErrUnsupported
}
