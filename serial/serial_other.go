//go:build !linux

package serial

// FindPortName is only supported on Linux, the port must be configured elsewhere.
func FindPortName(description string) (string, error) {
	return "", ErrNoPEIFound
}
