//go:build linux

package serial

import (
	"fmt"

	"github.com/hedhyw/Go-Serial-Detector/pkg/v1/serialdet"
)

// FindPortName returns the path of the first serial device whose description contains the given text.
func FindPortName(description string) (string, error) {
	devices, err := serialdet.List()
	if err != nil {
		return "", fmt.Errorf("cannot list serial devices: %w", err)
	}

	for _, device := range devices {
		if matchesDescription(device.Description(), description) {
			return device.Path(), nil
		}
	}
	return "", fmt.Errorf("%w: no device matches %q", ErrNoPEIFound, description)
}
