// Package serial opens the serial port of the radio's PEI.
package serial

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jacobsa/go-serial/serial"
)

const (
	DefaultBaudRate = 115200

	// PEIDescription is part of the USB description of radios that offer their PEI as serial device.
	PEIDescription = "tetra_pei_interface"
)

var ErrNoPEIFound = errors.New("no active PEI device found")

// Options describes how the PEI port is opened. Without port name, the first detected PEI port is used.
type Options struct {
	PortName string
	BaudRate uint
}

func (o Options) String() string {
	return fmt.Sprintf("%s@%d", o.PortName, o.BaudRate)
}

// Open opens the configured port, or the first detected PEI port if none is configured.
func Open(options Options) (io.ReadWriteCloser, error) {
	if options.PortName == "" {
		portName, err := FindPortName(PEIDescription)
		if err != nil {
			return nil, err
		}
		options.PortName = portName
	}
	if options.BaudRate == 0 {
		options.BaudRate = DefaultBaudRate
	}

	device, err := serial.Open(openOptions(options))
	if err != nil {
		return nil, fmt.Errorf("cannot open PEI port %s: %w", options, err)
	}
	return device, nil
}

// openOptions for 8N1 with hardware flow control. Reads return as soon as one byte is available.
func openOptions(options Options) serial.OpenOptions {
	return serial.OpenOptions{
		PortName:              options.PortName,
		BaudRate:              options.BaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     true,
		MinimumReadSize:       1,
		InterCharacterTimeout: 100,
	}
}

// matchesDescription compares case insensitive.
func matchesDescription(actual string, wanted string) bool {
	return strings.Contains(strings.ToLower(actual), strings.ToLower(wanted))
}
