package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesDescription(t *testing.T) {
	tt := []struct {
		desc     string
		actual   string
		expected bool
	}{
		{desc: "exact", actual: "tetra_pei_interface", expected: true},
		{desc: "upper case", actual: "Motorola Solutions TETRA_PEI_Interface", expected: true},
		{desc: "other device", actual: "FT232R USB UART", expected: false},
		{desc: "empty", actual: "", expected: false},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, matchesDescription(tc.actual, PEIDescription))
		})
	}
}

func TestOpenOptions(t *testing.T) {
	options := openOptions(Options{PortName: "/dev/ttyUSB0", BaudRate: 9600})

	assert.Equal(t, "/dev/ttyUSB0", options.PortName)
	assert.Equal(t, uint(9600), options.BaudRate)
	assert.Equal(t, uint(8), options.DataBits)
	assert.True(t, options.RTSCTSFlowControl)
	assert.Equal(t, "/dev/ttyUSB0@9600", Options{PortName: "/dev/ttyUSB0", BaudRate: 9600}.String())
}

func TestOpen_MissingPort(t *testing.T) {
	_, err := Open(Options{PortName: "/dev/does-not-exist-pei"})

	assert.Error(t, err)
}
