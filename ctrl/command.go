package ctrl

import (
	"fmt"
)

// Commands with a fixed form.
const (
	// Probe checks if the radio is still listening on the PEI.
	Probe = "AT"
	// RequestSubscriberNumberFormat reads the radio's own identity according to [PEI] 6.14.4
	RequestSubscriberNumberFormat = "AT+CNUMF?"
	// SetGroupCallService selects a simplex group call in the circuit mode service definition according to [PEI] 6.14.3
	SetGroupCallService = "AT+CTSDC=0,0,0,1,1,0,1,1,0,0,0"
	// DemandTransmission asks for the floor in an ongoing call according to [PEI] 6.14.9
	DemandTransmission = "AT+CTXD=1,1"
	// CeaseTransmission gives the floor back according to [PEI] 6.14.10
	CeaseTransmission = "AT+CUTXC=1"
)

// SetOperatingMode according to [PEI] 6.14.7.2
func SetOperatingMode(mode AIMode) string {
	return fmt.Sprintf("AT+CTOM=%d", mode)
}

// SetTalkgroup according to [PEI] 6.15.6.2
func SetTalkgroup(gtsi string) string {
	return fmt.Sprintf("AT+CTGS=1,%s", gtsi)
}

// Dial sets up a group call to the given GSSI, after the call service was selected with SetGroupCallService.
func Dial(gssi string) string {
	return "ATD" + gssi
}

// SetupGroupCall returns the command sequence that starts a group call to the given GSSI.
func SetupGroupCall(gssi string) []string {
	return []string{SetGroupCallService, Dial(gssi)}
}
