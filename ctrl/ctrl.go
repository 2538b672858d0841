package ctrl

import (
	"fmt"
	"strconv"
	"strings"
)

// AIModeByName returns the AIMode with the given name
func AIModeByName(name string) (AIMode, error) {
	sanitized := strings.ToUpper(strings.TrimSpace(name))
	result, ok := AIModesByName[sanitized]
	if ok {
		return result, nil
	}
	number, err := strconv.Atoi(sanitized)
	if err == nil && number >= 0 && number < len(aiModeNames) {
		return AIMode(number), nil
	}
	return 0, fmt.Errorf("invalid operating mode %s", name)
}

// AIMode represents an operating mode according to [PEI] 6.17.4
type AIMode byte

func (m AIMode) String() string {
	if int(m) < len(aiModeNames) {
		return aiModeNames[m]
	}
	return "UNKNOWN"
}

// All operating modes according to [PEI] 6.17.4
const (
	TMO AIMode = iota
	DMO
	TMODualWatch
	DMODualWatch
	VDAndDMO
	DMOGateway
	DMORepeater
	DMORepeaterGateway
)

var aiModeNames = []string{
	"TMO",
	"DMO",
	"TMO_DUAL_WATCH",
	"DMO_DUAL_WATCH",
	"V+D_AND_DMO",
	"DMO_GATEWAY",
	"DMO_REPEATER",
	"DMO_REPEATER_GATEWAY",
}

// AIModesByName maps all supported operating modes by their string representation
var AIModesByName = func() map[string]AIMode {
	result := make(map[string]AIMode, len(aiModeNames))
	for i, name := range aiModeNames {
		result[name] = AIMode(i)
	}
	return result
}()

// DMCommunicationType of a visible DMO gateway or repeater according to [PEI] 6.17.63
type DMCommunicationType byte

const (
	DMRepeater DMCommunicationType = iota
	DMGateway
	DMRepeaterGateway
)

var dmCommunicationTypeNames = []string{"DM-REP", "DM-GATE", "DM-REP/GATE"}

func (t DMCommunicationType) String() string {
	if int(t) < len(dmCommunicationTypeNames) {
		return dmCommunicationTypeNames[t]
	}
	return "unknown"
}

// NumberType of the +CNUMF response according to [PEI] 6.17.33
type NumberType byte

const (
	NumberTypeISSI NumberType = iota
	NumberTypeITSI
	NumberTypeSNA
	NumberTypePABX
	NumberTypePSTN
	NumberTypeExtendedISSI
	NumberTypeExtendedITSI
)

var numberTypeNames = []string{
	"individual ISSI",
	"individual ITSI",
	"individual SNA",
	"individual PABX",
	"individual PSTN",
	"individual extended ISSI",
	"individual extended TSI",
}

func (t NumberType) String() string {
	if int(t) < len(numberTypeNames) {
		return numberTypeNames[t]
	}
	return "unknown"
}
