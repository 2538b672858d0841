package ctrl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kikosgc/svxlink/tetra"
)

func splitReport(line string, token string) ([]string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, token) {
		return nil, fmt.Errorf("%s expected: %s", token, line)
	}
	fields := strings.Split(line[len(token):], ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

// atoi returns 0 for anything that is not a number, the radio's reports are best effort.
func atoi(s string) int {
	result, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return result
}

// splitTSI splits a received identity into its MCC, MNC and ISSI parts. Identities with up to 8 digits are bare ISSIs.
func splitTSI(s string) (mcc, mnc, issi int) {
	switch {
	case len(s) <= 8:
		return 0, 0, atoi(s)
	case len(s) < 17:
		return 0, 0, atoi(tetra.ISSI(s))
	default:
		return atoi(s[0:4]), atoi(s[4:9]), atoi(s[9:17])
	}
}

// CallInfoFields is the minimum number of fields in a +CTICN report.
const CallInfoFields = 13

// ParseCallInfo parses an incoming call notification according to [PEI] 6.15.10:
//
//	+CTICN: <CC instance>, <call status>, <AI service>, <calling party identity type>, <calling party identity>,
//	<hook>, <simplex>, <end to end encryption>, <comms type>, <slots/codec>, <called party identity type>,
//	<called party identity>, <priority level>
func ParseCallInfo(line string) (CallInfo, error) {
	fields, err := splitReport(line, "+CTICN:")
	if err != nil {
		return CallInfo{}, err
	}
	if len(fields) < CallInfoFields {
		return CallInfo{}, fmt.Errorf("+CTICN too short, %d fields: %s", len(fields), line)
	}

	result := CallInfo{
		Instance:            atoi(fields[0]),
		CallStatus:          atoi(fields[1]),
		AIService:           atoi(fields[2]),
		CallingIdentityType: tetra.IdentityType(atoi(fields[3])),
		CallingIdentity:     fields[4],
		Hook:                atoi(fields[5]) == 1,
		Simplex:             atoi(fields[6]) == 1,
		E2EE:                atoi(fields[7]) == 1,
		CommsType:           atoi(fields[8]),
		Codec:               atoi(fields[9]),
		CalledIdentityType:  tetra.IdentityType(atoi(fields[10])),
		CalledIdentity:      fields[11],
		Priority:            atoi(fields[12]),
	}
	result.CallingMCC, result.CallingMNC, result.CallingISSI = splitTSI(result.CallingIdentity)
	result.CalledMCC, result.CalledMNC, result.CalledISSI = splitTSI(result.CalledIdentity)

	return result, nil
}

// CallInfo describes an incoming call.
type CallInfo struct {
	Instance            int
	CallStatus          int
	AIService           int
	CallingIdentityType tetra.IdentityType
	CallingIdentity     string
	CallingMCC          int
	CallingMNC          int
	CallingISSI         int
	Hook                bool
	Simplex             bool
	E2EE                bool
	CommsType           int
	Codec               int
	CalledIdentityType  tetra.IdentityType
	CalledIdentity      string
	CalledMCC           int
	CalledMNC           int
	CalledISSI          int
	Priority            int
}

// ParseCallRelease parses a call release report: +CTCR: <CC instance>, <disconnect cause>
func ParseCallRelease(line string) (CallRelease, error) {
	fields, err := splitReport(line, "+CTCR:")
	if err != nil {
		return CallRelease{}, err
	}
	if len(fields) < 2 {
		return CallRelease{}, fmt.Errorf("+CTCR without disconnect cause: %s", line)
	}
	return CallRelease{
		Instance: atoi(fields[0]),
		Cause:    DisconnectCause(atoi(fields[1])),
	}, nil
}

// CallRelease tells which call was released for which reason.
type CallRelease struct {
	Instance int
	Cause    DisconnectCause
}

var operatingModeReport = regexp.MustCompile(`^\+CTOM: (\d+)$`)

// ParseOperatingMode parses the +CTOM report according to [PEI] 6.14.7.4
func ParseOperatingMode(line string) (AIMode, error) {
	parts := operatingModeReport.FindStringSubmatch(strings.TrimSpace(line))
	if len(parts) != 2 {
		return 0, fmt.Errorf("unexpected operating mode report: %s", line)
	}

	result, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}

	return AIMode(result), nil
}

var talkgroupReport = regexp.MustCompile(`^\+CTGS: (?:.*,)?\s*(\d+)$`)

// ParseTalkgroup parses the +CTGS report according to [PEI] 6.15.6.4 and returns the selected group identity.
func ParseTalkgroup(line string) (string, error) {
	parts := talkgroupReport.FindStringSubmatch(strings.TrimSpace(line))
	if len(parts) != 2 {
		return "", fmt.Errorf("unexpected talkgroup report: %s", line)
	}

	return parts[1], nil
}

var audioLevelReport = regexp.MustCompile(`^\+CLVL: (\d+)`)

// ParseAudioLevel parses the +CLVL report.
func ParseAudioLevel(line string) (int, error) {
	parts := audioLevelReport.FindStringSubmatch(strings.TrimSpace(line))
	if len(parts) != 2 {
		return 0, fmt.Errorf("unexpected audio level report: %s", line)
	}
	return strconv.Atoi(parts[1])
}

// ParseSubscriberNumber parses the +CNUMF report: +CNUMF: <num type>, <number>
func ParseSubscriberNumber(line string) (SubscriberNumber, error) {
	fields, err := splitReport(line, "+CNUMF:")
	if err != nil {
		return SubscriberNumber{}, err
	}
	if len(fields) < 2 {
		return SubscriberNumber{}, fmt.Errorf("+CNUMF without number: %s", line)
	}
	return SubscriberNumber{
		Type:   NumberType(atoi(fields[0])),
		Number: fields[1],
	}, nil
}

// SubscriberNumber is the radio's own identity.
type SubscriberNumber struct {
	Type   NumberType
	Number string
}

// Mismatches compares the radio's own extended TSI with the configured identity and returns
// a description of each part that differs. Only the extended TSI form can be compared.
func (n SubscriberNumber) Mismatches(mcc, mnc, issi int) []string {
	if n.Type != NumberTypeExtendedITSI {
		return nil
	}
	actualMCC, actualMNC, actualISSI := splitTSI(n.Number)

	var result []string
	if actualMCC != mcc {
		result = append(result, fmt.Sprintf("MCC %d != %d", mcc, actualMCC))
	}
	if actualMNC != mnc {
		result = append(result, fmt.Sprintf("MNC %d != %d", mnc, actualMNC))
	}
	if actualISSI != issi {
		result = append(result, fmt.Sprintf("ISSI %d != %d", issi, actualISSI))
	}
	return result
}

// ParseGatewayReport parses a visible DMO gateway or repeater report according to [PEI] 6.14.12:
// +CTDGR: <DM communication type>, <gateway/repeater address>, <MNI>, <presence information>
func ParseGatewayReport(line string) (GatewayReport, error) {
	fields, err := splitReport(line, "+CTDGR:")
	if err != nil {
		return GatewayReport{}, err
	}
	if len(fields) != 4 {
		return GatewayReport{}, fmt.Errorf("+CTDGR needs 4 fields: %s", line)
	}
	return GatewayReport{
		Type:  DMCommunicationType(atoi(fields[0])),
		ISSI:  atoi(fields[1]),
		MNI:   fields[2],
		State: atoi(fields[3]),
	}, nil
}

// GatewayReport describes a visible DMO gateway or repeater.
type GatewayReport struct {
	Type  DMCommunicationType
	ISSI  int
	MNI   string
	State int
}

var errorReport = regexp.MustCompile(`^\+CME ERROR:\s*(\d+)`)

// ParseError returns the error code of a +CME ERROR result code. A plain ERROR has no code.
func ParseError(line string) (PEIError, bool) {
	parts := errorReport.FindStringSubmatch(strings.TrimSpace(line))
	if len(parts) != 2 {
		return 0, false
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return PEIError(code), true
}
