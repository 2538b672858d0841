package sds

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kikosgc/svxlink/tetra"
)

type Encoder interface {
	Encode([]byte, int) ([]byte, int)
}

const (
	// CRLF line ending for AT commands
	CRLF = "\x0d\x0a"
	// CtrlZ line ending for PDUs
	CtrlZ = "\x1a"

	// SwitchToSDSTL is a short-cut for selecting the SDS-TL AI service with ISSI addressing and E2EE according to [PEI] 6.14.6
	SwitchToSDSTL = "AT+CTSDS=12,0,0,0,1"
	// SwitchToStatus is a short-cut for selecting the status AI service with ISSI addresssing according to [PEI] 6.14.6
	SwitchToStatus = "AT+CTSDS=13,0"
)

// SendMessage according to [PEI] 6.13.2
func SendMessage(destination string, message Encoder) string {
	pdu := make([]byte, 0, 256)
	pduBits := 0
	pdu, pduBits = message.Encode(pdu, pduBits)
	return fmt.Sprintf("AT+CMGS=%s,%d"+CRLF+"%s"+CtrlZ, destination, pduBits, tetra.BinaryToHex(pdu))
}

// SendSDSTL selects the SDS-TL service and sends the message to the given TSI in one go.
func SendSDSTL(tsi string, message Encoder) string {
	return SwitchToSDSTL + CRLF + SendMessage(Destination(tsi), message)
}

// SendStatus selects the status service and sends the status to the given TSI in one go.
func SendStatus(tsi string, status Status) string {
	return SwitchToStatus + CRLF + SendMessage(Destination(tsi), status)
}

// Destination returns the ISSI of the given TSI without leading zeros, as used in AT+CMGS.
func Destination(tsi string) string {
	result := strings.TrimLeft(tetra.ISSI(tsi), "0")
	if result == "" {
		return "0"
	}
	return result
}

// SendStatusCode is the <SDS status> of a delivery report according to [PEI] 6.17.44
type SendStatusCode int

// The delivery states reported by the radio after a SDS was handed over with AT+CMGS.
const (
	SendOK     SendStatusCode = 4
	SendFailed SendStatusCode = 5
)

// SendReport is the result code of AT+CMGS: +CMGS: <SDS instance>[, <SDS status>[, <message reference>]]
// The set result code only carries the instance, the unsolicited delivery report follows later with status and reference.
type SendReport struct {
	Instance  int
	HasStatus bool
	Status    SendStatusCode
	Reference int
}

var sendReportExpression = regexp.MustCompile(`^\+CMGS:\s*(\d+)(?:\s*,\s*(\d+)(?:\s*,\s*(\d+))?)?`)

// ParseSendReport parses a +CMGS result code.
func ParseSendReport(line string) (SendReport, error) {
	parts := sendReportExpression.FindStringSubmatch(strings.TrimSpace(line))
	if len(parts) != 4 {
		return SendReport{}, fmt.Errorf("unexpected send report: %s", line)
	}

	var result SendReport
	result.Instance, _ = strconv.Atoi(parts[1])
	if parts[2] != "" {
		status, _ := strconv.Atoi(parts[2])
		result.HasStatus = true
		result.Status = SendStatusCode(status)
	}
	if parts[3] != "" {
		result.Reference, _ = strconv.Atoi(parts[3])
	}
	return result, nil
}
