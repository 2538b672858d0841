package ctrl

import "strconv"

// DisconnectCause of a released call according to [PEI] 6.17.13
type DisconnectCause int

var disconnectCauses = []string{
	"Not defined or unknown",
	"User requested disconnect",
	"Called party busy",
	"Called party not reachable",
	"Called party does not support encryption",
	"Congestion in infrastructure",
	"Not allowed traffic case",
	"Incompatible traffic case",
	"Requested service not available",
	"Pre-emptive use of resource",
	"Invalid call identifier",
	"Call rejected by the called party",
	"No idle CC entity",
	"Expiry of timer",
	"SwMI requested disconnection",
	"Acknowledged service not completed",
	"Unknown TETRA identity",
	"SS-specific disconnection",
	"Unknown external subscriber identity",
	"Call restoration of the other user failed",
	"Called party requires encryption",
	"Concurrent set-up not supported",
	"Called party is under the same DM-GATE of the calling party",
}

func (c DisconnectCause) String() string {
	if c >= 0 && int(c) < len(disconnectCauses) {
		return disconnectCauses[c]
	}
	return disconnectCauses[0]
}

// PEIError is the error code of a +CME ERROR result code according to [PEI] 6.17.16
type PEIError int

var peiErrors = map[PEIError]string{
	0:  "MT was unable to send the data over the air",
	1:  "no reliable connection between MT and TE",
	2:  "the PEI link of the MT is already in use",
	3:  "operation not allowed in the current state",
	4:  "operation not supported",
	5:  "PH-SIM PIN required",
	10: "SIM not inserted",
	11: "SIM PIN required",
	12: "SIM PUK required",
	13: "SIM failure",
	14: "SIM busy",
	15: "SIM wrong",
	16: "incorrect password",
	17: "SIM PIN2 required",
	18: "SIM PUK2 required",
	20: "memory full",
	21: "invalid index",
	22: "not found",
	23: "memory failure",
	24: "text string too long",
	25: "invalid characters in text string",
	26: "dial string too long",
	27: "invalid characters in dial string",
	30: "no network service",
	31: "network timeout",
	32: "network not allowed, emergency calls only",
	33: "invalid parameter",
	34: "service not available in the current mode",
	35: "syntax error",
	36: "invalid group identity",
}

func (e PEIError) String() string {
	if text, ok := peiErrors[e]; ok {
		return text
	}
	return "reserved error " + strconv.Itoa(int(e))
}
