package pei

import (
	"fmt"
	"regexp"
)

// Kind of a line received from the PEI.
type Kind int

// The kinds of lines the session understands. OK, Error and Timeout double as link health.
const (
	Unknown Kind = iota
	OK
	Error
	Timeout
	SimpleTextSDS
	SimpleLocationSDS
	WAPSDS
	LocationSDS
	ConcatenatedSDS
	TextSDS
	AckSDS
	StateSDS
	RegistrationSDS
	TransmissionCeased
	AudioLevel
	SendConfirmation
	SubscriberNumber
	SubscriberNumberFormat
	CallConnect
	CallReleased
	GatewayReport
	GroupSet
	CallBegin
	OperatingMode
	SDSHeader
	TxDemand
	TxGrant
	TxInterrupt
	TxWait
)

var kindNames = map[Kind]string{
	Unknown:                "unknown",
	OK:                     "OK",
	Error:                  "ERROR",
	Timeout:                "TIMEOUT",
	SimpleTextSDS:          "simple text SDS",
	SimpleLocationSDS:      "simple location SDS",
	WAPSDS:                 "WAP SDS",
	LocationSDS:            "location SDS",
	ConcatenatedSDS:        "concatenated SDS",
	TextSDS:                "text SDS",
	AckSDS:                 "acknowledgement SDS",
	StateSDS:               "state SDS",
	RegistrationSDS:        "registration SDS",
	TransmissionCeased:     "transmission ceased",
	AudioLevel:             "audio level",
	SendConfirmation:       "send confirmation",
	SubscriberNumber:       "subscriber number",
	SubscriberNumberFormat: "subscriber number format",
	CallConnect:            "call connect",
	CallReleased:           "call released",
	GatewayReport:          "gateway report",
	GroupSet:               "group set",
	CallBegin:              "call begin",
	OperatingMode:          "operating mode",
	SDSHeader:              "SDS header",
	TxDemand:               "tx demand",
	TxGrant:                "tx grant",
	TxInterrupt:            "tx interrupt",
	TxWait:                 "tx wait",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind %d", int(k))
}

// IsSDS indicates if lines of this kind are the user data of an incoming SDS.
func (k Kind) IsSDS() bool {
	switch k {
	case SimpleTextSDS, SimpleLocationSDS, WAPSDS, LocationSDS, ConcatenatedSDS, TextSDS, AckSDS, StateSDS, RegistrationSDS:
		return true
	default:
		return false
	}
}

type pattern struct {
	expression *regexp.Regexp
	kind       Kind
}

// The first matching pattern wins.
var defaultPatterns = []pattern{
	{regexp.MustCompile(`^02`), SimpleTextSDS},
	{regexp.MustCompile(`^03`), SimpleLocationSDS},
	{regexp.MustCompile(`^04`), WAPSDS},
	{regexp.MustCompile(`^0A[0-9A-F]{20}`), LocationSDS},
	{regexp.MustCompile(`^0C`), ConcatenatedSDS},
	{regexp.MustCompile(`^8204`), TextSDS},
	{regexp.MustCompile(`^821000`), AckSDS},
	{regexp.MustCompile(`^OK`), OK},
	{regexp.MustCompile(`^[8-9A-F][0-9A-F]{3}$`), StateSDS},
	{regexp.MustCompile(`^\+CDTXC:`), TransmissionCeased},
	{regexp.MustCompile(`^\+CLVL:`), AudioLevel},
	{regexp.MustCompile(`^\+CME ERROR`), Error},
	{regexp.MustCompile(`^ERROR`), Error},
	{regexp.MustCompile(`^\+CMGS:`), SendConfirmation},
	{regexp.MustCompile(`^\+CNUM:`), SubscriberNumber},
	{regexp.MustCompile(`^\+CNUMF:`), SubscriberNumberFormat},
	{regexp.MustCompile(`^\+CTCC:`), CallConnect},
	{regexp.MustCompile(`^\+CTCR:`), CallReleased},
	{regexp.MustCompile(`^\+CTDGR:`), GatewayReport},
	{regexp.MustCompile(`^\+CTGS:`), GroupSet},
	{regexp.MustCompile(`^\+CTICN:`), CallBegin},
	{regexp.MustCompile(`^\+CTOM: [0-9]$`), OperatingMode},
	{regexp.MustCompile(`^\+CTSDSR:`), SDSHeader},
	{regexp.MustCompile(`^\+CTXD:`), TxDemand},
	{regexp.MustCompile(`^\+CTXG:`), TxGrant},
	{regexp.MustCompile(`^\+CTXI:`), TxInterrupt},
	{regexp.MustCompile(`^\+CTXW:`), TxWait},
}

// NewClassifier returns a classifier for the fixed PEI vocabulary.
func NewClassifier() *Classifier {
	return &Classifier{
		patterns: append([]pattern(nil), defaultPatterns...),
	}
}

// Classifier maps lines to kinds using an ordered table of patterns.
type Classifier struct {
	patterns []pattern
}

// Append adds a pattern after all existing patterns.
func (c *Classifier) Append(expression string, kind Kind) error {
	compiled, err := regexp.Compile(expression)
	if err != nil {
		return fmt.Errorf("invalid pattern for %s: %w", kind, err)
	}
	c.patterns = append(c.patterns, pattern{compiled, kind})
	return nil
}

func (c *Classifier) match(line string) (Kind, bool) {
	for _, p := range c.patterns {
		if p.expression.MatchString(line) {
			return p.kind, true
		}
	}
	return Unknown, false
}

// Classify returns the kind of the first matching pattern. If no pattern matches, it returns the fallback,
// which is the current link health.
func (c *Classifier) Classify(line string, fallback Kind) Kind {
	if kind, ok := c.match(line); ok {
		return kind
	}
	return fallback
}
