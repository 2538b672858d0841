// Package tetra holds the addressing and the hex representation of binary data shared by all parts of the PEI.
package tetra

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// IdentityType enum according to [PEI] 6.17.11 and 6.17.12
type IdentityType byte

// All defined IdentityType values
const (
	SSI IdentityType = iota
	TSI
	SNA
	PABX
	PSTN
	ExtendedTSI
)

var identityTypeNames = map[IdentityType]string{
	SSI:         "SSI",
	TSI:         "TSI",
	SNA:         "SNA",
	PABX:        "PABX",
	PSTN:        "PSTN",
	ExtendedTSI: "Extended TSI",
}

func (t IdentityType) String() string {
	if name, ok := identityTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("identity type %d", byte(t))
}

// HexToBinary converts the hex representation used along the PEI into bytes. Whitespace between the digits is ignored.
func HexToBinary(s string) ([]byte, error) {
	digits := strings.Join(strings.Fields(s), "")
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("odd number of hex digits: %d", len(digits))
	}
	return hex.DecodeString(digits)
}

// BinaryToHex converts bytes into the upper case hex representation used along the PEI.
func BinaryToHex(pdu []byte) string {
	return strings.ToUpper(hex.EncodeToString(pdu))
}
