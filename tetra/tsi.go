package tetra

import (
	"fmt"
	"strconv"
	"strings"
)

// Addressing holds the local network part that completes a bare ISSI into a full TSI.
type Addressing struct {
	MCC uint
	MNC uint
}

// TSI normalizes the given ISSI or short/long TSI form into the 17-digit form MCC[4] MNC[5] ISSI[8].
// Malformed input never fails, it yields a best-effort result.
func (a Addressing) TSI(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 9 {
		return formatTSI(a.MCC, a.MNC, number(s))
	}

	mccLen := 3
	if s[0] == '0' {
		mccLen = 4
	}
	mcc := number(s[:mccLen])
	rest := s[mccLen:]

	var mnc, issi uint
	if len(rest) >= 13 {
		mnc = number(rest[:len(rest)-8])
		issi = number(rest[len(rest)-8:])
	} else {
		n := min(5, len(rest))
		mnc = number(rest[:n])
		issi = number(rest[n:])
	}
	return formatTSI(mcc, mnc, issi)
}

// IsLocal reports if the given TSI belongs to the local network.
func (a Addressing) IsLocal(tsi string) bool {
	return strings.HasPrefix(a.TSI(tsi), fmt.Sprintf("%04d%05d", a.MCC, a.MNC))
}

// ISSI returns the trailing 8-digit subscriber part of the given TSI.
func ISSI(tsi string) string {
	if len(tsi) <= 8 {
		return tsi
	}
	return tsi[len(tsi)-8:]
}

func formatTSI(mcc, mnc, issi uint) string {
	return fmt.Sprintf("%04d%05d%08d", mcc, mnc, issi)
}

func number(s string) uint {
	if s == "" {
		return 0
	}
	result, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint(result)
}
