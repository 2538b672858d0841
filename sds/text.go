package sds

import (
	"fmt"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// TextEncoding enum according to [AI] 29.5.4.1
type TextEncoding byte

// All defined text encoding schemes, according to [AI] table 29.29
const (
	Packed7Bit TextEncoding = iota
	ISO8859_1
	ISO8859_2
	ISO8859_3
	ISO8859_4
	ISO8859_5
	ISO8859_6
	ISO8859_7
	ISO8859_8
	ISO8859_9
	ISO8859_10
	ISO8859_13
	ISO8859_14
	ISO8859_15
	CodePage437
	CodePage737
	CodePage850
	CodePage852
	CodePage855
	CodePage857
	CodePage860
	CodePage861
	CodePage863
	CodePage865
	CodePage866
	CodePage869
	UTF16BE
	VISCII
)

// TextCodecs contains the codecs of all supported text encoding schemes.
var TextCodecs = map[TextEncoding]encoding.Encoding{
	ISO8859_1:   charmap.ISO8859_1,
	ISO8859_2:   charmap.ISO8859_2,
	ISO8859_3:   charmap.ISO8859_3,
	ISO8859_4:   charmap.ISO8859_4,
	ISO8859_5:   charmap.ISO8859_5,
	ISO8859_6:   charmap.ISO8859_6,
	ISO8859_7:   charmap.ISO8859_7,
	ISO8859_8:   charmap.ISO8859_8,
	ISO8859_9:   charmap.ISO8859_9,
	ISO8859_10:  charmap.ISO8859_10,
	ISO8859_13:  charmap.ISO8859_13,
	ISO8859_14:  charmap.ISO8859_14,
	ISO8859_15:  charmap.ISO8859_15,
	CodePage437: charmap.CodePage437,
	CodePage850: charmap.CodePage850,
	CodePage852: charmap.CodePage852,
	CodePage855: charmap.CodePage855,
	CodePage860: charmap.CodePage860,
	CodePage863: charmap.CodePage863,
	CodePage865: charmap.CodePage865,
	CodePage866: charmap.CodePage866,
	UTF16BE:     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// radios send all kinds of garbage, ISO8859-1 decodes every byte
var fallbackCodec encoding.Encoding = charmap.ISO8859_1

func codec(textEncoding TextEncoding) encoding.Encoding {
	result, ok := TextCodecs[textEncoding]
	if !ok {
		return fallbackCodec
	}
	return result
}

// BitsToTextChars returns the number of characters that fit into the given number of bits using the given encoding
func BitsToTextChars(encoding TextEncoding, bits int) int {
	switch encoding {
	case Packed7Bit:
		return bits / 7
	case UTF16BE:
		return bits / 16
	default:
		return bits / 8
	}
}

// SplitToMaxBits splits the given text into parts that do not exceed the given maximum number of bits using the given encoding.
// Characters are never split.
func SplitToMaxBits(encoding TextEncoding, maxPDUBits int, text string) []string {
	maxPartLength := max(1, BitsToTextChars(encoding, maxPDUBits))
	return SplitToMaxChars(maxPartLength, text)
}

// SplitToMaxChars splits the given text into parts of at most maxChars characters.
func SplitToMaxChars(maxChars int, text string) []string {
	if text == "" {
		return []string{}
	}

	runes := []rune(text)
	result := make([]string, 0, len(runes)/maxChars+1)
	for len(runes) > maxChars {
		result = append(result, string(runes[:maxChars]))
		runes = runes[maxChars:]
	}
	if len(runes) > 0 {
		result = append(result, string(runes))
	}
	return result
}

// ParseTextHeader in text messages.
func ParseTextHeader(bytes []byte) (TextHeader, error) {
	if len(bytes) < 1 {
		return TextHeader{}, fmt.Errorf("text header too short: %d", len(bytes))
	}

	var result TextHeader
	result.Encoding = TextEncoding(bytes[0] & 0x7F)

	timestampUsed := (bytes[0] & 0x80) == 0x80
	if !timestampUsed {
		return result, nil
	}
	if len(bytes) < 4 {
		return TextHeader{}, fmt.Errorf("text header with timestamp too short: %d", len(bytes))
	}
	timestamp, err := DecodeTimestamp(bytes[1:4])
	if err != nil {
		return TextHeader{}, err
	}
	result.Timestamp = timestamp

	return result, nil
}

// TextHeader represents the meta information for text used in text messages according to [AI] 29.5.3.3
type TextHeader struct {
	Encoding  TextEncoding
	Timestamp time.Time
}

// Encode this text header
func (h TextHeader) Encode(bytes []byte, bits int) ([]byte, int) {
	bytes = append(bytes, byte(h.Encoding))
	bits += 8
	if !h.Timestamp.IsZero() {
		bytes[len(bytes)-1] |= 0x80
		bytes = append(bytes, EncodeTimestampUTC(h.Timestamp)...)
		bits += 24
	}

	return bytes, bits
}

// Length returns the length of this text header in bytes.
func (h TextHeader) Length() int {
	if h.Timestamp.IsZero() {
		return 1
	}
	return 4
}

// DecodeTimestamp according to [AI] 29.5.4.4
func DecodeTimestamp(bytes []byte) (time.Time, error) {
	if len(bytes) != 3 {
		return time.Time{}, fmt.Errorf("a timestamp must be 3 bytes long")
	}

	locations := []*time.Location{time.Local, time.UTC, time.Local, time.Local}
	location := locations[(bytes[0]&0xC0)>>6]
	month := time.Month(bytes[0] & 0x0F)
	day := int(bytes[1] >> 3)
	hour := int(((bytes[1] & 0x07) << 2) | (bytes[2] >> 6))
	minute := int(bytes[2] & 0x3F)

	return time.Date(time.Now().Year(), month, day, hour, minute, 0, 0, location), nil
}

// EncodeTimestampUTC according to [AI] 29.5.4.4, always using timeframe type UTC
func EncodeTimestampUTC(timestamp time.Time) []byte {
	utc := timestamp.UTC()
	return []byte{
		0x40 | byte(utc.Month())&0x0F,
		byte(utc.Day())<<3 | (byte(utc.Hour())>>2)&0x07,
		byte(utc.Hour())<<6 | byte(utc.Minute())&0x3F,
	}
}

// DecodePayloadText decodes the actual text content using the given encoding scheme according to [AI] 29.5.4
func DecodePayloadText(textEncoding TextEncoding, bytes []byte) (string, error) {
	utf8, err := codec(textEncoding).NewDecoder().Bytes(bytes)
	return string(utf8), err
}

// AppendEncodedPayloadText encodes the given payload text using the given text encoding and appends the result to the given byte slice.
// Text that cannot be encoded is appended as is.
func AppendEncodedPayloadText(bytes []byte, bits int, text string, textEncoding TextEncoding) ([]byte, int) {
	encodedBytes, err := codec(textEncoding).NewEncoder().Bytes([]byte(text))
	if err != nil {
		encodedBytes = []byte(text)
	}

	return append(bytes, encodedBytes...), bits + len(encodedBytes)*8
}
