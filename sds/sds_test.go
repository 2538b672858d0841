package sds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	tt := []struct {
		desc     string
		value    string
		expected Header
		invalid  bool
	}{
		{
			desc:    "empty",
			invalid: true,
		},
		{
			desc:     "with source",
			value:    "+CTSDSR: 12,23404,0,23401,0,112",
			expected: Header{AIService: SDSTLService, Source: "23404", Destination: "23401", PDUBits: 112},
		},
		{
			desc:     "with source and encryption",
			value:    "+CTSDSR: 13,23404,0,23401,0,16,0",
			expected: Header{AIService: StatusService, Source: "23404", Destination: "23401", PDUBits: 16},
		},
		{
			desc:     "minimum set",
			value:    "+CTSDSR: 12,23401,0,96",
			expected: Header{AIService: SDSTLService, Destination: "23401", PDUBits: 96},
		},
		{
			desc:    "wrong field count",
			value:   "+CTSDSR: 12,23401",
			invalid: true,
		},
		{
			desc:    "invalid length",
			value:   "+CTSDSR: 12,23404,0,23401,0,abc",
			invalid: true,
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual, err := ParseHeader(tc.value)
			if tc.invalid {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestHeaderPDUBytes(t *testing.T) {
	assert.Equal(t, 14, Header{PDUBits: 112}.PDUBytes())
	assert.Equal(t, 3, Header{PDUBits: 17}.PDUBytes())
}

func TestParser_ParsePayload(t *testing.T) {
	tt := []struct {
		desc     string
		value    string
		expected any
		invalid  bool
	}{
		{
			desc:    "empty",
			invalid: true,
		},
		{
			desc:    "no hex",
			value:   "hello",
			invalid: true,
		},
		{
			desc:  "simple text message",
			value: "0201746573746D657373616765",
			expected: SimpleTextMessage{
				Protocol: SimpleTextMessaging,
				Encoding: ISO8859_1,
				Text:     "testmessage",
			},
		},
		{
			desc:  "text message with receipt report requested",
			value: "82041D014164676A6D707477",
			expected: SDSTransfer{
				Protocol:                        TextMessaging,
				DeliveryReportRequest:           MessageReceivedReportRequested,
				ServiceSelectionShortFormReport: true,
				MessageReference:                0x1D,
				UserData: TextSDU{
					TextHeader: TextHeader{Encoding: ISO8859_1},
					Text:       "Adgjmptw",
				},
			},
		},
		{
			desc:  "receipt report",
			value: "82100002",
			expected: SDSReport{
				Protocol:         TextMessaging,
				DeliveryStatus:   ReceiptAckByDestination,
				MessageReference: 0x02,
			},
		},
		{
			desc:    "store and forward",
			value:   "82039C5101020301746573746D657373616765",
			invalid: true,
		},
		{
			desc:    "concatenated",
			value:   "0C0102",
			invalid: true,
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			parser := NewParser()
			actual, err := parser.ParsePayload(tc.value)
			if tc.invalid {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestParser_Set(t *testing.T) {
	parser := NewParser()
	parser.Set(WirelessDatagramProtocol, func(bytes []byte) (any, error) {
		return len(bytes), nil
	})

	actual, err := parser.ParsePayload("040102")

	assert.NoError(t, err)
	assert.Equal(t, 3, actual)
}

func TestEncode(t *testing.T) {
	tt := []struct {
		desc     string
		encoder  Encoder
		expected []byte
		bits     int
	}{
		{
			desc:     "text transfer",
			encoder:  NewTextTransfer(0x01, "C.N4"),
			expected: []byte{0x82, 0x04, 0x01, 0x01, 0x43, 0x2E, 0x4E, 0x34},
			bits:     64,
		},
		{
			desc: "text transfer with timestamp",
			encoder: SDSTransfer{
				Protocol:                        TextMessaging,
				ServiceSelectionShortFormReport: true,
				MessageReference:                0x02,
				UserData: TextSDU{
					TextHeader: TextHeader{
						Encoding:  ISO8859_1,
						Timestamp: time.Date(2024, time.April, 11, 10, 15, 0, 0, time.UTC),
					},
					Text: "a",
				},
			},
			expected: []byte{0x82, 0x00, 0x02, 0x81, 0x44, 0x5A, 0x8F, 0x61},
			bits:     64,
		},
		{
			desc:     "receipt report",
			encoder:  NewReceiptReport(0xFF),
			expected: []byte{0x82, 0x10, 0x00, 0xFF},
			bits:     32,
		},
		{
			desc:     "status",
			encoder:  Status(0x8005),
			expected: []byte{0x80, 0x05},
			bits:     16,
		},
		{
			desc:     "invalid raw",
			encoder:  RawPDU("XY"),
			expected: []byte{},
			bits:     0,
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual, bits := tc.encoder.Encode([]byte{}, 0)
			assert.Equal(t, tc.expected, actual)
			assert.Equal(t, tc.bits, bits)
		})
	}
}

func TestTimestampRoundtrip(t *testing.T) {
	timestamp := time.Date(time.Now().Year(), time.April, 11, 10, 15, 0, 0, time.UTC)

	encoded := EncodeTimestampUTC(timestamp)
	decoded, err := DecodeTimestamp(encoded)

	require.NoError(t, err)
	assert.True(t, timestamp.Equal(decoded), "%v != %v", timestamp, decoded)
}

func TestParseStatus(t *testing.T) {
	actual, err := ParseStatus("8005")
	assert.NoError(t, err)
	assert.Equal(t, Status(0x8005), actual)

	_, err = ParseStatus("80G5")
	assert.Error(t, err)
}

func TestSplitToMaxBits(t *testing.T) {
	tt := []struct {
		desc     string
		encoding TextEncoding
		bits     int
		text     string
		expected []string
	}{
		{"empty", ISO8859_1, 16, "", []string{}},
		{"short", ISO8859_1, 40, "abc", []string{"abc"}},
		{"exact", ISO8859_1, 24, "abc", []string{"abc"}},
		{"split", ISO8859_1, 16, "abcde", []string{"ab", "cd", "e"}},
		{"umlauts stay whole", ISO8859_1, 16, "äöü", []string{"äö", "ü"}},
		{"packed", Packed7Bit, 14, "abcde", []string{"ab", "cd", "e"}},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual := SplitToMaxBits(tc.encoding, tc.bits, tc.text)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestDecodePayloadText_Fallback(t *testing.T) {
	actual, err := DecodePayloadText(VISCII, []byte{0x48, 0xE4})
	assert.NoError(t, err)
	assert.Equal(t, "Hä", actual)
}
