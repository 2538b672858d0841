package sds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendSDSTL(t *testing.T) {
	tt := []struct {
		desc     string
		tsi      string
		message  Encoder
		expected string
	}{
		{
			desc:     "text message",
			tsi:      "09011638300023404",
			message:  NewTextTransfer(0x0A, "Hallo"),
			expected: "AT+CTSDS=12,0,0,0,1\r\nAT+CMGS=23404,72\r\n82040A0148616C6C6F\x1a",
		},
		{
			desc:     "receipt report",
			tsi:      "09011638300023404",
			message:  NewReceiptReport(0x1D),
			expected: "AT+CTSDS=12,0,0,0,1\r\nAT+CMGS=23404,32\r\n8210001D\x1a",
		},
		{
			desc:     "raw",
			tsi:      "23404",
			message:  RawPDU("82040102432E4E34"),
			expected: "AT+CTSDS=12,0,0,0,1\r\nAT+CMGS=23404,64\r\n82040102432E4E34\x1a",
		},
		{
			desc:     "simple text",
			tsi:      "09011638300000001",
			message:  NewSimpleTextMessage("OK"),
			expected: "AT+CTSDS=12,0,0,0,1\r\nAT+CMGS=1,32\r\n02014F4B\x1a",
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual := SendSDSTL(tc.tsi, tc.message)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestSendStatus(t *testing.T) {
	actual := SendStatus("09011638300023404", Status(0x8004))
	assert.Equal(t, "AT+CTSDS=13,0\r\nAT+CMGS=23404,16\r\n8004\x1a", actual)
}

func TestDestination(t *testing.T) {
	assert.Equal(t, "23404", Destination("09011638300023404"))
	assert.Equal(t, "0", Destination("09011638300000000"))
}

func TestParseSendReport(t *testing.T) {
	tt := []struct {
		desc     string
		value    string
		expected SendReport
		invalid  bool
	}{
		{
			desc:     "instance only",
			value:    "+CMGS: 0",
			expected: SendReport{Instance: 0},
		},
		{
			desc:     "delivered",
			value:    "+CMGS: 0,4,65",
			expected: SendReport{Instance: 0, HasStatus: true, Status: SendOK, Reference: 65},
		},
		{
			desc:     "failed without reference",
			value:    "+CMGS: 3, 5",
			expected: SendReport{Instance: 3, HasStatus: true, Status: SendFailed},
		},
		{
			desc:    "garbage",
			value:   "+CMGS: (0-16777214),(8-1184)",
			invalid: true,
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual, err := ParseSendReport(tc.value)
			if tc.invalid {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}
