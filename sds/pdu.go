package sds

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kikosgc/svxlink/tetra"
)

// ParseHeader from the given string. The string must include the +CTSDSR: token.
func ParseHeader(s string) (Header, error) {
	if !strings.HasPrefix(s, "+CTSDSR:") {
		return Header{}, fmt.Errorf("invalid header, +CTSDSR expected: %s", s)
	}

	var result Header
	fields := strings.Split(s[8:], ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	switch len(fields) {
	case 3, 4: // minimum set
		result.AIService = AIService(fields[0])
		result.Destination = fields[1]
	case 6, 7: // with source, with end-to-end encryption
		result.AIService = AIService(fields[0])
		result.Source = fields[1]
		result.Destination = fields[3]
	default:
		return Header{}, fmt.Errorf("invalid header, wrong field count: %s", s)
	}

	lengthField := fields[len(fields)-1]
	if len(fields) == 7 {
		lengthField = fields[5]
	}
	var err error
	result.PDUBits, err = strconv.Atoi(lengthField)
	if err != nil {
		return Header{}, fmt.Errorf("invalid PDU bit count %s: %w", lengthField, err)
	}

	return result, nil
}

// Header represents the information provided with the +CTSDSR unsolicited response indicating an incoming SDS.
// The user data follows on the next line.
// see [PEI] 6.13.3
type Header struct {
	AIService   AIService
	Source      string
	Destination string
	PDUBits     int
}

// PDUBytes returns the size of the following PDU in bytes.
func (h Header) PDUBytes() int {
	return (h.PDUBits + 7) / 8
}

// AIService enum according to [PEI] 6.17.3
type AIService string

// All AI services relevant for SDS handling, according to [PEI] 6.17.3
const (
	SDSTLService  AIService = "12"
	StatusService AIService = "13"
)

// ProtocolIdentifier enum according to [AI] 29.4.3.9
type ProtocolIdentifier byte

// Encode this protocol identifier
func (p ProtocolIdentifier) Encode(bytes []byte, bits int) ([]byte, int) {
	return append(bytes, byte(p)), bits + 8
}

// The protocol identifiers this radio family sends or expects, according to [AI] table 29.21
const (
	SimpleTextMessaging            ProtocolIdentifier = 0x02
	SimpleLocationSystem           ProtocolIdentifier = 0x03
	WirelessDatagramProtocol       ProtocolIdentifier = 0x04
	SimpleImmediateTextMessaging   ProtocolIdentifier = 0x09
	LocationInformationProtocol    ProtocolIdentifier = 0x0A
	SimpleConcatenatedSDSMessaging ProtocolIdentifier = 0x0C
	TextMessaging                  ProtocolIdentifier = 0x82
	ImmediateTextMessaging         ProtocolIdentifier = 0x89
)

// SDSTLMessageType enum according to [AI] 29.4.3.8
type SDSTLMessageType byte

// All SDS-TL message types according to [AI] table 29.20
const (
	SDSTransferMessage    SDSTLMessageType = 0
	SDSReportMessage      SDSTLMessageType = 1
	SDSAcknowledgeMessage SDSTLMessageType = 2
)

// MessageReference according to [AI] 29.4.3.7
type MessageReference byte

// Encode this message reference
func (m MessageReference) Encode(bytes []byte, bits int) ([]byte, int) {
	return append(bytes, byte(m)), bits + 8
}

// DeliveryStatus according to [AI] 29.4.3.2
type DeliveryStatus byte

// Encode this delivery status
func (s DeliveryStatus) Encode(bytes []byte, bits int) ([]byte, int) {
	return append(bytes, byte(s)), bits + 8
}

// Success indicates if this status represents a success (see [AI] table 29.16).
func (s DeliveryStatus) Success() bool {
	return (s & 0xE0) == 0x00
}

// The delivery status values used here, see [AI] table 29.16
const (
	ReceiptAckByDestination DeliveryStatus = 0x00
	ReceiptReportAck        DeliveryStatus = 0x01
	ConsumedByDestination   DeliveryStatus = 0x02
	Congestion              DeliveryStatus = 0x20
	DeliveryFailed          DeliveryStatus = 0x4A
)

// DeliveryReportRequest enum according to [AI] 29.4.3.3
type DeliveryReportRequest byte

// All delivery report requests according to [AI] table 29.17
const (
	NoReportRequested                         DeliveryReportRequest = 0x00
	MessageReceivedReportRequested            DeliveryReportRequest = 0x01
	MessageConsumedReportRequested            DeliveryReportRequest = 0x02
	MessageReceivedAndConsumedReportRequested DeliveryReportRequest = 0x03
)

func parseSDSTLMessage(bytes []byte) (any, error) {
	if len(bytes) < 2 {
		return nil, fmt.Errorf("payload too short: %d", len(bytes))
	}

	messageType := SDSTLMessageType(bytes[1] >> 4)
	switch messageType {
	case SDSTransferMessage:
		return ParseSDSTransfer(bytes)
	case SDSReportMessage:
		return ParseSDSReport(bytes)
	default:
		return nil, fmt.Errorf("SDS-TL message type 0x%x is not supported", messageType)
	}
}

// ParseSDSTransfer parses a SDS-TRANSFER PDU carrying a text SDU from the given bytes.
// Store and forward control information is not supported.
func ParseSDSTransfer(bytes []byte) (SDSTransfer, error) {
	if len(bytes) < 4 {
		return SDSTransfer{}, fmt.Errorf("SDS-TRANSFER PDU too short: %d", len(bytes))
	}
	if (bytes[1] & 0x01) != 0 {
		return SDSTransfer{}, fmt.Errorf("SDS-TRANSFER with store/forward control is not supported")
	}

	var result SDSTransfer
	result.Protocol = ProtocolIdentifier(bytes[0])
	result.DeliveryReportRequest = DeliveryReportRequest((bytes[1] & 0x0C) >> 2)
	result.ServiceSelectionShortFormReport = (bytes[1] & 0x02) == 0
	result.MessageReference = MessageReference(bytes[2])

	switch result.Protocol {
	case TextMessaging, ImmediateTextMessaging:
	default:
		return SDSTransfer{}, fmt.Errorf("protocol 0x%x is not supported as SDS-TRANSFER content", bytes[0])
	}

	sdu, err := ParseTextSDU(bytes[3:])
	if err != nil {
		return SDSTransfer{}, err
	}
	result.UserData = sdu

	return result, nil
}

// NewTextTransfer returns a SDS-TRANSFER PDU with the given text that requests a receipt report from
// the destination, which answers with a SDS-REPORT carrying the same message reference.
func NewTextTransfer(messageReference MessageReference, text string) SDSTransfer {
	return SDSTransfer{
		Protocol:                        TextMessaging,
		DeliveryReportRequest:           MessageReceivedReportRequested,
		ServiceSelectionShortFormReport: true,
		MessageReference:                messageReference,
		UserData: TextSDU{
			TextHeader: TextHeader{Encoding: ISO8859_1},
			Text:       text,
		},
	}
}

// SDSTransfer represents the SDS-TRANSFER PDU contents as defined in [AI] 29.4.2.4
type SDSTransfer struct {
	Protocol                        ProtocolIdentifier
	DeliveryReportRequest           DeliveryReportRequest
	ServiceSelectionShortFormReport bool
	MessageReference                MessageReference
	UserData                        TextSDU
}

// Encode this SDS-TRANSFER PDU
func (m SDSTransfer) Encode(bytes []byte, bits int) ([]byte, int) {
	bytes, bits = m.Protocol.Encode(bytes, bits)

	byte1 := byte(SDSTransferMessage) << 4
	byte1 |= byte(m.DeliveryReportRequest) << 2
	if !m.ServiceSelectionShortFormReport {
		byte1 |= 0x02
	}
	bytes = append(bytes, byte1)
	bits += 8

	bytes, bits = m.MessageReference.Encode(bytes, bits)
	return m.UserData.Encode(bytes, bits)
}

// ParseSDSReport parses a SDS-REPORT PDU from the given bytes
func ParseSDSReport(bytes []byte) (SDSReport, error) {
	if len(bytes) < 4 {
		return SDSReport{}, fmt.Errorf("SDS-REPORT PDU too short: %d", len(bytes))
	}

	return SDSReport{
		Protocol:         ProtocolIdentifier(bytes[0]),
		AckRequired:      (bytes[1] & 0x08) != 0,
		DeliveryStatus:   DeliveryStatus(bytes[2]),
		MessageReference: MessageReference(bytes[3]),
	}, nil
}

// NewReceiptReport creates the SDS-REPORT that confirms the receipt of a text message with the
// given message reference.
func NewReceiptReport(messageReference MessageReference) SDSReport {
	return SDSReport{
		Protocol:         TextMessaging,
		DeliveryStatus:   ReceiptAckByDestination,
		MessageReference: messageReference,
	}
}

// SDSReport represents the SDS-REPORT PDU contents as defined in [AI] 29.4.2.2
type SDSReport struct {
	Protocol         ProtocolIdentifier
	AckRequired      bool
	DeliveryStatus   DeliveryStatus
	MessageReference MessageReference
}

// Encode this SDS-REPORT PDU
func (r SDSReport) Encode(bytes []byte, bits int) ([]byte, int) {
	bytes, bits = r.Protocol.Encode(bytes, bits)

	byte1 := byte(SDSReportMessage) << 4
	if r.AckRequired {
		byte1 |= 0x08
	}
	bytes = append(bytes, byte1)
	bits += 8

	bytes, bits = r.DeliveryStatus.Encode(bytes, bits)
	return r.MessageReference.Encode(bytes, bits)
}

// ParseSimpleTextMessage parses a simple text message PDU
func ParseSimpleTextMessage(bytes []byte) (SimpleTextMessage, error) {
	if len(bytes) < 2 {
		return SimpleTextMessage{}, fmt.Errorf("simple text message PDU too short: %d", len(bytes))
	}

	var result SimpleTextMessage
	result.Protocol = ProtocolIdentifier(bytes[0])
	result.Encoding = TextEncoding(bytes[1] & 0x7F)

	text, err := DecodePayloadText(result.Encoding, bytes[2:])
	if err != nil {
		return SimpleTextMessage{}, err
	}
	result.Text = text

	return result, nil
}

// NewSimpleTextMessage returns a new simple text message PDU with the given text
func NewSimpleTextMessage(text string) SimpleTextMessage {
	return SimpleTextMessage{
		Protocol: SimpleTextMessaging,
		Encoding: ISO8859_1,
		Text:     text,
	}
}

// SimpleTextMessage represents the data of a simple text messaging PDU, according to [AI] 29.5.2.3
type SimpleTextMessage struct {
	Protocol ProtocolIdentifier
	Encoding TextEncoding
	Text     string
}

// Encode this simple text message
func (m SimpleTextMessage) Encode(bytes []byte, bits int) ([]byte, int) {
	bytes, bits = m.Protocol.Encode(bytes, bits)
	bytes = append(bytes, byte(m.Encoding))
	bits += 8
	return AppendEncodedPayloadText(bytes, bits, m.Text, m.Encoding)
}

// ParseTextSDU parses the user data of a text message.
func ParseTextSDU(bytes []byte) (TextSDU, error) {
	textHeader, err := ParseTextHeader(bytes)
	if err != nil {
		return TextSDU{}, err
	}
	text, err := DecodePayloadText(textHeader.Encoding, bytes[textHeader.Length():])
	if err != nil {
		return TextSDU{}, err
	}

	return TextSDU{
		TextHeader: textHeader,
		Text:       text,
	}, nil
}

// TextSDU according to [AI] 29.5.3.3
type TextSDU struct {
	TextHeader
	Text string
}

// Encode this text SDU
func (t TextSDU) Encode(bytes []byte, bits int) ([]byte, int) {
	bytes, bits = t.TextHeader.Encode(bytes, bits)
	return AppendEncodedPayloadText(bytes, bits, t.Text, t.TextHeader.Encoding)
}

// ParseRawPDU checks that the given string is a non-empty PDU in hex representation.
func ParseRawPDU(s string) ([]byte, error) {
	result, err := tetra.HexToBinary(s)
	if err != nil {
		return nil, fmt.Errorf("invalid raw PDU %q: %w", s, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty raw PDU")
	}
	return result, nil
}

// RawPDU is a PDU given in the hex representation used along the PEI. It is sent as is.
type RawPDU string

// Encode this raw PDU. Invalid hex digits encode to nothing.
func (p RawPDU) Encode(bytes []byte, bits int) ([]byte, int) {
	raw, err := tetra.HexToBinary(string(p))
	if err != nil {
		return bytes, bits
	}
	return append(bytes, raw...), bits + len(raw)*8
}

// ParseStatus parses a pre-coded status given as 4 hex digits.
func ParseStatus(s string) (Status, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(s), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid status %q: %w", s, err)
	}
	return Status(value), nil
}

// Status represents a pre-coded status according to [AI] 14.8.34. The values 0x8000 to 0xFEFF
// are available for user defined states.
type Status uint16

// Encode this status
func (s Status) Encode(bytes []byte, bits int) ([]byte, int) {
	return append(bytes, byte(s>>8), byte(s)), bits + 16
}
