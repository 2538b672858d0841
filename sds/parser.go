package sds

import (
	"fmt"

	"github.com/kikosgc/svxlink/tetra"
)

type PayloadParserFunc func([]byte) (any, error)

type Parser struct {
	parsers map[ProtocolIdentifier]PayloadParserFunc
}

// NewParser returns a new SDS parser that uses the default payload parsers for
// simple text messaging (0x02), simple immediate text messaging (0x09),
// location information protocol (0x0A), text messaging (0x82) and immediate text messaging (0x89).
func NewParser() *Parser {
	return &Parser{
		parsers: map[ProtocolIdentifier]PayloadParserFunc{
			SimpleTextMessaging:          parseAs(ParseSimpleTextMessage),
			SimpleImmediateTextMessaging: parseAs(ParseSimpleTextMessage),
			LocationInformationProtocol:  parseAs(ParseLocationReport),
			TextMessaging:                parseSDSTLMessage,
			ImmediateTextMessaging:       parseSDSTLMessage,
		},
	}
}

func parseAs[T any](parse func([]byte) (T, error)) PayloadParserFunc {
	return func(bytes []byte) (any, error) {
		return parse(bytes)
	}
}

// Set a individual payload parser for the given protocol identifier.
func (p *Parser) Set(protocol ProtocolIdentifier, parser PayloadParserFunc) {
	p.parsers[protocol] = parser
}

// ParsePayload parses the hex encoded user data line that follows a +CTSDSR header.
func (p *Parser) ParsePayload(pduHex string) (any, error) {
	bytes, err := tetra.HexToBinary(pduHex)
	if err != nil {
		return nil, fmt.Errorf("cannot decode hex PDU data: %w", err)
	}
	if len(bytes) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	protocolIdentifier := ProtocolIdentifier(bytes[0])
	payloadParser, ok := p.parsers[protocolIdentifier]
	if !ok {
		return nil, fmt.Errorf("no SDS payload parser registered for protocol 0x%x", byte(protocolIdentifier))
	}

	return payloadParser(bytes)
}
