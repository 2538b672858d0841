package sds

import (
	"fmt"
	"math"
)

/*
Location information protocol (LIP), short location report according to ETSI TS 100 392-18-1.

	0A: Protocol Identifier[8]
	PDU type[2] (0 = short location report)
	Time elapsed[2]
	Longitude[25], two's complement, 360/2^25 degrees per step
	Latitude[24], two's complement, 180/2^24 degrees per step
	Position error[3]
	Horizontal velocity[7]
	Direction of travel[4]
	Type of additional data[1] (0 = reason for sending, 1 = user defined)
	Additional data[8]
	and 4 padding bits to fill the last byte
*/

const (
	shortLocationReport = 0
	longitudeBits       = 25
	latitudeBits        = 24

	// ShortLocationReportBytes is the length of a short location report including the protocol identifier.
	ShortLocationReportBytes = 11
)

// ParseLocationReport parses a LIP short location report PDU.
func ParseLocationReport(bytes []byte) (LocationReport, error) {
	if len(bytes) < ShortLocationReportBytes {
		return LocationReport{}, fmt.Errorf("location report too short: %d", len(bytes))
	}
	if ProtocolIdentifier(bytes[0]) != LocationInformationProtocol {
		return LocationReport{}, fmt.Errorf("protocol 0x%x is not a location report", bytes[0])
	}

	r := bitReader{bytes: bytes[1:]}
	pduType := r.read(2)
	if pduType != shortLocationReport {
		return LocationReport{}, fmt.Errorf("LIP PDU type %d is not supported", pduType)
	}

	var result LocationReport
	result.TimeElapsed = TimeElapsed(r.read(2))
	result.Longitude = float64(signed(r.read(longitudeBits), longitudeBits)) * 360 / (1 << longitudeBits)
	result.Latitude = float64(signed(r.read(latitudeBits), latitudeBits)) * 180 / (1 << latitudeBits)
	result.PositionError = PositionError(r.read(3))
	result.HorizontalVelocity = HorizontalVelocity(r.read(7))
	result.Direction = Heading(r.read(4))
	result.UserDefinedData = r.read(1) == 1
	additionalData := byte(r.read(8))
	if result.UserDefinedData {
		result.UserData = additionalData
	} else {
		result.ReasonForSending = ReasonForSending(additionalData)
	}

	return result, nil
}

// LocationReport represents the contents of a LIP short location report.
type LocationReport struct {
	TimeElapsed        TimeElapsed
	Latitude           float64
	Longitude          float64
	PositionError      PositionError
	HorizontalVelocity HorizontalVelocity
	Direction          Heading
	UserDefinedData    bool
	ReasonForSending   ReasonForSending
	UserData           byte
}

// Encode this location report as short location report PDU.
func (l LocationReport) Encode(bytes []byte, bits int) ([]byte, int) {
	bytes, bits = LocationInformationProtocol.Encode(bytes, bits)

	var w bitWriter
	w.write(shortLocationReport, 2)
	w.write(uint32(l.TimeElapsed), 2)
	w.write(fixedPoint(l.Longitude, 360, longitudeBits), longitudeBits)
	w.write(fixedPoint(l.Latitude, 180, latitudeBits), latitudeBits)
	w.write(uint32(l.PositionError), 3)
	w.write(uint32(l.HorizontalVelocity), 7)
	w.write(uint32(l.Direction), 4)
	if l.UserDefinedData {
		w.write(1, 1)
		w.write(uint32(l.UserData), 8)
	} else {
		w.write(0, 1)
		w.write(uint32(l.ReasonForSending), 8)
	}
	w.write(0, 4)

	return append(bytes, w.bytes...), bits + len(w.bytes)*8
}

// TimeElapsed since the position was determined.
type TimeElapsed byte

const (
	LessThan5Seconds TimeElapsed = iota
	LessThan5Minutes
	LessThan30Minutes
	TimeElapsedUnknown
)

// PositionError gives the accuracy of the position.
type PositionError byte

var positionErrors = []string{"< 2 m", "< 20 m", "< 200 m", "< 2 km", "< 20 km", "<= 200 km", "> 200 km", "unknown"}

func (e PositionError) String() string {
	return positionErrors[e&0x07]
}

// HorizontalVelocity in its 7 bit representation.
type HorizontalVelocity byte

// VelocityUnknown is reported if the radio cannot determine its speed.
const VelocityUnknown HorizontalVelocity = 127

// KMH returns the velocity in km/h, it returns -1 if the velocity is unknown.
func (v HorizontalVelocity) KMH() float64 {
	switch {
	case v == VelocityUnknown:
		return -1
	case v <= 28:
		return float64(v)
	default:
		return 16 * math.Pow(1.038, float64(v)-13)
	}
}

// Heading is the direction of travel in steps of 22.5 degrees.
type Heading byte

// Degrees returns the direction of travel in degrees, 0 means north.
func (d Heading) Degrees() float64 {
	return float64(d&0x0F) * 22.5
}

// ReasonForSending a location report, see ETSI TS 100 392-18-1 table 6.46
type ReasonForSending byte

const (
	PowerOn                   ReasonForSending = 0
	PowerOff                  ReasonForSending = 1
	EmergencyCondition        ReasonForSending = 2
	PushToTalk                ReasonForSending = 3
	StatusReason              ReasonForSending = 4
	TransmitInhibitOn         ReasonForSending = 5
	TransmitInhibitOff        ReasonForSending = 6
	SystemAccess              ReasonForSending = 7
	DMOOn                     ReasonForSending = 8
	EnterService              ReasonForSending = 9
	ServiceLoss               ReasonForSending = 10
	CellReselection           ReasonForSending = 11
	LowBattery                ReasonForSending = 12
	CarKitConnected           ReasonForSending = 13
	CarKitDisconnected        ReasonForSending = 14
	TransferInitRequest       ReasonForSending = 15
	ArrivalAtDestination      ReasonForSending = 16
	ArrivalAtLocation         ReasonForSending = 17
	ApproachingLocation       ReasonForSending = 18
	SDSType1Entered           ReasonForSending = 19
	UserApplicationInitiated  ReasonForSending = 20
	ImmediateLocationResponse ReasonForSending = 32
	MaximumReportingInterval  ReasonForSending = 129
	MaximumReportingDistance  ReasonForSending = 130

	// DMOOff is reported as system access, the radio went back to trunked mode.
	DMOOff = SystemAccess
)

var reasonForSendingNames = map[ReasonForSending]string{
	PowerOn:                   "power on",
	PowerOff:                  "power off",
	EmergencyCondition:        "emergency condition",
	PushToTalk:                "push to talk",
	StatusReason:              "status",
	TransmitInhibitOn:         "transmit inhibit mode on",
	TransmitInhibitOff:        "transmit inhibit mode off",
	SystemAccess:              "system access (DMO off)",
	DMOOn:                     "DMO on",
	EnterService:              "enter service",
	ServiceLoss:               "service loss",
	CellReselection:           "cell reselection",
	LowBattery:                "low battery",
	CarKitConnected:           "car kit connected",
	CarKitDisconnected:        "car kit disconnected",
	TransferInitRequest:       "transfer initialization requested",
	ArrivalAtDestination:      "arrival at destination",
	ArrivalAtLocation:         "arrival at defined location",
	ApproachingLocation:       "approaching defined location",
	SDSType1Entered:           "SDS type-1 entered",
	UserApplicationInitiated:  "user application initiated",
	ImmediateLocationResponse: "response to immediate location request",
	MaximumReportingInterval:  "maximum reporting interval exceeded",
	MaximumReportingDistance:  "maximum reporting distance travelled",
}

func (r ReasonForSending) String() string {
	if name, ok := reasonForSendingNames[r]; ok {
		return name
	}
	return "unknown"
}

func fixedPoint(degrees float64, scale float64, bits uint) uint32 {
	limit := float64(int32(1)<<(bits-1)) - 1
	steps := math.Round(degrees * float64(int32(1)<<bits) / scale)
	steps = math.Max(-limit-1, math.Min(limit, steps))
	return uint32(int32(steps))
}

func signed(value uint32, bits uint) int32 {
	if value&(1<<(bits-1)) != 0 {
		return int32(value) - int32(1<<bits)
	}
	return int32(value)
}

type bitReader struct {
	bytes []byte
	pos   uint
}

func (r *bitReader) read(bits uint) uint32 {
	var result uint32
	for range bits {
		bit := (r.bytes[r.pos/8] >> (7 - r.pos%8)) & 0x01
		result = result<<1 | uint32(bit)
		r.pos++
	}
	return result
}

type bitWriter struct {
	bytes []byte
	pos   uint
}

func (w *bitWriter) write(value uint32, bits uint) {
	for i := int(bits) - 1; i >= 0; i-- {
		if w.pos%8 == 0 {
			w.bytes = append(w.bytes, 0)
		}
		bit := byte(value>>uint(i)) & 0x01
		w.bytes[len(w.bytes)-1] |= bit << (7 - w.pos%8)
		w.pos++
	}
}
