package pei

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kikosgc/svxlink/aprs"
	"github.com/kikosgc/svxlink/config"
	"github.com/kikosgc/svxlink/directory"
	"github.com/kikosgc/svxlink/inject"
	"github.com/kikosgc/svxlink/sds"
)

// Remarks of the generated messages, they show up in the logs.
const (
	remarkWelcomeNewUser = "Welcome Sds to newuser"
	remarkWelcome        = "welcome sds"
	remarkInfo           = "InfoSds"
	remarkConfirmation   = "confirmation Sds"
	remarkInjected       = "injected Sds"
	remarkPager          = "DAPNET message"

	genericAck = "OK"

	// noReason marks location reports that carry user defined data instead of a reason for sending.
	noReason sds.ReasonForSending = 0xFF
)

var sdsTypes = map[Kind]sds.Type{
	SimpleTextSDS:   sds.SimpleTextType,
	LocationSDS:     sds.LocationType,
	TextSDS:         sds.TextType,
	AckSDS:          sds.AckType,
	StateSDS:        sds.StateType,
	RegistrationSDS: sds.RegistrationType,
}

func sdsType(kind Kind) sds.Type {
	if t, ok := sdsTypes[kind]; ok {
		return t
	}
	return sds.UnknownType
}

// sdsSummary is published on the directory sync feed for every received SDS.
type sdsSummary struct {
	LastActivity     string   `json:"last_activity"`
	TSI              string   `json:"tsi"`
	Type             string   `json:"type"`
	Source           string   `json:"source"`
	Latitude         *float64 `json:"lat,omitempty"`
	Longitude        *float64 `json:"lon,omitempty"`
	ReasonForSending *int     `json:"reasonforsending,omitempty"`
	MGRS             string   `json:"mgrs,omitempty"`
	State            *int     `json:"state,omitempty"`
	Text             string   `json:"text,omitempty"`
}

// handleSDS processes the user data of a received SDS. SDS from unknown users are not processed, the user is welcomed instead.
func (s *Session) handleSDS(header sds.Header, kind Kind, line string) {
	if header.Source == "" {
		s.log.Warnf("SDS without calling party, ignoring: %s", line)
		return
	}
	tsi := s.addressing.TSI(header.Source)
	user, created := s.users.Ensure(tsi)
	if created {
		s.welcomeNewUser(tsi)
		return
	}
	now := s.now()
	user.LastActivity = now
	if header.PDUBits > 0 && len(line)/2 != header.PDUBytes() {
		s.log.Debugf("got %d PDU bytes from %s, header announced %d", len(line)/2, tsi, header.PDUBytes())
	}

	summary := sdsSummary{
		LastActivity: unixString(now),
		TSI:          tsi,
		Type:         sdsType(kind).String(),
		Source:       s.cfg.Callsign,
	}
	var info string
	var event Event

	switch kind {
	case LocationSDS:
		report, ok := parsePayload[sds.LocationReport](s, line)
		if !ok {
			return
		}
		info, event = s.handleLocation(user, report, &summary)
	case StateSDS:
		status, err := sds.ParseStatus(line)
		if err != nil {
			s.log.Warnf("invalid state SDS from %s: %v", tsi, err)
			return
		}
		info, event = s.handleState(user, status, &summary)
	case TextSDS:
		transfer, ok := parsePayload[sds.SDSTransfer](s, line)
		if !ok {
			return
		}
		text := transfer.UserData.Text
		summary.Text = text
		info = aprs.Status(text)
		event = newEvent("text_sds_received", tsi, quoted(text))
		s.enqueue(sds.Entry{
			Type:      sds.AckType,
			TSI:       tsi,
			Reference: transfer.MessageReference,
			Remark:    remarkConfirmation,
		})
	case SimpleTextSDS:
		message, ok := parsePayload[sds.SimpleTextMessage](s, line)
		if !ok {
			return
		}
		summary.Text = message.Text
		info = aprs.Status(message.Text)
		event = newEvent("text_sds_received", tsi, quoted(message.Text))
		s.acknowledge(tsi)
	case AckSDS:
		report, ok := parsePayload[sds.SDSReport](s, line)
		if !ok {
			return
		}
		if acknowledged := s.queue.Acknowledge(tsi, report.MessageReference); acknowledged != nil {
			s.log.Infof("SDS #%d to %s was received", acknowledged.ID, tsi)
		}
		info = aprs.Status("ACK")
		event = newEvent("sds_received_ack", tsi)
	case RegistrationSDS:
		event = newEvent("register_tsi", tsi)
		s.acknowledge(tsi)
	default:
		s.unknownSDS++
		s.log.Warnf("unknown type of SDS from %s (%d so far): %s", tsi, s.unknownSDS, line)
		event = newEvent("unknown_sds_received")
	}

	s.relayTo(user.Call, info)
	s.emitEvent(event)
	s.publish(SDSTopic, []sdsSummary{summary})
}

func parsePayload[T any](s *Session, line string) (T, bool) {
	var result T
	payload, err := s.parser.ParsePayload(line)
	if err != nil {
		s.log.Warnf("cannot decode SDS %s: %v", line, err)
		return result, false
	}
	result, ok := payload.(T)
	if !ok {
		s.log.Warnf("SDS %s is not a %T but a %T", line, result, payload)
		return result, false
	}
	return result, true
}

func (s *Session) handleLocation(user *directory.User, report sds.LocationReport, summary *sdsSummary) (string, Event) {
	reason := report.ReasonForSending
	if report.UserDefinedData {
		reason = noReason
	} else {
		user.ReasonForSending = reason
		r := int(reason)
		summary.ReasonForSending = &r
	}
	user.Latitude = report.Latitude
	user.Longitude = report.Longitude
	summary.Latitude = &report.Latitude
	summary.Longitude = &report.Longitude
	if grid, err := aprs.MGRS(report.Latitude, report.Longitude); err == nil {
		summary.MGRS = grid
	}

	s.welcome(user.TSI, reason)
	s.broadcastInfo(user, reason)

	distance := aprs.Distance(s.cfg.Latitude, s.cfg.Longitude, report.Latitude, report.Longitude)
	bearing := aprs.Bearing(s.cfg.Latitude, s.cfg.Longitude, report.Latitude, report.Longitude)
	s.emit("distance_rpt_ms", user.TSI, oneDecimal(distance), oneDecimal(bearing))

	info := aprs.Position(report.Latitude, report.Longitude, user.Icon.Sym, user.Icon.Tab, user.Name, user.Comment)
	event := newEvent("lip_sds_received", user.TSI, coordinate(report.Latitude), coordinate(report.Longitude))
	return info, event
}

// handleState triggers the configured command and macro for the received state, both may fire.
func (s *Session) handleState(user *directory.User, status sds.Status, summary *sdsSummary) (string, Event) {
	state := uint16(status)
	s.log.Infof("state SDS %d from %s", state, user.TSI)

	if command, ok := s.cfg.StateCommands[state]; ok {
		s.dtmf.InjectDTMF(command + "#")
	}
	text, hasMacro := s.cfg.StateTexts[state]
	if hasMacro {
		s.dtmf.InjectDTMF(fmt.Sprintf("D%d#", state))
	}

	user.State = status
	n := int(state)
	summary.State = &n
	return aprs.State(text, state), newEvent("state_sds_received", user.TSI, state)
}

func (s *Session) welcomeNewUser(tsi string) {
	s.log.Infof("new user %s, sending info SDS %q", tsi, s.cfg.InfoSDS)
	s.enqueue(sds.Entry{
		Type:    sds.TextType,
		TSI:     tsi,
		Payload: s.cfg.InfoSDS,
		Remark:  remarkWelcomeNewUser,
	})
}

// welcome sends the welcome message configured for the given reason for sending.
func (s *Session) welcome(tsi string, reason sds.ReasonForSending) {
	message, ok := s.cfg.WelcomeMessages[int(reason)]
	if !ok || reason == noReason {
		return
	}
	s.enqueue(sds.Entry{
		Type:    sds.TextType,
		TSI:     tsi,
		Payload: message,
		Remark:  remarkWelcome,
	})
}

// broadcastInfo tells all other users about the state change of the sender. Each user is notified at most once
// within the configured time between SDS.
func (s *Session) broadcastInfo(sender *directory.User, reason sds.ReasonForSending) {
	now := s.now()
	for _, other := range s.users.Others(sender.TSI, s.ownTSI) {
		if now.Sub(other.SentLastSDS) < s.cfg.TimeBetweenSDS {
			continue
		}

		distance := aprs.Distance(sender.Latitude, sender.Longitude, other.Latitude, other.Longitude)
		bearing := aprs.Bearing(sender.Latitude, sender.Longitude, other.Latitude, other.Longitude)

		var message string
		switch {
		case s.cfg.Broadcasts(config.BroadcastDMOOn) && reason == sds.DMOOn:
			message = "DMO=on"
			s.emit("dmo_on", other.TSI)
		case s.cfg.Broadcasts(config.BroadcastDMOOff) && reason == sds.DMOOff:
			message = "DMO=off"
			s.emit("dmo_off", other.TSI)
		case s.cfg.Broadcasts(config.BroadcastProximity) && distance <= s.cfg.ProximityWarning:
			message = fmt.Sprintf("Dist:%skm, Bear:%s°", oneDecimal(distance), oneDecimal(bearing))
			s.emit("proximity_info", other.TSI, oneDecimal(distance), oneDecimal(bearing))
		default:
			continue
		}

		s.enqueue(sds.Entry{
			Type:    sds.TextType,
			TSI:     other.TSI,
			Payload: sender.Call + " state change, " + message,
			Remark:  remarkInfo,
		})
		other.SentLastSDS = now
	}
}

// acknowledge sends the generic acknowledgement for SDS that carry no message reference.
func (s *Session) acknowledge(tsi string) {
	s.enqueue(sds.Entry{
		Type:    sds.TextType,
		TSI:     tsi,
		Payload: genericAck,
		Remark:  remarkConfirmation,
	})
}

func (s *Session) inject(record inject.Record) {
	tsi := s.addressing.TSI(record.TSI)
	if record.Raw {
		s.enqueue(sds.Entry{
			Type:    sds.RawType,
			TSI:     tsi,
			Payload: record.Payload,
			Remark:  remarkInjected,
		})
		return
	}
	s.enqueueText(tsi, record.Payload, remarkInjected)
}

func (s *Session) page(tsi string, message string) {
	s.log.Infof("new pager message for %s", tsi)
	s.enqueueText(s.addressing.TSI(tsi), message, remarkPager)
}

// enqueueText splits long texts into several SDS.
func (s *Session) enqueueText(tsi string, text string, remark string) {
	for _, part := range sds.SplitToMaxChars(s.cfg.MaxTextLength, text) {
		s.enqueue(sds.Entry{
			Type:    sds.TextType,
			TSI:     tsi,
			Payload: part,
			Remark:  remark,
		})
	}
}

// enqueue adds an outgoing SDS to the queue and tries to send it right away. Text messages get the next message reference.
func (s *Session) enqueue(entry sds.Entry) *sds.Entry {
	entry.Direction = sds.Outgoing
	if entry.Type == sds.TextType {
		s.reference++
		entry.Reference = s.reference
	}
	if _, err := entry.Command(); err != nil {
		s.log.Errorf("dropping %s SDS to %s: %v", entry.Type, entry.TSI, err)
		return nil
	}

	result := s.queue.Enqueue(entry)
	s.log.Debugf("queued %s SDS #%d to %s (%s)", result.Type, result.ID, result.TSI, result.Remark)
	s.drain()
	return result
}

// drain sends the next SDS if the radio is ready: the link is OK, the radio neither transmits nor receives,
// and no other SDS awaits its confirmation.
func (s *Session) drain() {
	ready := s.health == OK && !s.inTransmission && !s.squelchOpen
	result, err := s.queue.Drain(ready, s.sendSDS)
	switch {
	case err != nil:
		s.log.Errorf("cannot send SDS: %v", err)
	case result == sds.Deferred:
		s.log.Debug("radio not ready, sending SDS later")
	}
}

func (s *Session) sendSDS(entry *sds.Entry) error {
	command, err := entry.Command()
	if err != nil {
		return err
	}
	s.log.Infof("sending %s SDS #%d to %s %q, tries: %d", entry.Type, entry.ID, entry.TSI, entry.Payload, entry.Retries+1)
	return s.send(command)
}

func (s *Session) emitEvent(event Event) {
	if event.Name == "" {
		return
	}
	s.log.Debugf("event: %s", event)
	s.events.HandleEvent(event)
}

func newEvent(name string, args ...any) Event {
	result := Event{Name: name, Args: make([]string, len(args))}
	for i, arg := range args {
		result.Args[i] = fmt.Sprint(arg)
	}
	return result
}

func quoted(s string) string {
	return `"` + s + `"`
}

func oneDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

func coordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', 5, 64)
}

func unixString(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
