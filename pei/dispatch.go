package pei

import (
	"strconv"

	"github.com/kikosgc/svxlink/aprs"
	"github.com/kikosgc/svxlink/ctrl"
	"github.com/kikosgc/svxlink/sds"
)

// handleLine processes one line received from the radio.
func (s *Session) handleLine(line string) {
	if tracer, ok := s.link.(rxTracer); ok {
		tracer.TraceRx(line)
	}
	s.log.Debugf("from PEI: %s", line)
	s.commandTimer.Stop()
	s.activityTimer.Reset(s.cfg.Timers.Activity)

	header := s.header
	s.header = nil
	if header != nil {
		kind := s.classifier.Classify(line, Unknown)
		if kind.IsSDS() || kind == Unknown {
			s.handleSDS(*header, kind, line)
			return
		}
		s.log.Warnf("SDS header without user data: %s -> %+v", line, *header)
	}

	kind := s.classifier.Classify(line, s.health)
	if kind.IsSDS() {
		s.log.Warnf("SDS user data without header, ignoring: %s", line)
		return
	}

	switch kind {
	case OK:
		s.health = OK
		if !s.inTransmission {
			s.drain()
		}
	case Error:
		s.handleError(line)
	case SubscriberNumberFormat:
		s.handleSubscriberNumber(line)
	case SubscriberNumber:
		s.log.Infof("subscriber number: %s", line)
	case CallBegin:
		s.handleCallBegin(line)
	case TransmissionCeased:
		s.handleTransmissionCeased()
	case CallReleased:
		s.handleCallReleased(line)
	case SDSHeader:
		s.handleSDSHeader(line)
	case SendConfirmation:
		s.handleSendConfirmation(line)
	case TxGrant:
		s.handleTxGrant()
	case OperatingMode:
		s.handleOperatingMode(line)
	case GroupSet:
		s.handleGroupSet(line)
	case GatewayReport:
		s.handleGatewayReport(line)
	case AudioLevel:
		s.handleAudioLevel(line)
	case CallConnect, TxDemand, TxInterrupt, TxWait, Timeout:
	default:
		s.log.Warnf("PEI answer not handled: %s", line)
	}

	if s.phase == Init && (kind == OK || kind == Error) {
		s.initPei()
	}
}

func (s *Session) handleError(line string) {
	s.health = Error
	code, ok := ctrl.ParseError(line)
	if !ok {
		s.log.Warn("PEI reported an error")
	} else {
		s.log.Errorf("PEI error %d: %s", code, code)
		s.emit("pei_error", int(code))
	}

	if rejected := s.queue.Reject(); rejected != nil {
		s.log.Warnf("radio refused SDS #%d to %s, will send it again", rejected.ID, rejected.TSI)
	}
}

func (s *Session) handleSubscriberNumber(line string) {
	number, err := ctrl.ParseSubscriberNumber(line)
	if err != nil {
		s.log.Warnf("invalid subscriber number: %v", err)
	} else {
		s.log.Infof("number type is %d (%s)", number.Type, number.Type)
		issi, _ := strconv.Atoi(s.cfg.ISSI)
		for _, mismatch := range number.Mismatches(int(s.cfg.MCC), int(s.cfg.MNC), issi) {
			s.log.Errorf("wrong identity in the radio, will not work: %s", mismatch)
		}
	}
	s.phase = InitComplete
}

// handleCallBegin processes +CTICN. Users who are unknown are welcomed, but their call is not tracked.
func (s *Session) handleCallBegin(line string) {
	info, err := ctrl.ParseCallInfo(line)
	if err != nil {
		s.log.Warnf("no valid call begin: %v", err)
		return
	}

	s.setSquelch(true)
	s.fire(callBegin)
	s.calls[info.CallingISSI] = info

	tsi := s.addressing.TSI(info.CallingIdentity)
	user, created := s.users.Ensure(tsi)
	if created {
		s.welcomeNewUser(tsi)
		return
	}

	now := s.now()
	user.LastActivity = now
	s.qso.TSI = tsi
	s.qso.Start = now
	if s.qso.Join(user.Call) {
		s.publish(QsoTopic, []qsoRecord{{
			Source:       s.cfg.Callsign,
			Call:         user.Call,
			TSI:          tsi,
			LastActivity: unixString(now),
		}})
	}

	s.emit("groupcall_begin", info.CallingISSI, info.CalledISSI)
	s.relayTo(user.Call, aprs.GroupCall(user.Call, info.CallingISSI, info.CalledISSI))
}

type qsoRecord struct {
	Source       string `json:"source"`
	Call         string `json:"call"`
	TSI          string `json:"tsi"`
	LastActivity string `json:"last_activity"`
}

func (s *Session) handleTxGrant() {
	s.setSquelch(true)
	s.fire(callGrant)
	s.emit("tx_grant")
}

func (s *Session) handleTransmissionCeased() {
	s.setSquelch(false)
	s.fire(callCease)
	s.emit("groupcall_end")
}

// handleCallReleased processes +CTCR. An open squelch means the radio lost the call while receiving.
func (s *Session) handleCallReleased(line string) {
	s.qso.Stop = s.now()
	s.fire(callRelease)

	release, err := ctrl.ParseCallRelease(line)
	if err != nil {
		s.log.Warnf("call release without cause: %v", err)
	}
	if s.squelchOpen {
		s.setSquelch(false)
		s.emit("out_of_range", int(release.Cause))
	} else {
		s.emit("call_end", quoted(release.Cause.String()))
	}

	s.relayTo(s.users.Call(s.qso.TSI), aprs.QsoEnded(s.qso.Members))

	s.talkgroupUp = false
	s.qso.Members = nil
	s.inTransmission = false
	s.drain()
}

// keyDown sets up a group call to the configured GSSI, or asks for the floor if the group call is up already.
func (s *Session) keyDown() {
	s.transmitting = true
	if s.talkgroupUp {
		s.send(ctrl.DemandTransmission)
		return
	}

	s.inTransmission = true
	for _, command := range ctrl.SetupGroupCall(s.cfg.GSSI) {
		s.send(command)
	}
	s.emit("init_group_call", s.cfg.GSSI)
	s.talkgroupUp = true
}

func (s *Session) keyUp() {
	s.transmitting = false
	s.send(ctrl.CeaseTransmission)
}

func (s *Session) handleOperatingMode(line string) {
	mode, err := ctrl.ParseOperatingMode(line)
	if err != nil {
		s.log.Warnf("invalid operating mode: %v", err)
		return
	}
	s.operatingMode = mode
	s.log.Infof("new TETRA mode: %s", mode)
	s.emit("tetra_mode", int(mode))
}

func (s *Session) handleGroupSet(line string) {
	talkgroup, err := ctrl.ParseTalkgroup(line)
	if err != nil {
		s.log.Warnf("invalid group set: %v", err)
		return
	}
	s.talkgroup = talkgroup
	s.log.Infof("talkgroup set to %s", talkgroup)
}

func (s *Session) handleGatewayReport(line string) {
	report, err := ctrl.ParseGatewayReport(line)
	if err != nil {
		s.log.Warnf("invalid gateway report: %v", err)
		return
	}
	s.gateways[report.ISSI] = report
	s.log.Infof("station %s detected (ISSI=%d, MNI=%s, state=%d)", report.Type, report.ISSI, report.MNI, report.State)
	s.emit("dmo_gw_rpt", int(report.Type), report.ISSI, report.MNI, report.State)
}

func (s *Session) handleAudioLevel(line string) {
	level, err := ctrl.ParseAudioLevel(line)
	if err != nil {
		s.log.Warnf("invalid audio level: %v", err)
		return
	}
	s.emit("audio_level", level)
}

// handleSDSHeader remembers the header, the user data follows with the next line.
func (s *Session) handleSDSHeader(line string) {
	header, err := sds.ParseHeader(line)
	if err != nil {
		s.log.Warnf("invalid SDS header: %v", err)
		return
	}
	s.header = &header
}

func (s *Session) handleSendConfirmation(line string) {
	report, err := sds.ParseSendReport(line)
	if err != nil {
		s.log.Warnf("invalid send report: %v", err)
		return
	}

	entry := s.queue.Confirm(report)
	switch {
	case entry == nil:
		s.log.Debugf("no SDS matches %s", line)
	case !report.HasStatus:
		s.log.Debugf("SDS #%d has instance %d", entry.ID, report.Instance)
	case report.Status == sds.SendFailed:
		s.log.Errorf("sending SDS #%d to %s failed, will send it again", entry.ID, entry.TSI)
	case report.Status == sds.SendOK:
		s.log.Infof("SDS #%d to %s sent", entry.ID, entry.TSI)
	}
	s.drain()
}
