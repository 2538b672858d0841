/*
Package pei runs the session with a TETRA radio attached over its peripheral equipment interface (PEI).

The session owns all state: the user directory, the call information, the current QSO and the SDS queue.
Received bytes, timer expiries and requests from other goroutines are processed one after the other in
the session loop, see [Session.Run].
*/
package pei

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"

	"github.com/kikosgc/svxlink/aprs"
	"github.com/kikosgc/svxlink/com"
	"github.com/kikosgc/svxlink/config"
	"github.com/kikosgc/svxlink/ctrl"
	"github.com/kikosgc/svxlink/directory"
	"github.com/kikosgc/svxlink/inject"
	"github.com/kikosgc/svxlink/sds"
	"github.com/kikosgc/svxlink/tetra"
)

// Topics on the directory sync feed, besides directory.UsersTopic.
const (
	QsoTopic = "QsoInfo:state"
	SDSTopic = "Sds:info"
)

// ErrLinkClosed is returned by Run when the input from the radio ends.
var ErrLinkClosed = errors.New("PEI link closed")

// Phase of the PEI initialization.
type Phase int

const (
	AwaitingCommand Phase = iota
	Init
	InitComplete
	CheckLink
)

var phaseNames = []string{"AWAITING_COMMAND", "INIT", "INIT_COMPLETE", "CHECK_LINK"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return strconv.Itoa(int(p))
}

// Link writes commands to the radio, see com.Link.
type Link interface {
	Send(command string) error
	Break() error
}

type rxTracer interface {
	TraceRx(line string)
}

// New returns a session for the given configuration, which must be validated already.
func New(cfg *config.Config, link Link, collaborators Collaborators, log logrus.FieldLogger) (*Session, error) {
	classifier := NewClassifier()
	if cfg.RegistrationPattern != "" {
		if err := classifier.Append(cfg.RegistrationPattern, RegistrationSDS); err != nil {
			return nil, err
		}
	}

	icon := cfg.Icon()
	users := directory.New(icon)
	for _, u := range cfg.Users {
		userIcon, err := directory.ParseIcon(u.Icon)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Call, err)
		}
		users.Add(directory.User{
			TSI:     u.TSI,
			Call:    u.Call,
			Name:    u.Name,
			Icon:    userIcon,
			Comment: u.Comment,
		})
	}

	aprsPath := cfg.APRSPath
	if aprsPath == "" {
		aprsPath = aprs.DefaultPath(cfg.Callsign)
	}

	collaborators = collaborators.withDefaults()
	result := &Session{
		cfg:         cfg,
		log:         log,
		link:        link,
		events:      collaborators.Events,
		squelch:     collaborators.Squelch,
		relay:       collaborators.Relay,
		publisher:   collaborators.Publisher,
		dtmf:        collaborators.DTMF,
		addressing:  cfg.Addressing(),
		ownTSI:      cfg.OwnTSI(),
		aprsPath:    aprsPath,
		classifier:  classifier,
		parser:      sds.NewParser(),
		queue:       sds.NewQueue(sds.DefaultRetention),
		users:       users,
		calls:       make(map[int]ctrl.CallInfo),
		gateways:    make(map[int]ctrl.GatewayReport),
		call:        newCallMachine(log),
		health:      Timeout,
		phase:       AwaitingCommand,
		pendingInit: cfg.Init(),
		requests:    make(chan func(), 16),
		done:        make(chan struct{}),
		ctx:         context.Background(),
		now:         time.Now,
	}
	result.activityTimer = stoppedTimer()
	result.commandTimer = stoppedTimer()
	result.breakTimer = stoppedTimer()

	return result, nil
}

func stoppedTimer() *time.Timer {
	result := time.NewTimer(time.Hour)
	result.Stop()
	return result
}

// Session with a TETRA radio.
type Session struct {
	cfg       *config.Config
	log       logrus.FieldLogger
	link      Link
	events    EventHandler
	squelch   Squelch
	relay     Relay
	publisher Publisher
	dtmf      DTMFInjector

	addressing tetra.Addressing
	ownTSI     string
	aprsPath   string
	classifier *Classifier
	parser     *sds.Parser
	queue      *sds.Queue
	users      *directory.Directory
	calls      map[int]ctrl.CallInfo
	gateways   map[int]ctrl.GatewayReport
	qso        Qso
	call       *fsm.FSM

	health      Kind
	phase       Phase
	pendingInit []string
	header      *sds.Header

	squelchOpen    bool
	transmitting   bool
	inTransmission bool
	talkgroupUp    bool
	talkgroup      string
	operatingMode  ctrl.AIMode
	reference      sds.MessageReference
	unknownSDS     int

	activityTimer *time.Timer
	commandTimer  *time.Timer
	breakTimer    *time.Timer

	requests chan func()
	done     chan struct{}
	ctx      context.Context
	now      func() time.Time
}

// Run starts the initialization of the radio and processes the input from the radio until the context is
// cancelled or the input ends. The configured end command is sent when the context is cancelled.
func (s *Session) Run(ctx context.Context, input <-chan []byte) error {
	s.ctx = ctx
	defer close(s.done)
	defer s.stopTimers()

	framer := com.NewFramer(s.handleLine)
	s.start()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case chunk, ok := <-input:
			if !ok {
				return ErrLinkClosed
			}
			framer.Write(chunk)
		case <-s.activityTimer.C:
			s.onActivityTimeout()
		case <-s.commandTimer.C:
			s.onCommandTimeout()
		case <-s.breakTimer.C:
			s.onBreakTimeout()
		case request := <-s.requests:
			request()
		}
	}
}

// do hands the request over to the session loop. It returns false if the session loop has ended.
func (s *Session) do(request func()) bool {
	select {
	case s.requests <- request:
		return true
	case <-s.done:
		return false
	}
}

// TransmitterStateChanged is called by the audio path when the local transmitter is keyed or released.
func (s *Session) TransmitterStateChanged(transmitting bool) {
	s.do(func() {
		if transmitting {
			s.keyDown()
		} else {
			s.keyUp()
		}
	})
}

// Inject queues a message received on the local injection channel.
func (s *Session) Inject(line string) error {
	record, err := inject.ParseRecord(line)
	if err != nil {
		return err
	}
	s.do(func() {
		s.inject(record)
	})
	return nil
}

// Page queues a message received from the pager gateway.
func (s *Session) Page(tsi string, message string) {
	s.do(func() {
		s.page(tsi, message)
	})
}

// Receive handles a message from the directory sync feed.
func (s *Session) Receive(topic string, payload []byte) {
	s.do(func() {
		s.receive(topic, payload)
	})
}

func (s *Session) start() {
	s.log.Info("starting PEI session")
	if err := s.link.Break(); err != nil {
		s.log.Errorf("cannot send break: %v", err)
	}
	s.commandTimer.Reset(s.cfg.Timers.Command)
	s.activityTimer.Reset(s.cfg.Timers.Activity)

	s.phase = AwaitingCommand
	s.initPei()
	s.emit("startup")
}

func (s *Session) shutdown() {
	if s.cfg.EndCommand != "" {
		s.send(s.cfg.EndCommand)
	}
	s.log.Info("PEI session stopped")
}

func (s *Session) stopTimers() {
	s.activityTimer.Stop()
	s.commandTimer.Stop()
	s.breakTimer.Stop()
}

// initPei sends the next init command. When all init commands are sent, it finishes the initialization.
func (s *Session) initPei() {
	if s.phase == AwaitingCommand {
		s.breakTimer.Reset(s.cfg.Timers.Break)
	}
	if len(s.pendingInit) > 0 {
		command := s.pendingInit[0]
		s.pendingInit = s.pendingInit[1:]
		s.send(command)
		return
	}
	if s.phase != Init {
		return
	}

	s.send(ctrl.RequestSubscriberNumberFormat)
	s.emit("pei_init_finished")
	s.publishUsers()
	s.phase = InitComplete
	s.log.Info("PEI initialization finished")
}

func (s *Session) onActivityTimeout() {
	s.send(ctrl.Probe)
	s.phase = CheckLink
	s.activityTimer.Reset(s.cfg.Timers.Activity)
}

func (s *Session) onCommandTimeout() {
	s.log.Warn("PEI did not answer in time")
	s.emit("peiCom_timeout")
	s.health = Timeout
}

func (s *Session) onBreakTimeout() {
	s.phase = Init
	s.initPei()
}

// send writes the command to the radio and restarts the command timeout.
func (s *Session) send(command string) error {
	s.log.Debugf("to PEI: %q", command)
	err := s.link.Send(command)
	if err != nil {
		s.log.Errorf("cannot send %q: %v", command, err)
	}
	s.commandTimer.Reset(s.cfg.Timers.Command)
	return err
}

func (s *Session) emit(name string, args ...any) {
	s.emitEvent(newEvent(name, args...))
}

func (s *Session) publish(topic string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.log.Errorf("cannot encode %s: %v", topic, err)
		return
	}
	s.publisher.Publish(topic, payload)
}

func (s *Session) publishUsers() {
	payload, err := s.users.Export()
	if err != nil {
		s.log.Errorf("cannot encode %s: %v", directory.UsersTopic, err)
		return
	}
	s.publisher.Publish(directory.UsersTopic, payload)
}

func (s *Session) receive(topic string, payload []byte) {
	if topic != directory.UsersTopic {
		return
	}
	n, err := s.users.Merge(payload, s.addressing.TSI)
	if err != nil {
		s.log.Errorf("cannot merge users: %v", err)
		return
	}
	s.log.Infof("merged %d users from the directory sync feed", n)
}

// relayTo sends the given APRS info field on behalf of the given callsign. Nothing is sent without callsign.
func (s *Session) relayTo(call string, info string) {
	if call == "" || info == "" {
		return
	}
	message := s.aprsPath + info
	s.log.Debugf("to APRS: %s", message)
	s.relay.Relay(call, message)
}

func (s *Session) setSquelch(open bool) {
	if s.transmitting {
		return
	}
	s.squelchOpen = open
	s.squelch.SetSquelch(open)
}

func (s *Session) fire(event string) {
	err := s.call.Event(s.ctx, event)
	if err == nil {
		return
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return
	}
	s.log.Debugf("call event %s ignored: %v", event, err)
}
