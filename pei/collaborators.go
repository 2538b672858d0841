package pei

import (
	"strings"
)

// Event is emitted to the event handler, e.g. a script that plays announcements.
type Event struct {
	Name string
	Args []string
}

// String returns the event as one line: the name followed by the arguments, separated by spaces.
func (e Event) String() string {
	if len(e.Args) == 0 {
		return e.Name
	}
	return e.Name + " " + strings.Join(e.Args, " ")
}

// EventHandler receives the events of the session.
type EventHandler interface {
	HandleEvent(Event)
}

type EventHandlerFunc func(Event)

func (f EventHandlerFunc) HandleEvent(e Event) {
	f(e)
}

// Squelch is the receive side of the audio path. It is opened while the radio receives a call.
type Squelch interface {
	SetSquelch(open bool)
}

type SquelchFunc func(bool)

func (f SquelchFunc) SetSquelch(open bool) {
	f(open)
}

// Relay forwards one line status or position messages of a user to the APRS network.
type Relay interface {
	Relay(call string, message string)
}

type RelayFunc func(string, string)

func (f RelayFunc) Relay(call string, message string) {
	f(call, message)
}

// Publisher sends JSON payloads to the directory sync feed.
type Publisher interface {
	Publish(topic string, payload []byte)
}

type PublisherFunc func(string, []byte)

func (f PublisherFunc) Publish(topic string, payload []byte) {
	f(topic, payload)
}

// DTMFInjector injects control digits as if they were received over the air.
type DTMFInjector interface {
	InjectDTMF(digits string)
}

type DTMFInjectorFunc func(string)

func (f DTMFInjectorFunc) InjectDTMF(digits string) {
	f(digits)
}

// Collaborators of the session. Missing collaborators are replaced with no-ops.
type Collaborators struct {
	Events    EventHandler
	Squelch   Squelch
	Relay     Relay
	Publisher Publisher
	DTMF      DTMFInjector
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Events == nil {
		c.Events = EventHandlerFunc(func(Event) {})
	}
	if c.Squelch == nil {
		c.Squelch = SquelchFunc(func(bool) {})
	}
	if c.Relay == nil {
		c.Relay = RelayFunc(func(string, string) {})
	}
	if c.Publisher == nil {
		c.Publisher = PublisherFunc(func(string, []byte) {})
	}
	if c.DTMF == nil {
		c.DTMF = DTMFInjectorFunc(func(string) {})
	}
	return c
}
