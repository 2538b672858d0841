package pei

import (
	"context"
	"slices"
	"time"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

// The states of a group call.
const (
	StateIdle                = "idle"
	StateCallActive          = "call_active"
	StateTransmissionGranted = "transmission_granted"
	StateReleased            = "released"
)

const (
	callBegin   = "begin"
	callGrant   = "grant"
	callCease   = "cease"
	callRelease = "release"
)

var allCallStates = []string{StateIdle, StateCallActive, StateTransmissionGranted, StateReleased}

func newCallMachine(log logrus.FieldLogger) *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: callBegin, Src: allCallStates, Dst: StateCallActive},
			{Name: callGrant, Src: allCallStates, Dst: StateTransmissionGranted},
			{Name: callCease, Src: []string{StateTransmissionGranted}, Dst: StateCallActive},
			{Name: callRelease, Src: allCallStates, Dst: StateReleased},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debugf("call %s: %s -> %s", e.Event, e.Src, e.Dst)
			},
		},
	)
}

// Qso is the current group call and the callsigns of all users who spoke in it.
type Qso struct {
	TSI     string
	Start   time.Time
	Stop    time.Time
	Members []string
}

// Join adds the given callsign to the members. It returns false if the callsign is already a member.
func (q *Qso) Join(call string) bool {
	if slices.Contains(q.Members, call) {
		return false
	}
	q.Members = append(q.Members, call)
	return true
}
