package sds

import (
	"fmt"
	"time"
)

// DefaultRetention is the time after which a sent message is dropped from the queue, confirmed or not.
const DefaultRetention = time.Hour

// Direction of a queued message.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// Type of a queued message.
type Type int

const (
	TextType Type = iota
	RawType
	AckType
	StateType
	LocationType
	SimpleTextType
	RegistrationType
	UnknownType
)

var typeNames = []string{"text", "raw", "ack", "state", "location", "simple_text", "registration", "unknown"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Entry is one message in the queue.
type Entry struct {
	ID          int
	Direction   Direction
	Type        Type
	TSI         string
	Payload     string
	Reference   MessageReference
	Instance    int
	Retries     int
	FirstSentAt time.Time
	SentAt      time.Time
	ConfirmedAt time.Time
	Remark      string
}

// Sent indicates if this entry was handed to the radio and is not to be sent again.
func (e *Entry) Sent() bool {
	return !e.SentAt.IsZero()
}

// Command returns the AT command sequence that sends this entry.
func (e *Entry) Command() (string, error) {
	switch e.Type {
	case TextType:
		return SendSDSTL(e.TSI, NewTextTransfer(e.Reference, e.Payload)), nil
	case RawType:
		if _, err := ParseRawPDU(e.Payload); err != nil {
			return "", err
		}
		return SendSDSTL(e.TSI, RawPDU(e.Payload)), nil
	case AckType:
		return SendSDSTL(e.TSI, NewReceiptReport(e.Reference)), nil
	case StateType:
		status, err := ParseStatus(e.Payload)
		if err != nil {
			return "", err
		}
		return SendStatus(e.TSI, status), nil
	case SimpleTextType:
		return SendSDSTL(e.TSI, NewSimpleTextMessage(e.Payload)), nil
	default:
		return "", fmt.Errorf("%s messages cannot be sent", e.Type)
	}
}

// DrainResult tells what a drain did.
type DrainResult int

const (
	// Idle means there was nothing to send.
	Idle DrainResult = iota
	// Deferred means there is something to send, but the radio is not ready.
	Deferred
	// Sent means one message was handed to the radio.
	Sent
)

// SendFunc hands the given entry to the radio.
type SendFunc func(*Entry) error

// Queue holds outgoing and incoming messages. Only one outgoing message may wait for the
// radio's confirmation at a time.
type Queue struct {
	entries   []*Entry
	nextID    int
	awaiting  bool
	pending   *Entry
	retention time.Duration
	now       func() time.Time
}

// NewQueue returns an empty queue that drops sent messages after the given retention.
func NewQueue(retention time.Duration) *Queue {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Queue{
		retention: retention,
		now:       time.Now,
	}
}

// Enqueue appends a copy of the given entry. The returned entry is owned by the queue.
func (q *Queue) Enqueue(entry Entry) *Entry {
	q.nextID++
	e := entry
	e.ID = q.nextID
	e.Instance = -1
	e.Retries = 0
	e.FirstSentAt = time.Time{}
	e.SentAt = time.Time{}
	q.entries = append(q.entries, &e)
	return &e
}

// Drain purges expired messages and hands the first unsent outgoing message to the radio, if the radio is
// ready and no other message awaits confirmation.
func (q *Queue) Drain(ready bool, send SendFunc) (DrainResult, error) {
	now := q.now()
	q.purge(now)

	next := q.nextUnsent()
	if next == nil {
		return Idle, nil
	}
	if !ready || q.awaiting {
		return Deferred, nil
	}

	if err := send(next); err != nil {
		return Deferred, err
	}
	next.Retries++
	next.SentAt = now
	if next.FirstSentAt.IsZero() {
		next.FirstSentAt = now
	}
	next.Instance = -1
	q.awaiting = true
	q.pending = next
	return Sent, nil
}

func (q *Queue) purge(now time.Time) {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !e.FirstSentAt.IsZero() && now.Sub(e.FirstSentAt) > q.retention {
			if e == q.pending {
				q.pending = nil
			}
			continue
		}
		kept = append(kept, e)
	}
	clear(q.entries[len(kept):])
	q.entries = kept
}

func (q *Queue) nextUnsent() *Entry {
	for _, e := range q.entries {
		if e.Direction == Outgoing && !e.Sent() {
			return e
		}
	}
	return nil
}

// Confirm processes a +CMGS report from the radio. A report without status binds its instance to the
// pending message. A report with status belongs to the pending message if its instance matches or is not
// bound yet, otherwise to the unconfirmed sent message with the same instance. A failed delivery makes
// the message eligible for the next drain. The confirmation latch is always released,
// even if no message matches.
func (q *Queue) Confirm(report SendReport) *Entry {
	defer func() {
		q.awaiting = false
	}()

	if !report.HasStatus {
		if q.pending != nil {
			q.pending.Instance = report.Instance
		}
		return q.pending
	}

	var matching *Entry
	if q.pending != nil && (q.pending.Instance == report.Instance || q.pending.Instance < 0) {
		matching = q.pending
	} else {
		matching = q.findSent(report.Instance)
	}
	if matching == nil {
		return nil
	}

	switch report.Status {
	case SendFailed:
		matching.SentAt = time.Time{}
		matching.ConfirmedAt = time.Time{}
	case SendOK:
		matching.ConfirmedAt = q.now()
	}
	if matching == q.pending {
		q.pending = nil
	}
	return matching
}

func (q *Queue) findSent(instance int) *Entry {
	for i := len(q.entries) - 1; i >= 0; i-- {
		e := q.entries[i]
		if e.Direction == Outgoing && e.Sent() && e.ConfirmedAt.IsZero() && e.Instance == instance {
			return e
		}
	}
	return nil
}

// Reject releases the latch after the radio refused the last send command. The pending message is sent again with the next drain.
func (q *Queue) Reject() *Entry {
	if !q.awaiting || q.pending == nil || q.pending.Instance >= 0 {
		return nil
	}
	rejected := q.pending
	rejected.SentAt = time.Time{}
	q.pending = nil
	q.awaiting = false
	return rejected
}

// Acknowledge marks the latest sent message to the given TSI with the given reference as delivered.
func (q *Queue) Acknowledge(tsi string, reference MessageReference) *Entry {
	for i := len(q.entries) - 1; i >= 0; i-- {
		e := q.entries[i]
		if e.Direction == Outgoing && e.Sent() && e.TSI == tsi && e.Reference == reference && e.Type == TextType {
			e.ConfirmedAt = q.now()
			return e
		}
	}
	return nil
}

// Awaiting indicates if a sent message waits for the radio's confirmation.
func (q *Queue) Awaiting() bool {
	return q.awaiting
}

// Pending returns the message that was sent last and is not confirmed yet.
func (q *Queue) Pending() *Entry {
	return q.pending
}

// Len returns the number of messages in the queue.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns the messages in the queue in insertion order.
func (q *Queue) Entries() []*Entry {
	return append([]*Entry(nil), q.entries...)
}
