package sds

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestQueue() (*Queue, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)}
	queue := NewQueue(DefaultRetention)
	queue.now = clock.Now
	return queue, clock
}

type recordingSender struct {
	sent []*Entry
	err  error
}

func (s *recordingSender) Send(e *Entry) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, e)
	return nil
}

func TestQueue_DrainGating(t *testing.T) {
	tt := []struct {
		desc     string
		ready    bool
		awaiting bool
		empty    bool
		expected DrainResult
	}{
		{desc: "empty queue", ready: true, empty: true, expected: Idle},
		{desc: "radio not ready", ready: false, expected: Deferred},
		{desc: "awaiting confirmation", ready: true, awaiting: true, expected: Deferred},
		{desc: "ready", ready: true, expected: Sent},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			queue, _ := newTestQueue()
			if !tc.empty {
				queue.Enqueue(Entry{Type: TextType, TSI: "09011638300023404", Payload: "hello"})
			}
			queue.awaiting = tc.awaiting
			sender := &recordingSender{}

			actual, err := queue.Drain(tc.ready, sender.Send)

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
			if tc.expected == Sent {
				assert.Len(t, sender.sent, 1)
				assert.True(t, queue.Awaiting())
			} else {
				assert.Empty(t, sender.sent)
			}
		})
	}
}

func TestQueue_DrainSkipsIncomingAndSent(t *testing.T) {
	queue, _ := newTestQueue()
	queue.Enqueue(Entry{Direction: Incoming, Type: TextType, Payload: "in"})
	first := queue.Enqueue(Entry{Type: TextType, Payload: "first"})
	second := queue.Enqueue(Entry{Type: TextType, Payload: "second"})
	sender := &recordingSender{}

	_, err := queue.Drain(true, sender.Send)
	require.NoError(t, err)
	queue.Confirm(SendReport{Instance: 0})
	_, err = queue.Drain(true, sender.Send)
	require.NoError(t, err)

	assert.Equal(t, []*Entry{first, second}, sender.sent)
}

func TestQueue_SendError(t *testing.T) {
	queue, _ := newTestQueue()
	entry := queue.Enqueue(Entry{Type: TextType, Payload: "hello"})
	sender := &recordingSender{err: errors.New("write failed")}

	actual, err := queue.Drain(true, sender.Send)

	assert.Error(t, err)
	assert.Equal(t, Deferred, actual)
	assert.False(t, entry.Sent())
	assert.Equal(t, 0, entry.Retries)
	assert.False(t, queue.Awaiting())
}

func TestQueue_ConfirmSuccess(t *testing.T) {
	queue, clock := newTestQueue()
	entry := queue.Enqueue(Entry{Type: TextType, Payload: "hello"})
	sender := &recordingSender{}
	_, _ = queue.Drain(true, sender.Send)

	bound := queue.Confirm(SendReport{Instance: 3})
	assert.Same(t, entry, bound)
	assert.Equal(t, 3, entry.Instance)
	assert.False(t, queue.Awaiting())

	clock.Advance(time.Second)
	confirmed := queue.Confirm(SendReport{Instance: 3, HasStatus: true, Status: SendOK, Reference: 1})

	assert.Same(t, entry, confirmed)
	assert.Equal(t, clock.now, entry.ConfirmedAt)
	assert.Nil(t, queue.Pending())
}

func TestQueue_FailedDeliveryIsRetried(t *testing.T) {
	queue, clock := newTestQueue()
	entry := queue.Enqueue(Entry{Type: TextType, Payload: "hello"})
	sender := &recordingSender{}
	_, _ = queue.Drain(true, sender.Send)
	firstSent := entry.FirstSentAt
	queue.Confirm(SendReport{Instance: 1})

	failed := queue.Confirm(SendReport{Instance: 1, HasStatus: true, Status: SendFailed})
	require.Same(t, entry, failed)
	assert.False(t, entry.Sent())

	clock.Advance(time.Minute)
	actual, err := queue.Drain(true, sender.Send)

	assert.NoError(t, err)
	assert.Equal(t, Sent, actual)
	assert.Equal(t, 2, entry.Retries)
	assert.Equal(t, firstSent, entry.FirstSentAt)
	assert.Equal(t, clock.now, entry.SentAt)
	assert.Len(t, sender.sent, 2)
}

func TestQueue_ConfirmWithoutMatchReleasesLatch(t *testing.T) {
	queue, _ := newTestQueue()
	queue.awaiting = true

	actual := queue.Confirm(SendReport{Instance: 7, HasStatus: true, Status: SendOK})

	assert.Nil(t, actual)
	assert.False(t, queue.Awaiting())
}

func TestQueue_StatusWithoutPriorInstanceReport(t *testing.T) {
	queue, _ := newTestQueue()
	entry := queue.Enqueue(Entry{Type: TextType, Payload: "hello"})
	_, _ = queue.Drain(true, (&recordingSender{}).Send)

	actual := queue.Confirm(SendReport{Instance: 2, HasStatus: true, Status: SendOK})

	assert.Same(t, entry, actual)
	assert.False(t, entry.ConfirmedAt.IsZero())
}

func TestQueue_ReusedInstance(t *testing.T) {
	queue, _ := newTestQueue()
	sender := &recordingSender{}
	delivered := queue.Enqueue(Entry{Type: TextType, Payload: "first"})
	_, _ = queue.Drain(true, sender.Send)
	queue.Confirm(SendReport{Instance: 0})
	queue.Confirm(SendReport{Instance: 0, HasStatus: true, Status: SendOK})

	failed := queue.Enqueue(Entry{Type: TextType, Payload: "second"})
	_, _ = queue.Drain(true, sender.Send)
	actual := queue.Confirm(SendReport{Instance: 0, HasStatus: true, Status: SendFailed})

	require.Same(t, failed, actual)
	assert.True(t, delivered.Sent())
	assert.False(t, delivered.ConfirmedAt.IsZero())
	assert.False(t, failed.Sent())

	_, _ = queue.Drain(true, sender.Send)
	assert.Equal(t, []*Entry{delivered, failed, failed}, sender.sent)
	assert.Equal(t, 1, delivered.Retries)
	assert.Equal(t, 2, failed.Retries)
}

func TestQueue_StatusForEarlierInstance(t *testing.T) {
	queue, _ := newTestQueue()
	sender := &recordingSender{}
	first := queue.Enqueue(Entry{Type: TextType, Payload: "first"})
	_, _ = queue.Drain(true, sender.Send)
	queue.Confirm(SendReport{Instance: 3})

	second := queue.Enqueue(Entry{Type: TextType, Payload: "second"})
	_, _ = queue.Drain(true, sender.Send)
	queue.Confirm(SendReport{Instance: 4})

	actual := queue.Confirm(SendReport{Instance: 3, HasStatus: true, Status: SendOK})

	assert.Same(t, first, actual)
	assert.False(t, first.ConfirmedAt.IsZero())
	assert.True(t, second.ConfirmedAt.IsZero())
	assert.Same(t, second, queue.Pending())
}

func TestQueue_Purge(t *testing.T) {
	queue, clock := newTestQueue()
	sent := queue.Enqueue(Entry{Type: TextType, Payload: "old"})
	_, _ = queue.Drain(true, (&recordingSender{}).Send)
	queue.Confirm(SendReport{Instance: 0})
	queue.Confirm(SendReport{Instance: 0, HasStatus: true, Status: SendOK})
	incoming := queue.Enqueue(Entry{Direction: Incoming, Type: StateType, Payload: "8005"})

	clock.Advance(DefaultRetention)
	_, _ = queue.Drain(true, (&recordingSender{}).Send)
	assert.Equal(t, []*Entry{sent, incoming}, queue.Entries())

	clock.Advance(time.Second)
	actual, err := queue.Drain(true, (&recordingSender{}).Send)

	assert.NoError(t, err)
	assert.Equal(t, Idle, actual)
	assert.Equal(t, []*Entry{incoming}, queue.Entries())
}

func TestQueue_Reject(t *testing.T) {
	queue, _ := newTestQueue()
	entry := queue.Enqueue(Entry{Type: TextType, Payload: "hello"})
	sender := &recordingSender{}

	assert.Nil(t, queue.Reject(), "nothing pending")

	_, _ = queue.Drain(true, sender.Send)
	rejected := queue.Reject()

	assert.Same(t, entry, rejected)
	assert.False(t, entry.Sent())
	assert.False(t, queue.Awaiting())

	_, _ = queue.Drain(true, sender.Send)
	queue.Confirm(SendReport{Instance: 4})
	assert.Nil(t, queue.Reject(), "instance already bound")
}

func TestQueue_Acknowledge(t *testing.T) {
	queue, clock := newTestQueue()
	entry := queue.Enqueue(Entry{Type: TextType, TSI: "09011638300023404", Payload: "hello", Reference: 0x12})
	_, _ = queue.Drain(true, (&recordingSender{}).Send)

	assert.Nil(t, queue.Acknowledge("09011638300023404", 0x13))
	assert.Nil(t, queue.Acknowledge("09011638300023405", 0x12))

	clock.Advance(time.Second)
	actual := queue.Acknowledge("09011638300023404", 0x12)

	assert.Same(t, entry, actual)
	assert.Equal(t, clock.now, entry.ConfirmedAt)
}

func TestQueue_OneMessageInFlight(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		queue := NewQueue(DefaultRetention)
		inFlight := 0
		send := func(*Entry) error {
			inFlight++
			if inFlight > 1 {
				t.Fatalf("%d messages in flight", inFlight)
			}
			return nil
		}
		instance := 0

		t.Repeat(map[string]func(*rapid.T){
			"enqueue": func(t *rapid.T) {
				queue.Enqueue(Entry{Type: TextType, Payload: rapid.StringN(0, 20, -1).Draw(t, "payload")})
			},
			"drain": func(t *rapid.T) {
				_, err := queue.Drain(rapid.Bool().Draw(t, "ready"), send)
				if err != nil {
					t.Fatal(err)
				}
			},
			"confirm": func(t *rapid.T) {
				if !queue.Awaiting() {
					t.Skip("nothing in flight")
				}
				instance++
				queue.Confirm(SendReport{Instance: instance})
				inFlight--
			},
			"reject": func(t *rapid.T) {
				if queue.Reject() != nil {
					inFlight--
				}
			},
			"": func(t *rapid.T) {
				if queue.Awaiting() != (inFlight == 1) {
					t.Fatalf("awaiting %t with %d in flight", queue.Awaiting(), inFlight)
				}
			},
		})
	})
}

func TestEntry_Command(t *testing.T) {
	tt := []struct {
		desc     string
		entry    Entry
		expected string
		invalid  bool
	}{
		{
			desc:     "text",
			entry:    Entry{Type: TextType, TSI: "09011638300023404", Payload: "Hallo", Reference: 0x0A},
			expected: "AT+CTSDS=12,0,0,0,1\r\nAT+CMGS=23404,72\r\n82040A0148616C6C6F\x1a",
		},
		{
			desc:     "raw",
			entry:    Entry{Type: RawType, TSI: "09011638300023404", Payload: "0A008B60BA49F4A2000080"},
			expected: "AT+CTSDS=12,0,0,0,1\r\nAT+CMGS=23404,88\r\n0A008B60BA49F4A2000080\x1a",
		},
		{
			desc:     "ack",
			entry:    Entry{Type: AckType, TSI: "09011638300023404", Reference: 0xAB},
			expected: "AT+CTSDS=12,0,0,0,1\r\nAT+CMGS=23404,32\r\n821000AB\x1a",
		},
		{
			desc:     "state",
			entry:    Entry{Type: StateType, TSI: "09011638300023404", Payload: "8005"},
			expected: "AT+CTSDS=13,0\r\nAT+CMGS=23404,16\r\n8005\x1a",
		},
		{
			desc:     "simple text",
			entry:    Entry{Type: SimpleTextType, TSI: "09011638300000001", Payload: "OK"},
			expected: "AT+CTSDS=12,0,0,0,1\r\nAT+CMGS=1,32\r\n02014F4B\x1a",
		},
		{
			desc:    "invalid raw",
			entry:   Entry{Type: RawType, TSI: "09011638300023404", Payload: "0A0"},
			invalid: true,
		},
		{
			desc:    "invalid state",
			entry:   Entry{Type: StateType, TSI: "09011638300023404", Payload: "xyz"},
			invalid: true,
		},
		{
			desc:    "location",
			entry:   Entry{Type: LocationType, TSI: "09011638300023404"},
			invalid: true,
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual, err := tc.entry.Command()
			if tc.invalid {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}
