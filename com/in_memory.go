package com

import (
	"io"
	"sync"
	"time"
)

// NewInMemory returns a device that serves prepared input and records all output. It replaces
// the serial port in tests.
func NewInMemory() *InMemory {
	return &InMemory{
		readable: make(chan struct{}, 1),
		written:  make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

type InMemory struct {
	mu          sync.Mutex
	readBuffer  []byte
	writeBuffer []byte
	readable    chan struct{}
	written     chan struct{}
	closed      chan struct{}
	closeOnce   sync.Once
}

func (rw *InMemory) Close() error {
	rw.closeOnce.Do(func() {
		close(rw.closed)
	})
	return nil
}

func (rw *InMemory) WaitUntilClosed() {
	<-rw.closed
}

// Read blocks until input is prepared or the device is closed.
func (rw *InMemory) Read(p []byte) (int, error) {
	for {
		rw.mu.Lock()
		if len(rw.readBuffer) > 0 {
			n := copy(p, rw.readBuffer)
			rw.readBuffer = rw.readBuffer[n:]
			rw.mu.Unlock()
			return n, nil
		}
		rw.mu.Unlock()

		select {
		case <-rw.closed:
			return 0, io.EOF
		case <-rw.readable:
		}
	}
}

// PrepareRead makes the given bytes available for the next Read calls.
func (rw *InMemory) PrepareRead(p []byte) {
	rw.mu.Lock()
	rw.readBuffer = append(rw.readBuffer, p...)
	rw.mu.Unlock()

	signal(rw.readable)
}

func (rw *InMemory) IsReadEmpty() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	return len(rw.readBuffer) == 0
}

func (rw *InMemory) Write(p []byte) (int, error) {
	select {
	case <-rw.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	rw.mu.Lock()
	rw.writeBuffer = append(rw.writeBuffer, p...)
	rw.mu.Unlock()

	signal(rw.written)
	return len(p), nil
}

// Written returns a copy of everything written so far.
func (rw *InMemory) Written() []byte {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	return append([]byte(nil), rw.writeBuffer...)
}

func (rw *InMemory) ClearWrite() {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.writeBuffer = nil
}

// WaitUntilWritten waits for the next write, it returns false if nothing was written in time.
func (rw *InMemory) WaitUntilWritten(timeout time.Duration) bool {
	select {
	case <-rw.written:
		return true
	case <-time.After(timeout):
		return false
	}
}

func signal(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}
