package com

import "bytes"

var lineTerminator = []byte{0x0d, 0x0a}

// Framer extracts CRLF terminated lines from a byte stream that arrives in chunks of arbitrary size.
// Empty lines are skipped, an incomplete trailing line is kept until its terminator arrives.
type Framer struct {
	buffer []byte
	handle func(line string)
}

// NewFramer returns a Framer that passes every complete line to the given handler.
func NewFramer(handle func(line string)) *Framer {
	return &Framer{handle: handle}
}

// Write appends the chunk to the buffer and handles all lines that are complete now.
func (f *Framer) Write(chunk []byte) (int, error) {
	f.buffer = append(f.buffer, chunk...)

	start := 0
	for {
		i := bytes.Index(f.buffer[start:], lineTerminator)
		if i < 0 {
			break
		}
		if i > 0 {
			f.handle(string(f.buffer[start : start+i]))
		}
		start += i + len(lineTerminator)
	}

	if start > 0 {
		f.buffer = append(f.buffer[:0], f.buffer[start:]...)
	}
	return len(chunk), nil
}

// Pending returns the bytes of the incomplete trailing line.
func (f *Framer) Pending() []byte {
	return f.buffer
}

// Reset drops the incomplete trailing line.
func (f *Framer) Reset() {
	f.buffer = f.buffer[:0]
}
