package com

import (
	"fmt"
	"io"
	"time"

	"github.com/lestrrat-go/strftime"
)

const (
	readBufferSize  = 1024
	traceTimeFormat = "%Y-%m-%d %H:%M:%S"

	// CtrlZ terminates the user data of an SDS send command.
	CtrlZ = 0x1a
)

// NewLinkWithTrace creates a new Link that traces all communication to a second writer.
func NewLinkWithTrace(device io.Writer, tracer io.Writer) *Link {
	result := NewLink(device)
	result.tracer = tracer
	return result
}

// NewLink creates a new Link that writes commands to the radio's PEI through the given device.
func NewLink(device io.Writer) *Link {
	return &Link{device: device}
}

// Link writes AT commands to the radio's PEI.
type Link struct {
	device io.Writer
	tracer io.Writer
}

// Send writes the command to the device. A carriage return is appended, unless the command
// already ends with the SDS terminator CtrlZ.
func (l *Link) Send(command string) error {
	if len(command) == 0 {
		return nil
	}
	txbytes := make([]byte, 0, len(command)+1)
	txbytes = append(txbytes, command...)
	if txbytes[len(txbytes)-1] != CtrlZ {
		txbytes = append(txbytes, 0x0d)
	}
	return l.write(txbytes)
}

// Break writes a bare line terminator, which makes the radio drop any partially received command.
func (l *Link) Break() error {
	return l.write(lineTerminator)
}

func (l *Link) write(txbytes []byte) error {
	l.tracef("tx:  %s\nhex: %X\n--\n", txbytes, txbytes)
	_, err := l.device.Write(txbytes)
	if err != nil {
		return fmt.Errorf("cannot write to PEI: %w", err)
	}
	return nil
}

// TraceRx traces a received line.
func (l *Link) TraceRx(line string) {
	l.tracef("rx:  %s\nhex: %X\n--\n", line, line)
}

func (l *Link) tracef(format string, args ...any) {
	if l.tracer == nil {
		return
	}
	timestamp, err := strftime.Format(traceTimeFormat, time.Now())
	if err == nil {
		fmt.Fprintf(l.tracer, "%s ", timestamp)
	}
	fmt.Fprintf(l.tracer, format, args...)
}

// ReadLoop reads chunks from the given reader until it is exhausted or fails.
// The returned channel is closed afterwards.
func ReadLoop(r io.Reader) <-chan []byte {
	chunks := make(chan []byte, 1)
	go func() {
		defer close(chunks)
		buf := make([]byte, readBufferSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				chunks <- chunk
			}
			if err != nil {
				return
			}
		}
	}()
	return chunks
}
