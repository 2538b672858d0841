// Package inject provides the local channel that injects SDS into the engine. Each line has the form
// TSI,KIND,PAYLOAD where KIND is T for text or R for a raw PDU in hex.
package inject

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creack/pty"
)

// The kinds of injected messages.
const (
	TextKind = "T"
	RawKind  = "R"
)

// ParseRecord parses one injected line. The payload may contain commas.
func ParseRecord(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.SplitN(line, ",", 3)
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("invalid record, TSI,KIND,PAYLOAD expected: %q", line)
	}

	result := Record{
		TSI:     strings.TrimSpace(fields[0]),
		Payload: fields[2],
	}
	switch strings.ToUpper(strings.TrimSpace(fields[1])) {
	case TextKind:
	case RawKind:
		result.Raw = true
		result.Payload = strings.TrimSpace(result.Payload)
	default:
		return Record{}, fmt.Errorf("invalid record kind %q, T or R expected", fields[1])
	}
	if result.TSI == "" {
		return Record{}, fmt.Errorf("invalid record without TSI: %q", line)
	}
	if result.Payload == "" {
		return Record{}, fmt.Errorf("invalid record without payload: %q", line)
	}

	return result, nil
}

// Record is one injected message.
type Record struct {
	TSI     string
	Raw     bool
	Payload string
}

// Open creates a pseudo terminal and links its slave side to the given path, so that other
// applications can write records to a fixed name.
func Open(link string) (*Channel, error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot create pseudo terminal: %w", err)
	}

	result := &Channel{
		ptmx: ptmx,
		pts:  pts,
		link: link,
	}
	if link == "" {
		return result, nil
	}

	if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
		result.Close()
		return nil, fmt.Errorf("cannot remove old link %s: %w", link, err)
	}
	if err := os.Symlink(pts.Name(), link); err != nil {
		result.Close()
		return nil, fmt.Errorf("cannot link %s to %s: %w", link, pts.Name(), err)
	}
	return result, nil
}

// Channel is the pseudo terminal where records are injected.
type Channel struct {
	ptmx *os.File
	pts  *os.File
	link string
}

// Name returns the device name of the pseudo terminal's slave side.
func (c *Channel) Name() string {
	return c.pts.Name()
}

// Listen reads lines from the channel until it is closed.
func (c *Channel) Listen(handle func(string)) error {
	return Listen(c.ptmx, handle)
}

// Close removes the link and closes the pseudo terminal.
func (c *Channel) Close() error {
	var errs []error
	if c.link != "" {
		if target, err := os.Readlink(c.link); err == nil && target == c.pts.Name() {
			errs = append(errs, os.Remove(c.link))
		}
	}
	errs = append(errs, c.pts.Close(), c.ptmx.Close())
	return errors.Join(errs...)
}

// Listen reads non-empty lines from the given reader and hands them to the given function, until the reader fails.
func Listen(r io.Reader, handle func(string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handle(line)
	}
	return scanner.Err()
}
