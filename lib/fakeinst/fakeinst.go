// Package fakeinst provides a scripted instrument for driver tests.
package fakeinst

import (
	"fmt"
	"strings"

	"github.com/gotmc/labinst"
)

// Instrument answers queries from a script and records every message it is
// sent. Each query pops its next scripted response; the last one repeats.
type Instrument struct {
	Sent     []string
	Closed   bool
	CloseErr error

	responses map[string][]string
	blocks    map[string][][]byte
	fails     map[string]error
}

// New returns an instrument with nothing scripted.
func New() *Instrument {
	return &Instrument{
		responses: map[string][]string{},
		blocks:    map[string][][]byte{},
		fails:     map[string]error{},
	}
}

// On scripts the responses to query.
func (f *Instrument) On(query string, responses ...string) *Instrument {
	f.responses[query] = append(f.responses[query], responses...)
	return f
}

// OnBlock scripts binary block responses to query.
func (f *Instrument) OnBlock(query string, data ...[]byte) *Instrument {
	f.blocks[query] = append(f.blocks[query], data...)
	return f
}

// Fail makes every exchange of msg return err.
func (f *Instrument) Fail(msg string, err error) *Instrument {
	f.fails[msg] = err
	return f
}

func (f *Instrument) send(msg string) error {
	if f.Closed {
		return labinst.ErrClosed
	}
	f.Sent = append(f.Sent, msg)
	return f.fails[msg]
}

// Command records the formatted command.
func (f *Instrument) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	return f.send(strings.TrimSpace(cmd))
}

// Query records cmd and returns its next scripted response. An unscripted
// query fails with an error wrapping labinst.ErrTimeout.
func (f *Instrument) Query(cmd string) (string, error) {
	cmd = strings.TrimSpace(cmd)
	if err := f.send(cmd); err != nil {
		return "", err
	}
	q := f.responses[cmd]
	if len(q) == 0 {
		return "", fmt.Errorf("%w: no scripted response to %q", labinst.ErrTimeout, cmd)
	}
	if len(q) > 1 {
		f.responses[cmd] = q[1:]
	}
	return strings.TrimSpace(q[0]), nil
}

// QueryFloats parses the response to cmd like labinst.Resource does.
func (f *Instrument) QueryFloats(cmd, sep string) ([]float64, error) {
	s, err := f.Query(cmd)
	if err != nil {
		return nil, err
	}
	return labinst.ParseFloats(s, sep)
}

// QueryBlock records cmd and returns its next scripted block.
func (f *Instrument) QueryBlock(cmd string) ([]byte, error) {
	cmd = strings.TrimSpace(cmd)
	if err := f.send(cmd); err != nil {
		return nil, err
	}
	q := f.blocks[cmd]
	if len(q) == 0 {
		return nil, fmt.Errorf("%w: no scripted block for %q", labinst.ErrTimeout, cmd)
	}
	if len(q) > 1 {
		f.blocks[cmd] = q[1:]
	}
	return q[0], nil
}

// Close marks the instrument closed and returns CloseErr. Later exchanges
// fail with labinst.ErrClosed.
func (f *Instrument) Close() error {
	f.Closed = true
	return f.CloseErr
}

// Reset forgets the messages sent so far.
func (f *Instrument) Reset() {
	f.Sent = nil
}
