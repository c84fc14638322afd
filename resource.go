// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package labinst

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gotmc/labinst/lib/cmdlog"
	"go.uber.org/zap"
)

var (
	// ErrTimeout is wrapped by reads that saw no data before the timeout.
	ErrTimeout = errors.New("i/o timeout")
	// ErrClosed is returned by operations on a closed Resource.
	ErrClosed = errors.New("resource closed")
)

// Default settings applied by Open before any Option.
const (
	DefaultTimeout  = 2 * time.Second
	DefaultBaudRate = 9600
)

// readRequester is implemented by transports that must be told to fetch a
// response before it can be read, like a Prologix controller with
// read-after-write disabled.
type readRequester interface {
	RequestRead() error
}

// Resource is an open message-based session with one instrument. It is not
// safe for concurrent use.
type Resource struct {
	addr         Address
	conn         io.ReadWriteCloser
	br           *bufio.Reader
	timeout      time.Duration
	writeTerm    string
	readTerm     byte
	baud         int
	prologixPort string
	ar488        bool
	writeDelay   time.Duration
	lastWrite    time.Time
	log          *zap.Logger
	traceTo      io.Writer
	trace        *cmdlog.Transcript
	closed       bool
}

// Open parses the VISA resource string and opens a session with the
// instrument it names.
func Open(resource string, opts ...Option) (*Resource, error) {
	addr, err := ParseAddress(resource)
	if err != nil {
		return nil, err
	}
	r := &Resource{
		addr:      addr,
		timeout:   DefaultTimeout,
		writeTerm: "\n",
		readTerm:  '\n',
		baud:      DefaultBaudRate,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.Stringer("resource", addr))
	if r.conn == nil {
		r.conn, err = dial(r)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", addr, err)
		}
	}
	r.br = bufio.NewReader(r.conn)
	if r.traceTo != nil {
		r.trace = cmdlog.New(r.traceTo, addr.String())
	}
	r.log.Debug("opened", zap.Duration("timeout", r.timeout))
	return r, nil
}

// Address returns the parsed resource address.
func (r *Resource) Address() Address {
	return r.addr
}

func (r *Resource) write(cmd string) error {
	if r.closed {
		return ErrClosed
	}
	if r.writeDelay > 0 {
		if wait := r.writeDelay - time.Since(r.lastWrite); wait > 0 {
			time.Sleep(wait)
		}
	}
	_, err := io.WriteString(r.conn, cmd+r.writeTerm)
	r.lastWrite = time.Now()
	if err != nil {
		return fmt.Errorf("writing %q: %w", cmd, err)
	}
	r.log.Debug("write", zap.String("cmd", cmd))
	return nil
}

func (r *Resource) fail(cmd string, err error) error {
	if r.trace != nil {
		r.trace.Error(cmd, err)
	}
	r.log.Debug("exchange failed", zap.String("cmd", cmd), zap.Error(err))
	return err
}

// Write sends cmd to the instrument. Surrounding whitespace is removed
// before the write termination is appended.
func (r *Resource) Write(cmd string) error {
	cmd = strings.TrimSpace(cmd)
	if err := r.write(cmd); err != nil {
		return r.fail(cmd, err)
	}
	if r.trace != nil {
		r.trace.Command(cmd)
	}
	return nil
}

// Command formats according to a format specifier if provided and sends the
// resulting SCPI/ASCII command to the instrument.
func (r *Resource) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	return r.Write(cmd)
}

func (r *Resource) requestRead() error {
	if rr, ok := r.conn.(readRequester); ok {
		return rr.RequestRead()
	}
	return nil
}

func (r *Resource) readMessage() ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if err := r.requestRead(); err != nil {
		return nil, err
	}
	b, err := r.br.ReadBytes(r.readTerm)
	if err == io.EOF && len(b) > 0 {
		// connection closed after an unterminated final message
		return b, nil
	}
	return b, err
}

// ReadBytes reads one response up to and including the read termination.
func (r *Resource) ReadBytes() ([]byte, error) {
	return r.readMessage()
}

// Read reads one response with terminators and surrounding whitespace
// removed.
func (r *Resource) Read() (string, error) {
	b, err := r.readMessage()
	return strings.TrimSpace(string(b)), err
}

// Query writes cmd and returns the instrument's response with terminators
// and surrounding whitespace removed.
func (r *Resource) Query(cmd string) (string, error) {
	cmd = strings.TrimSpace(cmd)
	if err := r.write(cmd); err != nil {
		return "", r.fail(cmd, err)
	}
	b, err := r.readMessage()
	if err != nil {
		return "", r.fail(cmd, fmt.Errorf("reading response to %q: %w", cmd, err))
	}
	if r.trace != nil {
		r.trace.Response(cmd, b)
	}
	resp := strings.TrimSpace(string(b))
	r.log.Debug("response", zap.String("cmd", cmd), zap.String("resp", resp))
	return resp, nil
}

// QueryFloats queries cmd and parses the response as ASCII numbers
// separated by sep.
func (r *Resource) QueryFloats(cmd, sep string) ([]float64, error) {
	s, err := r.Query(cmd)
	if err != nil {
		return nil, err
	}
	vals, err := ParseFloats(s, sep)
	if err != nil {
		return nil, fmt.Errorf("parsing response to %q: %w", cmd, err)
	}
	return vals, nil
}

// QueryBlock queries cmd and reads an IEEE 488.2 binary block response.
func (r *Resource) QueryBlock(cmd string) ([]byte, error) {
	cmd = strings.TrimSpace(cmd)
	if err := r.write(cmd); err != nil {
		return nil, r.fail(cmd, err)
	}
	if err := r.requestRead(); err != nil {
		return nil, r.fail(cmd, err)
	}
	data, err := ReadBlock(r.br, r.readTerm)
	if err != nil {
		return nil, r.fail(cmd, fmt.Errorf("reading block response to %q: %w", cmd, err))
	}
	if r.trace != nil {
		r.trace.Response(cmd, data)
	}
	r.log.Debug("block", zap.String("cmd", cmd), zap.Int("bytes", len(data)))
	return data, nil
}

// Identity is the parsed response to *IDN?.
type Identity struct {
	Manufacturer string
	Model        string
	Serial       string
	Firmware     string
}

// ParseIdentity splits an *IDN? response into its four comma separated
// fields. Missing fields are left empty.
func ParseIdentity(s string) Identity {
	var fields [4]string
	for i, f := range strings.SplitN(strings.TrimSpace(s), ",", 4) {
		fields[i] = strings.TrimSpace(f)
	}
	return Identity{
		Manufacturer: fields[0],
		Model:        fields[1],
		Serial:       fields[2],
		Firmware:     fields[3],
	}
}

func (id Identity) String() string {
	return fmt.Sprintf("%s %s (serial %s, firmware %s)", id.Manufacturer, id.Model, id.Serial, id.Firmware)
}

// Identify queries *IDN?.
func (r *Resource) Identify() (Identity, error) {
	s, err := r.Query("*IDN?")
	if err != nil {
		return Identity{}, err
	}
	return ParseIdentity(s), nil
}

// Clear sends *CLS.
func (r *Resource) Clear() error {
	return r.Write("*CLS")
}

// Reset sends *RST.
func (r *Resource) Reset() error {
	return r.Write("*RST")
}

// Close releases the transport. Closing twice is a no-op.
func (r *Resource) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.log.Debug("closing")
	return r.conn.Close()
}

// ParseFloats parses ASCII numbers separated by sep, skipping empty fields.
// An empty sep means a comma.
func ParseFloats(s, sep string) ([]float64, error) {
	if sep == "" {
		sep = ","
	}
	fields := strings.Split(s, sep)
	vals := make([]float64, 0, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d %q: %w", i, f, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}
