// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package prologix drives a Prologix (or AR488) GPIB-USB controller over its
// virtual COM port so that a GPIB instrument can be used as an ordinary
// message-based connection.
package prologix

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Characters the Prologix controller strips from host data unless escaped.
const (
	cr  = '\r'
	lf  = '\n'
	esc = 0x1b
	pls = '+'
)

// Controller models a GPIB controller-in-charge.
type Controller struct {
	rw               io.ReadWriter
	br               *bufio.Reader
	primaryAddr      int
	hasSecondaryAddr bool
	secondaryAddr    int
	usbTerm          byte
	// respTerm ends adapter and instrument responses.
	respTerm         byte
	readTimeout      time.Duration
	writeDelay       time.Duration
	lastWrite        time.Time
	log              *zap.Logger
	ar488            bool // see WithAR488
}

// ControllerOption applies an option to the controller.
type ControllerOption func(*Controller)

// NewController creates a GPIB controller-in-charge at the given address using
// the given Prologix virtual COM port. Enable clear to send the Selected
// Device Clear (SDC) message to the GPIB address. Optionally controller
// configuration can be included using a ControllerOption.
func NewController(
	rw io.ReadWriter,
	addr int,
	clear bool,
	opts ...ControllerOption,
) (*Controller, error) {
	c := Controller{
		rw:          rw,
		br:          bufio.NewReader(rw),
		primaryAddr: addr,
		usbTerm:     '\n',
		respTerm:    '\n',
		readTimeout: 500 * time.Millisecond,
		log:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&c)
	}

	if !isPrimaryAddressValid(c.primaryAddr) {
		return nil, fmt.Errorf("invalid primary address %d (must be 0-30)", c.primaryAddr)
	}

	// Configure the Prologix GPIB controller.
	addrCmd := fmt.Sprintf("addr %d", c.primaryAddr)
	if c.hasSecondaryAddr {
		if !isSecondaryAddressValid(c.secondaryAddr) {
			return nil, fmt.Errorf("invalid secondary address %d (must be 96-126)", c.secondaryAddr)
		}
		addrCmd = fmt.Sprintf("addr %d %d", c.primaryAddr, c.secondaryAddr)
	}
	// The adapter accepts 1-3000 ms.
	tmo := c.readTimeout.Milliseconds()
	if tmo < 1 {
		tmo = 1
	} else if tmo > 3000 {
		tmo = 3000
	}
	cmds := []string{}
	if !c.ar488 {
		cmds = append(cmds,
			"verbose 0", // turn off verbosity if on
			"savecfg 0", // Disable saving of configuration parameters in EPROM
		)
	}
	cmds = append(cmds,
		addrCmd,                            // Set the primary address.
		"mode 1",                           // Switch to controller mode.
		"auto 0",                           // Turn off read-after-write and address instrument to listen.
		"eoi 1",                            // Enable EOI assertion with last character.
		"eos 0",                            // Set GPIB termination.
		fmt.Sprintf("read_tmo_ms %d", tmo), // Set the inter-character read timeout.
		"eot_enable 0",                     // Responses already end in the instrument's LF with EOI.
	)
	if clear {
		cmds = append(cmds, "clr")
	}
	for _, cmd := range cmds {
		if err := c.CommandController(cmd); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// WithSecondaryAddress sets a secondary address, which must be in the range of
// 96 and 126, inclusive.
func WithSecondaryAddress(addr int) ControllerOption {
	return func(c *Controller) {
		c.hasSecondaryAddr = true
		c.secondaryAddr = addr
	}
}

// WithLogger logs controller commands at debug level.
func WithLogger(log *zap.Logger) ControllerOption {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithReadTimeout sets the adapter's inter-character read timeout.
func WithReadTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.readTimeout = d }
}

// WithWriteDelay enforces a minimum delay between writes to the adapter.
// Some instruments drop commands sent back to back.
func WithWriteDelay(d time.Duration) ControllerOption {
	return func(c *Controller) { c.writeDelay = d }
}

// WithAR488 skips the 'verbose 0' and 'savecfg 0' setup commands, which the
// Arduino AR488 adapter does not accept.
func WithAR488() ControllerOption { return func(c *Controller) { c.ar488 = true } }

func (c *Controller) send(p []byte) error {
	if c.writeDelay > 0 {
		if wait := c.writeDelay - time.Since(c.lastWrite); wait > 0 {
			time.Sleep(wait)
		}
	}
	_, err := c.rw.Write(p)
	c.lastWrite = time.Now()
	return err
}

// Write sends one message to the instrument at the currently assigned GPIB
// address. A trailing USB terminator ends the message; CR, LF, ESC and '+'
// inside the message are escaped so binary payloads reach the instrument
// intact.
func (c *Controller) Write(p []byte) (n int, err error) {
	msg := bytes.TrimSuffix(p, []byte{c.usbTerm})
	buf := make([]byte, 0, len(msg)+8)
	for _, b := range msg {
		switch b {
		case cr, lf, esc, pls:
			buf = append(buf, esc)
		}
		buf = append(buf, b)
	}
	buf = append(buf, c.usbTerm)
	if err := c.send(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Read reads from the instrument at the currently assigned GPIB address into
// the given byte slice. RequestRead must be called first because
// read-after-write is disabled.
func (c *Controller) Read(p []byte) (n int, err error) {
	return c.br.Read(p)
}

// RequestRead tells the controller to address the instrument to talk and
// read until EOI is asserted.
func (c *Controller) RequestRead() error {
	return c.CommandController("read eoi")
}

// Command formats according to a format specifier if provided and sends a
// SCPI/ASCII command to the instrument at the currently assigned GPIB address.
// All leading and trailing whitespace is removed before appending the USB
// terminator to the command sent to the Prologix.
func (c *Controller) Command(format string, a ...any) error {
	cmd := format
	if a != nil {
		cmd = fmt.Sprintf(format, a...)
	}
	cmd = strings.TrimSpace(cmd)
	c.log.Debug("gpib command", zap.String("cmd", cmd))
	_, err := c.Write([]byte(cmd))
	return err
}

// Query queries the instrument at the currently assigned GPIB using the given
// SCPI/ASCII command. The cmd string does not need to include a new line
// character, since all leading and trailing whitespace is removed before
// appending the USB terminator to the command sent to the Prologix.
func (c *Controller) Query(cmd string) (string, error) {
	if err := c.Command(cmd); err != nil {
		return "", fmt.Errorf("error writing command: %w", err)
	}
	if err := c.RequestRead(); err != nil {
		return "", fmt.Errorf("error sending `++read eoi` command: %w", err)
	}
	s, err := c.br.ReadString(c.respTerm)
	if err == io.EOF && s != "" {
		return strings.TrimSpace(s), nil
	}
	return strings.TrimSpace(s), err
}

// QueryController sends a `++` command to the adapter and returns its
// response.
func (c *Controller) QueryController(cmd string) (string, error) {
	err := c.CommandController(cmd)
	if err != nil {
		return "", err
	}
	s, err := c.br.ReadString(c.respTerm)
	c.log.Debug("controller response", zap.String("data", s))
	return strings.TrimSpace(s), err
}

// CommandController sends the given command to the Prologix controller. To
// address the adapter rather than the instrument, it is prefixed with `++`
// and ends in the USB termination.
func (c *Controller) CommandController(cmd string) error {
	cmd = fmt.Sprintf("++%s%c", strings.ToLower(strings.TrimSpace(cmd)), c.usbTerm)
	c.log.Debug("controller command", zap.String("cmd", cmd))
	return c.send([]byte(cmd))
}

// InstrumentAddress returns the primary and secondary GPIB address the
// controller is currently configured for. The secondary address is zero when
// not set.
func (c *Controller) InstrumentAddress() (int, int, error) {
	s, err := c.QueryController("addr")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("empty address response")
	}
	pad, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad address response %q: %w", s, err)
	}
	sad := 0
	if len(fields) > 1 {
		if sad, err = strconv.Atoi(fields[1]); err != nil {
			return 0, 0, fmt.Errorf("bad address response %q: %w", s, err)
		}
	}
	return pad, sad, nil
}

// Version returns the controller's version string.
func (c *Controller) Version() (string, error) {
	return c.QueryController("ver")
}

// ReadAfterWrite reports whether the controller automatically addresses the
// instrument to talk after each write.
func (c *Controller) ReadAfterWrite() (bool, error) {
	return c.queryBool("auto")
}

// ReadTimeout returns the controller's read timeout in milliseconds.
func (c *Controller) ReadTimeout() (int, error) {
	s, err := c.QueryController("read_tmo_ms")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// ServiceRequest reports whether the SRQ line is asserted.
func (c *Controller) ServiceRequest() (bool, error) {
	return c.queryBool("srq")
}

// GPIBTermination returns the terminator appended to instrument commands.
func (c *Controller) GPIBTermination() (GpibTerm, error) {
	s, err := c.QueryController("eos")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(AppendCRLF) || n > int(AppendNothing) {
		return 0, fmt.Errorf("bad eos response %q", s)
	}
	return GpibTerm(n), nil
}

// ClearDevice sends the Selected Device Clear (SDC) message.
func (c *Controller) ClearDevice() error {
	return c.CommandController("clr")
}

// FrontPanel returns the instrument to local (front panel) control when local
// is true. Remote control resumes with the next command sent.
func (c *Controller) FrontPanel(local bool) error {
	if !local {
		return nil
	}
	return c.CommandController("loc")
}

// Close returns the instrument to local control and closes the underlying
// port if it is closable.
func (c *Controller) Close() error {
	err := c.FrontPanel(true)
	if cl, ok := c.rw.(io.Closer); ok {
		err = multierr.Append(err, cl.Close())
	}
	return err
}

func (c *Controller) queryBool(cmd string) (bool, error) {
	s, err := c.QueryController(cmd)
	if err != nil {
		return false, err
	}
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, fmt.Errorf("bad %s response %q", cmd, s)
}

// GpibTerm provides the type for the available GPIB terminators.
type GpibTerm int

// Available GPIB terminators for the Prologix Controller.
const (
	AppendCRLF GpibTerm = iota
	AppendCR
	AppendLF
	AppendNothing
)

var gpibTermDesc = map[GpibTerm]string{
	AppendCRLF:    `Append CR+LF (\r\n) to instrument commands`,
	AppendCR:      `Append CR (\r) to instrument commands`,
	AppendLF:      `Append LF (\n) to instrument commands`,
	AppendNothing: `Do not append anything to instrument commands`,
}

func (term GpibTerm) String() string {
	return gpibTermDesc[term]
}

// isPrimaryAddressValid checks that the primary GPIB address is between 0 and
// 30, inclusive.
func isPrimaryAddressValid(addr int) bool {
	if addr < 0 || addr > 30 {
		return false
	}
	return true
}

// isSecondaryAddressValid checks that the secondary GPIB address is between 96
// and 126, inclusive.
func isSecondaryAddressValid(addr int) bool {
	if addr < 96 || addr > 126 {
		return false
	}
	return true
}
