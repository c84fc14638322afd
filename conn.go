// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package labinst

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/gotmc/labinst/lib/find"
	"github.com/gotmc/labinst/prologix"
	"go.bug.st/serial"
	"go.uber.org/multierr"
)

// prologixBaudRate is ignored by the adapter's virtual COM port but must be
// valid for the OS driver.
const prologixBaudRate = 115200

// tcpConn applies the resource timeout to every read and write.
type tcpConn struct {
	net.Conn
	timeout time.Duration
}

func dialTCP(a Address, timeout time.Duration) (io.ReadWriteCloser, error) {
	hostport := net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
	c, err := net.DialTimeout("tcp", hostport, timeout)
	if err != nil {
		return nil, err
	}
	return &tcpConn{Conn: c, timeout: timeout}, nil
}

func (c *tcpConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	n, err := c.Conn.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return n, err
}

func (c *tcpConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	n, err := c.Conn.Write(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return n, err
}

// serialConn reports a read that timed out, which go.bug.st/serial signals
// with a zero-length read, as ErrTimeout.
type serialConn struct {
	serial.Port
}

func openSerial(dev string, baud int, timeout time.Duration) (io.ReadWriteCloser, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		if err := p.SetReadTimeout(timeout); err != nil {
			return nil, multierr.Append(err, p.Close())
		}
	}
	return &serialConn{Port: p}, nil
}

func (c *serialConn) Read(p []byte) (int, error) {
	n, err := c.Port.Read(p)
	if n == 0 && err == nil {
		return 0, ErrTimeout
	}
	return n, err
}

// Close discards any unread data on the serial port and then closes it.
func (c *serialConn) Close() error {
	return multierr.Append(c.Port.ResetInputBuffer(), c.Port.Close())
}

func openGPIB(r *Resource) (io.ReadWriteCloser, error) {
	port := r.prologixPort
	if port == "" {
		var err error
		port, err = find.Find(find.GPIBAdapterFilter)
		if err != nil {
			return nil, fmt.Errorf("locating GPIB adapter: %w", err)
		}
	}
	sp, err := openSerial(port, prologixBaudRate, r.timeout)
	if err != nil {
		return nil, fmt.Errorf("opening GPIB adapter %s: %w", port, err)
	}
	opts := []prologix.ControllerOption{
		prologix.WithLogger(r.log),
		prologix.WithReadTimeout(r.timeout),
		prologix.WithWriteDelay(r.writeDelay),
	}
	if r.addr.Secondary >= 0 {
		opts = append(opts, prologix.WithSecondaryAddress(r.addr.Secondary))
	}
	if r.ar488 {
		opts = append(opts, prologix.WithAR488())
	}
	c, err := prologix.NewController(sp, r.addr.Primary, false, opts...)
	if err != nil {
		return nil, multierr.Append(err, sp.Close())
	}
	return c, nil
}
