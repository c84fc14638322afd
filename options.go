// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package labinst

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// Option applies an option to a Resource before it is opened.
type Option func(*Resource)

// WithTimeout sets how long a read may wait for data.
func WithTimeout(d time.Duration) Option {
	return func(r *Resource) { r.timeout = d }
}

// WithWriteTermination sets the string appended to every message written.
func WithWriteTermination(term string) Option {
	return func(r *Resource) { r.writeTerm = term }
}

// WithReadTermination sets the byte that ends a response.
func WithReadTermination(term byte) Option {
	return func(r *Resource) { r.readTerm = term }
}

// WithBaudRate sets the bit rate of ASRL resources.
func WithBaudRate(baud int) Option {
	return func(r *Resource) { r.baud = baud }
}

// WithPrologixPort names the serial port of the GPIB adapter used for GPIB
// resources. Without it the first Prologix or AR488 adapter found is used.
func WithPrologixPort(port string) Option {
	return func(r *Resource) { r.prologixPort = port }
}

// WithAR488 configures the GPIB adapter as an Arduino AR488.
func WithAR488() Option {
	return func(r *Resource) { r.ar488 = true }
}

// WithWriteDelay enforces a minimum delay between consecutive writes.
func WithWriteDelay(d time.Duration) Option {
	return func(r *Resource) { r.writeDelay = d }
}

// WithLogger logs every exchange at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resource) {
		if log != nil {
			r.log = log
		}
	}
}

// WithTrace prints a colored transcript of every exchange to w.
func WithTrace(w io.Writer) Option {
	return func(r *Resource) { r.traceTo = w }
}

// WithTransport uses rwc instead of opening the transport named by the
// address. The address is still parsed and reported.
func WithTransport(rwc io.ReadWriteCloser) Option {
	return func(r *Resource) { r.conn = rwc }
}
