// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package instrument holds what the instrument drivers in its subpackages
// share: the message interface they drive, their options and the catalog
// printed by the labinst list command.
package instrument

import (
	"time"

	"github.com/gotmc/labinst"
	"go.uber.org/zap"
)

// Messenger is the message-based session a driver talks through.
// *labinst.Resource implements it.
type Messenger interface {
	Command(format string, a ...any) error
	Query(cmd string) (string, error)
	QueryFloats(cmd, sep string) ([]float64, error)
	Close() error
}

// BlockMessenger can also read IEEE 488.2 binary blocks.
type BlockMessenger interface {
	Messenger
	QueryBlock(cmd string) ([]byte, error)
}

// Option configures a driver.
type Option func(*Settings)

// Settings are the options collected by Apply.
type Settings struct {
	Log     *zap.Logger
	ResOpts []labinst.Option
	Settle  time.Duration
	Sleep   func(time.Duration)
}

// WithLogger sets the logger of the driver and of the resource it opens.
func WithLogger(log *zap.Logger) Option {
	return func(s *Settings) {
		if log != nil {
			s.Log = log
		}
	}
}

// WithResourceOptions passes options to labinst.Open. They are applied after
// the driver's defaults.
func WithResourceOptions(opts ...labinst.Option) Option {
	return func(s *Settings) { s.ResOpts = append(s.ResOpts, opts...) }
}

// WithSettle sets how long a driver waits after configuring the instrument,
// for drivers that wait at all.
func WithSettle(d time.Duration) Option {
	return func(s *Settings) { s.Settle = d }
}

// WithSleep replaces time.Sleep for every wait a driver makes.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Settings) { s.Sleep = fn }
}

// Apply collects opts on top of the defaults. settle is the driver's default
// settle time.
func Apply(settle time.Duration, opts []Option) Settings {
	s := Settings{
		Log:    zap.NewNop(),
		Settle: settle,
		Sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Open opens resource with defaults, then the settings' logger and resource
// options.
func (s Settings) Open(resource string, defaults ...labinst.Option) (*labinst.Resource, error) {
	opts := append(append([]labinst.Option{}, defaults...), labinst.WithLogger(s.Log))
	opts = append(opts, s.ResOpts...)
	return labinst.Open(resource, opts...)
}

// Identify queries *IDN? and logs the answer.
func Identify(m Messenger, log *zap.Logger) (string, error) {
	idn, err := m.Query("*IDN?")
	if err != nil {
		return "", err
	}
	log.Info("connected", zap.String("idn", idn))
	return idn, nil
}
