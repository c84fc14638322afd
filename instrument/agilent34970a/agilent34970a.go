// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package agilent34970a drives an Agilent 34970A data acquisition/switch
// unit used as a scanning multiplexer.
package agilent34970a

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gotmc/labinst/instrument"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// fieldsPerReading is the number of values READ? returns per channel with
// channel and absolute time formatting on: reading, year, month, day, hour,
// minute, second, channel.
const fieldsPerReading = 8

// Description is the catalog entry of the driver.
var Description = instrument.Description{
	Name:    "Agilent 34970A multiplexer",
	Package: "agilent34970a",
	Methods: []instrument.Method{
		{Signature: "Configure(cfg Config) error", Summary: "Sets up a timed scan of the configured channels."},
		{Signature: "Time() (float64, error)", Summary: "Returns the instrument clock in seconds since midnight."},
		{Signature: "Query(cmd string) (string, error)", Summary: "Sends a SCPI query and returns the response."},
		{Signature: "Write(cmd string) error", Summary: "Sends a SCPI command."},
		{Signature: "OneScan() (Scan, error)", Summary: "Runs one scan and returns a reading per channel."},
	},
}

// Config describes the scan.
type Config struct {
	ScanInterval time.Duration
	ChannelDelay time.Duration
	Channels     []int
}

// DefaultConfig scans channels 101 to 108 every second with 0.2 s between
// channels.
func DefaultConfig() Config {
	return Config{
		ScanInterval: time.Second,
		ChannelDelay: 200 * time.Millisecond,
		Channels:     []int{101, 102, 103, 104, 105, 106, 107, 108},
	}
}

// Validate checks the channel list. Channels are numbered slot*100+channel
// with slots 1-3 and channels 1-99.
func (c Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("agilent34970a: empty channel list")
	}
	for _, ch := range c.Channels {
		if ch < 101 || ch > 399 || ch%100 == 0 {
			return fmt.Errorf("agilent34970a: invalid channel %d", ch)
		}
	}
	if c.ScanInterval < 0 || c.ChannelDelay < 0 {
		return fmt.Errorf("agilent34970a: negative scan timing")
	}
	return nil
}

func (c Config) scanList() string {
	s := make([]string, len(c.Channels))
	for i, ch := range c.Channels {
		s[i] = strconv.Itoa(ch)
	}
	return "(@" + strings.Join(s, ",") + ")"
}

// Reading is one channel of a scan.
type Reading struct {
	Value   float64
	Time    time.Time
	Channel int
}

// Scan is the result of OneScan.
type Scan struct {
	Raw      []float64
	Readings []Reading
}

// Mux is an open 34970A.
type Mux struct {
	inst instrument.Messenger
	log  *zap.Logger
	cfg  Config
	loc  *time.Location
}

// Open opens resource and configures cfg.
func Open(resource string, cfg Config, opts ...instrument.Option) (*Mux, error) {
	s := instrument.Apply(0, opts)
	res, err := s.Open(resource)
	if err != nil {
		return nil, errors.Wrap(err, "agilent34970a")
	}
	m, err := New(res, cfg, opts...)
	if err != nil {
		return nil, multierr.Append(err, res.Close())
	}
	return m, nil
}

// New identifies the instrument on an open session and configures cfg.
func New(inst instrument.Messenger, cfg Config, opts ...instrument.Option) (*Mux, error) {
	s := instrument.Apply(0, opts)
	m := &Mux{inst: inst, log: s.Log, loc: time.Local}
	if _, err := instrument.Identify(inst, m.log); err != nil {
		return nil, errors.Wrap(err, "agilent34970a identify")
	}
	if err := m.Configure(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the scan configuration in effect.
func (m *Mux) Config() Config {
	return m.cfg
}

// Configure clears the instrument and sets up a scan of cfg.Channels
// triggered by the interval timer, one sweep per READ?. Readings carry
// their channel number and absolute time stamp.
func (m *Mux) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, cmd := range []string{
		"*CLS",
		"ROUTE:SCAN " + cfg.scanList(),
		"ROUT:CHAN:DELAY " + formatSeconds(cfg.ChannelDelay),
		"FORMAT:READING:CHAN ON",
		"FORMAT:READING:TIME ON",
		"FORMat:READing:TIME:TYPE ABSolute",
		"FORMat:READing:UNIT OFF",
		"TRIG:TIMER " + formatSeconds(cfg.ScanInterval),
		"TRIG:COUNT 1",
	} {
		if err := m.inst.Command(cmd); err != nil {
			return errors.Wrap(err, "agilent34970a configure")
		}
	}
	m.cfg = cfg
	m.log.Debug("scan configured", zap.Ints("channels", cfg.Channels),
		zap.Duration("interval", cfg.ScanInterval), zap.Duration("delay", cfg.ChannelDelay))
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'g', -1, 64)
}

// Time returns the instrument's clock as seconds since midnight.
func (m *Mux) Time() (float64, error) {
	v, err := m.inst.QueryFloats("SYSTEM:TIME?", ",")
	if err != nil {
		return 0, errors.Wrap(err, "agilent34970a time")
	}
	if len(v) != 3 {
		return 0, fmt.Errorf("agilent34970a time: want hour,minute,second, got %v", v)
	}
	return v[0]*3600 + v[1]*60 + v[2], nil
}

// Query sends cmd and returns the response.
func (m *Mux) Query(cmd string) (string, error) {
	return m.inst.Query(cmd)
}

// Write sends cmd.
func (m *Mux) Write(cmd string) error {
	return m.inst.Command(cmd)
}

// OneScan triggers one sweep of the configured channels and waits for its
// readings.
func (m *Mux) OneScan() (Scan, error) {
	raw, err := m.inst.QueryFloats("READ?", ",")
	if err != nil {
		return Scan{}, errors.Wrap(err, "agilent34970a scan")
	}
	readings, err := m.parseScan(raw)
	if err != nil {
		return Scan{}, err
	}
	return Scan{Raw: raw, Readings: readings}, nil
}

func (m *Mux) parseScan(raw []float64) ([]Reading, error) {
	n := len(m.cfg.Channels)
	if len(raw) != n*fieldsPerReading {
		return nil, fmt.Errorf("agilent34970a scan: got %d values, want %d for %d channels",
			len(raw), n*fieldsPerReading, n)
	}
	readings := make([]Reading, n)
	for i := range readings {
		f := raw[i*fieldsPerReading : (i+1)*fieldsPerReading]
		sec, frac := math.Modf(f[6])
		readings[i] = Reading{
			Value: f[0],
			Time: time.Date(int(f[1]), time.Month(f[2]), int(f[3]),
				int(f[4]), int(f[5]), int(sec), int(math.Round(frac*1e9)), m.loc),
			Channel: int(f[7]),
		}
	}
	return readings, nil
}

// Close releases the session.
func (m *Mux) Close() error {
	return m.inst.Close()
}
