// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package tds1002b drives a Tektronix TDS1002B (TDS1000/TDS2000 series)
// oscilloscope.
package tds1002b

import (
	"fmt"

	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/labinst/lib/tek"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RecordLength is the number of points transferred by ReadData.
const RecordLength = 2500

// Description is the catalog entry of the driver.
var Description = instrument.Description{
	Name:    "Tektronix TDS1002B oscilloscope",
	Package: "tds1002b",
	Methods: []instrument.Method{
		{Signature: "Configure() error", Summary: "Channels 1 and 2 at 20 mV/div, 1 ms/div horizontal."},
		{Signature: "Unlock() error", Summary: "Unlocks the front panel."},
		{Signature: "SetChannel(ch int, scale, zero float64) error", Summary: "Sets volts/div and vertical position of a channel."},
		{Signature: "Channel(ch int) (string, error)", Summary: "Returns the settings of a channel."},
		{Signature: "SetTime(scale, zero float64) error", Summary: "Sets seconds/div and horizontal position."},
		{Signature: "Time() (string, error)", Summary: "Returns the horizontal settings."},
		{Signature: "SetEncoding(e Encoding) error", Summary: "Selects unsigned (RPB) or signed (RIB) curve transfers."},
		{Signature: "ReadData(ch int) (Waveform, error)", Summary: "Transfers the waveform of a channel in seconds and volts."},
		{Signature: "Range(ch int) ([2]float64, error)", Summary: "Returns the lowest and highest voltage on screen."},
	},
}

// Encoding is a one byte per point curve format.
type Encoding string

// Curve encodings.
const (
	Unsigned Encoding = "RPB"
	Signed   Encoding = "RIB"
)

// Waveform is a transferred record.
type Waveform struct {
	Time  []float64
	Volts []float64
}

// Scope is an open TDS1002B.
type Scope struct {
	inst instrument.BlockMessenger
	log  *zap.Logger
	enc  Encoding
}

// Open opens resource and initializes the scope.
func Open(resource string, opts ...instrument.Option) (*Scope, error) {
	s := instrument.Apply(0, opts)
	res, err := s.Open(resource)
	if err != nil {
		return nil, errors.Wrap(err, "tds1002b")
	}
	sc, err := New(res, opts...)
	if err != nil {
		return nil, multierr.Append(err, res.Close())
	}
	return sc, nil
}

// New initializes the scope on an open session: binary transfers of one
// unsigned byte per point over the whole record, sample acquisition, front
// panel locked.
func New(inst instrument.BlockMessenger, opts ...instrument.Option) (*Scope, error) {
	s := instrument.Apply(0, opts)
	sc := &Scope{inst: inst, log: s.Log, enc: Unsigned}
	if _, err := instrument.Identify(inst, sc.log); err != nil {
		return nil, errors.Wrap(err, "tds1002b identify")
	}
	for _, cmd := range []string{
		"DAT:ENC " + string(Unsigned),
		"DAT:WID 1",
		"DAT:STAR 1",
		fmt.Sprintf("DAT:STOP %d", RecordLength),
		"ACQ:MOD SAMP",
		"LOC",
	} {
		if err := inst.Command(cmd); err != nil {
			return nil, errors.Wrap(err, "tds1002b init")
		}
	}
	return sc, nil
}

func checkChannel(ch int) error {
	if ch != 1 && ch != 2 {
		return fmt.Errorf("tds1002b: invalid channel %d (must be 1 or 2)", ch)
	}
	return nil
}

// Configure sets channels 1 and 2 to 20 mV/div and the time base to
// 1 ms/div, all centered.
func (sc *Scope) Configure() error {
	for _, ch := range []int{1, 2} {
		if err := sc.SetChannel(ch, 20e-3, 0); err != nil {
			return err
		}
	}
	return sc.SetTime(1e-3, 0)
}

// Unlock returns the front panel to the user.
func (sc *Scope) Unlock() error {
	return errors.Wrap(sc.inst.Command("UNLOC"), "tds1002b")
}

// SetChannel sets the vertical scale in volts/div and the position in
// divisions of channel ch.
func (sc *Scope) SetChannel(ch int, scale, zero float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if err := sc.inst.Command("CH%d:SCA %g", ch, scale); err != nil {
		return errors.Wrapf(err, "tds1002b channel %d", ch)
	}
	return errors.Wrapf(sc.inst.Command("CH%d:POS %g", ch, zero), "tds1002b channel %d", ch)
}

// Channel returns the vertical settings of channel ch as reported by the
// scope.
func (sc *Scope) Channel(ch int) (string, error) {
	if err := checkChannel(ch); err != nil {
		return "", err
	}
	s, err := sc.inst.Query(fmt.Sprintf("CH%d?", ch))
	return s, errors.Wrapf(err, "tds1002b channel %d", ch)
}

// SetTime sets the horizontal scale in s/div and the trigger position in
// seconds.
func (sc *Scope) SetTime(scale, zero float64) error {
	if err := sc.inst.Command("HOR:SCA %g", scale); err != nil {
		return errors.Wrap(err, "tds1002b time base")
	}
	return errors.Wrap(sc.inst.Command("HOR:POS %g", zero), "tds1002b time base")
}

// Time returns the horizontal settings as reported by the scope.
func (sc *Scope) Time() (string, error) {
	s, err := sc.inst.Query("HOR?")
	return s, errors.Wrap(err, "tds1002b time base")
}

// SetEncoding selects the curve format used by ReadData and Range.
func (sc *Scope) SetEncoding(e Encoding) error {
	if e != Unsigned && e != Signed {
		return fmt.Errorf("tds1002b: invalid encoding %q", e)
	}
	if err := sc.inst.Command("DAT:ENC %s", e); err != nil {
		return errors.Wrap(err, "tds1002b encoding")
	}
	sc.enc = e
	return nil
}

func (sc *Scope) selectSource(ch int) error {
	return sc.inst.Command("DAT:SOU CH%d", ch)
}

func (sc *Scope) preamble() (tek.Preamble, error) {
	vals, err := sc.inst.QueryFloats(tek.PreambleQuery, ";")
	if err != nil {
		return tek.Preamble{}, err
	}
	return tek.ParsePreamble(vals)
}

// ReadData displays channel ch, transfers its waveform and scales it to
// seconds and volts.
func (sc *Scope) ReadData(ch int) (Waveform, error) {
	if err := checkChannel(ch); err != nil {
		return Waveform{}, err
	}
	if err := sc.inst.Command("SEL:CH%d ON", ch); err != nil {
		return Waveform{}, errors.Wrapf(err, "tds1002b read channel %d", ch)
	}
	if err := sc.selectSource(ch); err != nil {
		return Waveform{}, errors.Wrapf(err, "tds1002b read channel %d", ch)
	}
	p, err := sc.preamble()
	if err != nil {
		return Waveform{}, errors.Wrapf(err, "tds1002b read channel %d preamble", ch)
	}
	raw, err := sc.inst.QueryBlock("CURV?")
	if err != nil {
		return Waveform{}, errors.Wrapf(err, "tds1002b read channel %d curve", ch)
	}
	sc.log.Debug("waveform", zap.Int("channel", ch), zap.Int("points", len(raw)),
		zap.Float64("ymult", p.YMult), zap.Float64("xincr", p.XIncr))
	volts := p.Scale(raw)
	if sc.enc == Signed {
		volts = p.ScaleSigned(raw)
	}
	return Waveform{Time: p.Times(len(raw)), Volts: volts}, nil
}

// Range returns the voltages of the bottom and top of the screen for channel
// ch.
func (sc *Scope) Range(ch int) ([2]float64, error) {
	if err := checkChannel(ch); err != nil {
		return [2]float64{}, err
	}
	if err := sc.selectSource(ch); err != nil {
		return [2]float64{}, errors.Wrapf(err, "tds1002b range channel %d", ch)
	}
	p, err := sc.preamble()
	if err != nil {
		return [2]float64{}, errors.Wrapf(err, "tds1002b range channel %d", ch)
	}
	if sc.enc == Signed {
		return p.RangeSigned(), nil
	}
	return p.Range(), nil
}

// Close releases the session.
func (sc *Scope) Close() error {
	return sc.inst.Close()
}
