// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package sr830 drives a Stanford Research Systems SR830 lock-in amplifier.
package sr830

import (
	"fmt"
	"time"

	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/query"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sensitivities in volts, indexed by the SENS parameter.
var Sensitivities = [...]float64{
	2e-9, 5e-9, 10e-9, 20e-9, 50e-9, 100e-9, 200e-9, 500e-9,
	1e-6, 2e-6, 5e-6, 10e-6, 20e-6, 50e-6, 100e-6, 200e-6, 500e-6,
	1e-3, 2e-3, 5e-3, 10e-3, 20e-3, 50e-3, 100e-3, 200e-3, 500e-3,
	1,
}

// TimeConstants in seconds, indexed by the OFLT parameter.
var TimeConstants = [...]float64{
	10e-6, 30e-6, 100e-6, 300e-6,
	1e-3, 3e-3, 10e-3, 30e-3, 100e-3, 300e-3,
	1, 3, 10, 30, 100, 300,
	1e3, 3e3, 10e3, 30e3,
}

// DefaultSettle is the pause after locking the front panel.
const DefaultSettle = time.Second

// AutoScale thresholds relative to the full scale of the sensitivity, and
// the number of time constants to wait before each reading.
const (
	lowerThreshold = 0.1
	upperThreshold = 1
	settleTCs      = 5
)

// InputMode selects the signal input (ISRC).
type InputMode int

const (
	InputA InputMode = iota
	InputAB
	InputI1M
	InputI100M
)

var inputModeDesc = map[InputMode]string{
	InputA:     "A",
	InputAB:    "A-B",
	InputI1M:   "I (1 MOhm)",
	InputI100M: "I (100 MOhm)",
}

func (m InputMode) String() string {
	if s, ok := inputModeDesc[m]; ok {
		return s
	}
	return fmt.Sprintf("InputMode(%d)", int(m))
}

// Description is the catalog entry of the driver.
var Description = instrument.Description{
	Name:    "Stanford Research SR830 lock-in amplifier",
	Package: "sr830",
	Methods: []instrument.Method{
		{Signature: "SetInputMode(m InputMode) error", Summary: "Selects input A, A-B, I (1 MOhm) or I (100 MOhm)."},
		{Signature: "SetFilter(sens, tc, slope int) error", Summary: "Sets slope, time constant and sensitivity indexes."},
		{Signature: "SetAuxOut(out int, volts float64) error", Summary: "Sets one of the four auxiliary outputs."},
		{Signature: "SetReference(internal bool, freq, ampl float64) error", Summary: "Selects internal or external reference."},
		{Signature: "SetScale(i int) (int, error)", Summary: "Sets the sensitivity index, clamped to the table."},
		{Signature: "Scale() (int, error)", Summary: "Reads the sensitivity index."},
		{Signature: "SetTimeConstant(i int) error", Summary: "Sets the time constant index."},
		{Signature: "TimeConstant() (int, error)", Summary: "Reads the time constant index."},
		{Signature: "SetDisplay(xy bool) error", Summary: "Shows X,Y or R,theta on the displays."},
		{Signature: "Display() ([2]float64, error)", Summary: "Reads both displays."},
		{Signature: "Measure(xy bool) ([2]float64, error)", Summary: "Reads X,Y or R,theta simultaneously."},
		{Signature: "AutoScale() (r, theta float64, err error)", Summary: "Steps the sensitivity until R is within range."},
	},
}

// LockIn is an open SR830.
type LockIn struct {
	inst  instrument.Messenger
	log   *zap.Logger
	sleep func(time.Duration)
	scale int
	tc    int
}

// Open opens resource and initializes the lock-in.
func Open(resource string, opts ...instrument.Option) (*LockIn, error) {
	s := instrument.Apply(DefaultSettle, opts)
	res, err := s.Open(resource)
	if err != nil {
		return nil, errors.Wrap(err, "sr830")
	}
	l, err := New(res, opts...)
	if err != nil {
		return nil, multierr.Append(err, res.Close())
	}
	return l, nil
}

// New locks the front panel, waits for the settle time and reads the
// current sensitivity and time constant. *IDN? is not sent; some units stall
// when it is the first message after power up.
func New(inst instrument.Messenger, opts ...instrument.Option) (*LockIn, error) {
	s := instrument.Apply(DefaultSettle, opts)
	l := &LockIn{inst: inst, log: s.Log, sleep: s.Sleep}
	if err := inst.Command("LOCL 2"); err != nil {
		return nil, errors.Wrap(err, "sr830 lock front panel")
	}
	l.sleep(s.Settle)
	if _, err := l.Scale(); err != nil {
		return nil, err
	}
	if _, err := l.TimeConstant(); err != nil {
		return nil, err
	}
	l.log.Info("connected", zap.Float64("sensitivity", Sensitivities[l.scale]),
		zap.Float64("time_constant", TimeConstants[l.tc]))
	return l, nil
}

// SetInputMode selects the signal input.
func (l *LockIn) SetInputMode(m InputMode) error {
	if _, ok := inputModeDesc[m]; !ok {
		return fmt.Errorf("sr830: invalid input mode %d", int(m))
	}
	return errors.Wrap(l.inst.Command("ISRC %d", int(m)), "sr830 input mode")
}

func checkIndex(what string, i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("sr830: %s index %d out of range 0-%d", what, i, n-1)
	}
	return nil
}

// SetFilter sets the low pass filter slope (0-3 for 6, 12, 18, 24 dB/oct),
// the time constant index and the sensitivity index.
func (l *LockIn) SetFilter(sens, tc, slope int) error {
	if err := multierr.Combine(
		checkIndex("sensitivity", sens, len(Sensitivities)),
		checkIndex("time constant", tc, len(TimeConstants)),
		checkIndex("slope", slope, 4),
	); err != nil {
		return err
	}
	for _, cmd := range []string{
		fmt.Sprintf("OFLS %d", slope),
		fmt.Sprintf("OFLT %d", tc),
		fmt.Sprintf("SENS %d", sens),
	} {
		if err := l.inst.Command(cmd); err != nil {
			return errors.Wrap(err, "sr830 filter")
		}
	}
	l.scale, l.tc = sens, tc
	return nil
}

// SetAuxOut sets auxiliary output out (1-4) to volts.
func (l *LockIn) SetAuxOut(out int, volts float64) error {
	if out < 1 || out > 4 {
		return fmt.Errorf("sr830: invalid aux output %d", out)
	}
	if volts < -10.5 || volts > 10.5 {
		return fmt.Errorf("sr830: aux voltage %g outside -10.5 to 10.5 V", volts)
	}
	return errors.Wrap(l.inst.Command("AUXV %d, %g", out, volts), "sr830 aux out")
}

// SetReference selects the internal oscillator at freq Hz with a sine
// output of ampl Vrms, or the external reference input.
func (l *LockIn) SetReference(internal bool, freq, ampl float64) error {
	if !internal {
		return errors.Wrap(l.inst.Command("FMOD 0"), "sr830 reference")
	}
	for _, cmd := range []string{
		"FMOD 1",
		fmt.Sprintf("SLVL %f", ampl),
		fmt.Sprintf("FREQ %f", freq),
	} {
		if err := l.inst.Command(cmd); err != nil {
			return errors.Wrap(err, "sr830 reference")
		}
	}
	return nil
}

// SetScale sets the sensitivity index, clamped to the table, and returns the
// index applied.
func (l *LockIn) SetScale(i int) (int, error) {
	i = max(0, min(i, len(Sensitivities)-1))
	if err := l.inst.Command("SENS %d", i); err != nil {
		return l.scale, errors.Wrap(err, "sr830 scale")
	}
	l.scale = i
	return i, nil
}

// Scale reads the sensitivity index.
func (l *LockIn) Scale() (int, error) {
	i, err := query.Int(l.inst, "SENS ?")
	if err != nil {
		return 0, errors.Wrap(err, "sr830 scale")
	}
	if err := checkIndex("sensitivity", i, len(Sensitivities)); err != nil {
		return 0, err
	}
	l.scale = i
	return i, nil
}

// SetTimeConstant sets the time constant index.
func (l *LockIn) SetTimeConstant(i int) error {
	if err := checkIndex("time constant", i, len(TimeConstants)); err != nil {
		return err
	}
	if err := l.inst.Command("OFLT %d", i); err != nil {
		return errors.Wrap(err, "sr830 time constant")
	}
	l.tc = i
	return nil
}

// TimeConstant reads the time constant index.
func (l *LockIn) TimeConstant() (int, error) {
	i, err := query.Int(l.inst, "OFLT ?")
	if err != nil {
		return 0, errors.Wrap(err, "sr830 time constant")
	}
	if err := checkIndex("time constant", i, len(TimeConstants)); err != nil {
		return 0, err
	}
	l.tc = i
	return i, nil
}

// SetDisplay shows X and Y, or R and theta, on the two displays.
func (l *LockIn) SetDisplay(xy bool) error {
	mode := 1
	if xy {
		mode = 0
	}
	for ch := 1; ch <= 2; ch++ {
		if err := l.inst.Command("DDEF %d,%d", ch, mode); err != nil {
			return errors.Wrap(err, "sr830 display")
		}
	}
	return nil
}

func (l *LockIn) snap(cmd string) ([2]float64, error) {
	v, err := l.inst.QueryFloats(cmd, ",")
	if err != nil {
		return [2]float64{}, err
	}
	if len(v) != 2 {
		return [2]float64{}, fmt.Errorf("%s: want 2 values, got %d", cmd, len(v))
	}
	return [2]float64{v[0], v[1]}, nil
}

// Display reads the values shown on both displays.
func (l *LockIn) Display() ([2]float64, error) {
	v, err := l.snap("SNAP? 10, 11")
	return v, errors.Wrap(err, "sr830 display")
}

// Measure reads X and Y, or R and theta, at the same instant.
func (l *LockIn) Measure(xy bool) ([2]float64, error) {
	mode, cmd := 1, "SNAP? 3, 4"
	if xy {
		mode, cmd = 0, "SNAP? 1, 2"
	}
	if err := l.inst.Command("DDEF 1,%d", mode); err != nil {
		return [2]float64{}, errors.Wrap(err, "sr830 measure")
	}
	v, err := l.snap(cmd)
	return v, errors.Wrap(err, "sr830 measure")
}

// AutoScale waits for the output to settle, then lowers the sensitivity
// while R is under a tenth of full scale and raises it while R is over full
// scale. It returns the last R and theta read.
func (l *LockIn) AutoScale() (r, theta float64, err error) {
	wait := time.Duration(TimeConstants[l.tc] * settleTCs * float64(time.Second))
	measure := func() error {
		l.sleep(wait)
		v, err := l.Measure(false)
		r, theta = v[0], v[1]
		return err
	}
	if err := measure(); err != nil {
		return 0, 0, err
	}
	for r < Sensitivities[l.scale]*lowerThreshold && l.scale > 0 {
		l.log.Debug("below threshold, lowering scale",
			zap.Float64("r", r), zap.Float64("scale", Sensitivities[l.scale]))
		if _, err := l.SetScale(l.scale - 1); err != nil {
			return 0, 0, err
		}
		if err := measure(); err != nil {
			return 0, 0, err
		}
	}
	for r > Sensitivities[l.scale]*upperThreshold && l.scale < len(Sensitivities)-1 {
		l.log.Debug("overloaded, raising scale",
			zap.Float64("r", r), zap.Float64("scale", Sensitivities[l.scale]))
		if _, err := l.SetScale(l.scale + 1); err != nil {
			return 0, 0, err
		}
		if err := measure(); err != nil {
			return 0, 0, err
		}
	}
	l.log.Debug("autoscale done", zap.Float64("r", r), zap.Float64("scale", Sensitivities[l.scale]))
	return r, theta, nil
}

// Close unlocks the front panel and releases the session.
func (l *LockIn) Close() error {
	err := errors.Wrap(l.inst.Command("LOCL 0"), "sr830 unlock front panel")
	return multierr.Append(err, l.inst.Close())
}
