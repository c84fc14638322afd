// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package afg3021b drives a Tektronix AFG3021B single channel arbitrary
// function generator.
package afg3021b

import (
	"fmt"
	"strings"

	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/query"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultResource is the generator of the teaching lab.
const DefaultResource = "USB0::0x0699::0x0346::C034165::INSTR"

// Function is an output waveform shape.
type Function string

// Shapes accepted by SetFunction.
const (
	Sine   Function = "SIN"
	Square Function = "SQU"
	Ramp   Function = "RAMP"
	Pulse  Function = "PULS"
	Noise  Function = "NOIS"
	DC     Function = "DC"
	User   Function = "USER"
)

var functions = []Function{Sine, Square, Ramp, Pulse, Noise, DC, User}

// ParseFunction accepts a shape name in any case.
func ParseFunction(s string) (Function, error) {
	f := Function(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range functions {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("afg3021b: unknown function %q", s)
}

// Description is the catalog entry of the driver.
var Description = instrument.Description{
	Name:    "Tektronix AFG3021B function generator",
	Package: "afg3021b",
	Methods: []instrument.Method{
		{Signature: "SetFrequency(hz float64) error", Summary: "Sets the output frequency."},
		{Signature: "Frequency() (float64, error)", Summary: "Reads the output frequency."},
		{Signature: "SetAmplitude(vpp float64) error", Summary: "Sets the amplitude in volts peak to peak."},
		{Signature: "Amplitude() (float64, error)", Summary: "Reads the amplitude."},
		{Signature: "SetFunction(fn Function) error", Summary: "Selects SIN, SQU, RAMP, PULS, NOIS, DC or USER."},
		{Signature: "SetOutput(on bool) error", Summary: "Switches the output on or off."},
	},
}

// Generator is an open AFG3021B.
type Generator struct {
	inst instrument.Messenger
	log  *zap.Logger
}

// Open opens resource, DefaultResource when empty, and switches the output
// on.
func Open(resource string, opts ...instrument.Option) (*Generator, error) {
	if resource == "" {
		resource = DefaultResource
	}
	s := instrument.Apply(0, opts)
	res, err := s.Open(resource)
	if err != nil {
		return nil, errors.Wrap(err, "afg3021b")
	}
	g, err := New(res, opts...)
	if err != nil {
		return nil, multierr.Append(err, res.Close())
	}
	return g, nil
}

// New identifies the generator on an open session and switches the output
// on.
func New(inst instrument.Messenger, opts ...instrument.Option) (*Generator, error) {
	s := instrument.Apply(0, opts)
	g := &Generator{inst: inst, log: s.Log}
	if _, err := instrument.Identify(inst, g.log); err != nil {
		return nil, errors.Wrap(err, "afg3021b identify")
	}
	if err := g.SetOutput(true); err != nil {
		return nil, err
	}
	return g, nil
}

// SetFrequency sets the output frequency in Hz.
func (g *Generator) SetFrequency(hz float64) error {
	if hz <= 0 {
		return fmt.Errorf("afg3021b: frequency %g Hz must be positive", hz)
	}
	return errors.Wrap(g.inst.Command("FREQ %g", hz), "afg3021b frequency")
}

// Frequency reads the output frequency in Hz.
func (g *Generator) Frequency() (float64, error) {
	f, err := query.Float64(g.inst, "FREQ?")
	return f, errors.Wrap(err, "afg3021b frequency")
}

// SetAmplitude sets the amplitude in volts peak to peak.
func (g *Generator) SetAmplitude(vpp float64) error {
	if vpp < 0 {
		return fmt.Errorf("afg3021b: amplitude %g Vpp must not be negative", vpp)
	}
	return errors.Wrap(g.inst.Command("VOLT %g", vpp), "afg3021b amplitude")
}

// Amplitude reads the amplitude in volts peak to peak.
func (g *Generator) Amplitude() (float64, error) {
	a, err := query.Float64(g.inst, "VOLT?")
	return a, errors.Wrap(err, "afg3021b amplitude")
}

// SetFunction selects the waveform shape.
func (g *Generator) SetFunction(fn Function) error {
	fn, err := ParseFunction(string(fn))
	if err != nil {
		return err
	}
	return errors.Wrap(g.inst.Command("FUNC %s", fn), "afg3021b function")
}

// SetOutput switches the output of channel 1.
func (g *Generator) SetOutput(on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	g.log.Debug("output", zap.Bool("on", on))
	return errors.Wrap(g.inst.Command("OUTPut1:STATe %s", state), "afg3021b output")
}

// Close releases the session. The output is left as it is.
func (g *Generator) Close() error {
	return g.inst.Close()
}
