// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package kurios drives a Thorlabs Kurios liquid crystal tunable filter
// controller over its serial port.
package kurios

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gotmc/labinst"
	"github.com/gotmc/labinst/instrument"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// BaudRate of the controller's virtual COM port.
const BaudRate = 115200

// Bandwidth is a filter bandwidth mode.
type Bandwidth int

// Bandwidth codes of the BD command. Not every filter model supports every
// mode.
const (
	Black  Bandwidth = 1
	Wide   Bandwidth = 2
	Medium Bandwidth = 4
	Narrow Bandwidth = 8
)

var bandwidthDesc = map[Bandwidth]string{
	Black:  "BLACK",
	Wide:   "WIDE",
	Medium: "MEDIUM",
	Narrow: "NARROW",
}

func (b Bandwidth) String() string {
	if s, ok := bandwidthDesc[b]; ok {
		return s
	}
	return fmt.Sprintf("Bandwidth(%d)", int(b))
}

// ParseBandwidth accepts a mode name in any case or its numeric code.
func ParseBandwidth(s string) (Bandwidth, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := bandwidthDesc[Bandwidth(n)]; ok {
			return Bandwidth(n), nil
		}
	}
	for b, name := range bandwidthDesc {
		if name == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("kurios: unknown bandwidth %q", s)
}

// Description is the catalog entry of the driver.
var Description = instrument.Description{
	Name:    "Thorlabs Kurios tunable filter",
	Package: "kurios",
	Methods: []instrument.Method{
		{Signature: "SetWavelength(nm float64) error", Summary: "Sets the center wavelength."},
		{Signature: "SetBandwidth(b Bandwidth) error", Summary: "Selects BLACK, WIDE, MEDIUM or NARROW."},
		{Signature: "Temperature() (float64, error)", Summary: "Reads the filter temperature in degrees Celsius."},
	},
}

// Filter is an open Kurios controller.
type Filter struct {
	inst instrument.Messenger
	log  *zap.Logger
}

// Open opens resource with the controller's serial settings and switches it
// to manual mode.
func Open(resource string, opts ...instrument.Option) (*Filter, error) {
	s := instrument.Apply(0, opts)
	res, err := s.Open(resource,
		labinst.WithBaudRate(BaudRate),
		labinst.WithWriteTermination("\r"),
		labinst.WithReadTermination('\r'),
	)
	if err != nil {
		return nil, errors.Wrap(err, "kurios")
	}
	k, err := New(res, opts...)
	if err != nil {
		return nil, multierr.Append(err, res.Close())
	}
	return k, nil
}

// New identifies the controller on an open session and switches it to
// manual mode.
func New(inst instrument.Messenger, opts ...instrument.Option) (*Filter, error) {
	s := instrument.Apply(0, opts)
	k := &Filter{inst: inst, log: s.Log}
	if _, err := instrument.Identify(inst, k.log); err != nil {
		return nil, errors.Wrap(err, "kurios identify")
	}
	if err := inst.Command("OM=1"); err != nil {
		return nil, errors.Wrap(err, "kurios manual mode")
	}
	return k, nil
}

// SetWavelength sets the center wavelength in nm.
func (k *Filter) SetWavelength(nm float64) error {
	if nm <= 0 {
		return fmt.Errorf("kurios: wavelength %g nm must be positive", nm)
	}
	return errors.Wrap(k.inst.Command("WL=%g", nm), "kurios wavelength")
}

// SetBandwidth selects the bandwidth mode.
func (k *Filter) SetBandwidth(b Bandwidth) error {
	if _, ok := bandwidthDesc[b]; !ok {
		return fmt.Errorf("kurios: invalid bandwidth code %d", int(b))
	}
	return errors.Wrap(k.inst.Command("BD=%d", int(b)), "kurios bandwidth")
}

// Temperature reads the filter temperature in degrees Celsius.
func (k *Filter) Temperature() (float64, error) {
	s, err := k.inst.Query("TP?")
	if err != nil {
		return 0, errors.Wrap(err, "kurios temperature")
	}
	t, err := parseTemperature(s)
	return t, errors.Wrap(err, "kurios temperature")
}

// parseTemperature accepts "25.3", "TP=25.3" and either with the ">" prompt.
func parseTemperature(s string) (float64, error) {
	s = strings.TrimSpace(strings.Trim(s, ">"))
	s = strings.TrimPrefix(strings.ToUpper(s), "TP=")
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Close releases the session.
func (k *Filter) Close() error {
	return k.inst.Close()
}
