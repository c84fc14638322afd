// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

//go:build hardware

package instrument_test

import (
	"os"
	"testing"

	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/labinst/instrument/afg3021b"
	"github.com/gotmc/labinst/instrument/agilent34970a"
	"github.com/gotmc/labinst/instrument/kurios"
	"github.com/gotmc/labinst/instrument/sr830"
	"github.com/gotmc/labinst/instrument/tds1002b"
	"github.com/gotmc/labinst/lib/config"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// resource returns the resource of the named instrument from .env or the
// environment, skipping the test when it is not set.
func resource(t *testing.T, name string) string {
	t.Helper()
	_ = godotenv.Load("../.env")
	res, ok := os.LookupEnv(config.EnvName(name))
	if !ok || res == "" {
		t.Skipf("%s not set", config.EnvName(name))
	}
	return res
}

func TestHardwareScope(t *testing.T) {
	sc, err := tds1002b.Open(resource(t, "scope"), instrument.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer sc.Close()
	w, err := sc.ReadData(1)
	require.NoError(t, err)
	assert.Len(t, w.Volts, tds1002b.RecordLength)
	require.NoError(t, sc.Unlock())
}

func TestHardwareMux(t *testing.T) {
	cfg := agilent34970a.DefaultConfig()
	cfg.Channels = []int{101}
	m, err := agilent34970a.Open(resource(t, "mux"), cfg, instrument.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer m.Close()
	scan, err := m.OneScan()
	require.NoError(t, err)
	assert.Len(t, scan.Readings, 1)
}

func TestHardwareLockIn(t *testing.T) {
	l, err := sr830.Open(resource(t, "lockin"), instrument.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer l.Close()
	_, err = l.Measure(true)
	require.NoError(t, err)
}

func TestHardwareGenerator(t *testing.T) {
	g, err := afg3021b.Open(resource(t, "fgen"), instrument.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.SetFrequency(1234))
	hz, err := g.Frequency()
	require.NoError(t, err)
	assert.InDelta(t, 1234, hz, 1e-6)
}

func TestHardwareFilter(t *testing.T) {
	k, err := kurios.Open(resource(t, "filter"), instrument.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer k.Close()
	temp, err := k.Temperature()
	require.NoError(t, err)
	assert.Greater(t, temp, 0.0)
}
