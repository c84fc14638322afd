// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package kurios

import (
	"testing"

	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/labinst/lib/fakeinst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newFilter(t *testing.T) (*Filter, *fakeinst.Instrument) {
	t.Helper()
	f := fakeinst.New().On("*IDN?", "THORLABS KURIOS-WB1 VERSION 1.2.0")
	k, err := New(f, instrument.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return k, f
}

func TestNew(t *testing.T) {
	_, f := newFilter(t)
	assert.Equal(t, []string{"*IDN?", "OM=1"}, f.Sent)
}

func TestSetters(t *testing.T) {
	k, f := newFilter(t)
	f.Reset()
	require.NoError(t, k.SetWavelength(550))
	require.NoError(t, k.SetWavelength(632.8))
	require.NoError(t, k.SetBandwidth(Narrow))
	require.NoError(t, k.SetBandwidth(Black))
	assert.Equal(t, []string{"WL=550", "WL=632.8", "BD=8", "BD=1"}, f.Sent)
}

func TestValidation(t *testing.T) {
	k, f := newFilter(t)
	f.Reset()
	assert.Error(t, k.SetWavelength(0))
	assert.Error(t, k.SetBandwidth(3))
	assert.Empty(t, f.Sent)
}

func TestParseBandwidth(t *testing.T) {
	for given, want := range map[string]Bandwidth{
		"black": Black, "WIDE": Wide, " medium ": Medium, "8": Narrow, "2": Wide,
	} {
		b, err := ParseBandwidth(given)
		require.NoError(t, err, given)
		assert.Equal(t, want, b, given)
	}
	for _, bad := range []string{"3", "ultra", ""} {
		_, err := ParseBandwidth(bad)
		assert.Error(t, err, bad)
	}
	assert.Equal(t, "NARROW", Narrow.String())
}

func TestTemperature(t *testing.T) {
	k, f := newFilter(t)
	f.On("TP?", "TP=24.8", "> 25.1", "tp=26", "hot")
	for _, want := range []float64{24.8, 25.1, 26} {
		got, err := k.Temperature()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := k.Temperature()
	assert.Error(t, err)
}
