// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package tds1002b

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/labinst/lib/fakeinst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const preamble = "WFMPRE:XZE?;XIN?;YZE?;YMU?;YOFF?;"

func newScope(t *testing.T) (*Scope, *fakeinst.Instrument) {
	t.Helper()
	f := fakeinst.New().On("*IDN?", "TEKTRONIX,TDS 1002B,C102223,CF:91.1CT FV:v22.11")
	sc, err := New(f, instrument.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return sc, f
}

func TestNew(t *testing.T) {
	_, f := newScope(t)
	assert.Equal(t, []string{
		"*IDN?",
		"DAT:ENC RPB",
		"DAT:WID 1",
		"DAT:STAR 1",
		"DAT:STOP 2500",
		"ACQ:MOD SAMP",
		"LOC",
	}, f.Sent)
}

func TestNewIdentifyFails(t *testing.T) {
	_, err := New(fakeinst.New())
	assert.ErrorContains(t, err, "tds1002b identify")
}

func TestConfigure(t *testing.T) {
	sc, f := newScope(t)
	f.Reset()
	require.NoError(t, sc.Configure())
	require.NoError(t, sc.Unlock())
	assert.Equal(t, []string{
		"CH1:SCA 0.02",
		"CH1:POS 0",
		"CH2:SCA 0.02",
		"CH2:POS 0",
		"HOR:SCA 0.001",
		"HOR:POS 0",
		"UNLOC",
	}, f.Sent)
}

func TestSettingsQueries(t *testing.T) {
	sc, f := newScope(t)
	f.On("CH2?", "2.0E-2;0.0E0;DC;OFF;1").On("HOR?", "1;1.0E-3;0.0E0")
	s, err := sc.Channel(2)
	require.NoError(t, err)
	assert.Equal(t, "2.0E-2;0.0E0;DC;OFF;1", s)
	s, err = sc.Time()
	require.NoError(t, err)
	assert.Equal(t, "1;1.0E-3;0.0E0", s)
}

func TestInvalidChannel(t *testing.T) {
	sc, f := newScope(t)
	f.Reset()
	assert.Error(t, sc.SetChannel(3, 1, 0))
	_, err := sc.Channel(0)
	assert.Error(t, err)
	_, err = sc.ReadData(5)
	assert.Error(t, err)
	_, err = sc.Range(-1)
	assert.Error(t, err)
	assert.Empty(t, f.Sent)
}

func TestReadData(t *testing.T) {
	sc, f := newScope(t)
	f.On(preamble, "-5.0E-3;4.0E-6;0.0E0;8.0E-4;1.28E2").
		OnBlock("CURV?", []byte{128, 0, 255, 130})
	f.Reset()

	w, err := sc.ReadData(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"SEL:CH2 ON", "DAT:SOU CH2", preamble, "CURV?"}, f.Sent)

	approx := cmpopts.EquateApprox(0, 1e-12)
	want := Waveform{
		Time:  []float64{-5e-3, -4.996e-3, -4.992e-3, -4.988e-3},
		Volts: []float64{0, -0.1024, 0.1016, 0.0016},
	}
	if diff := cmp.Diff(want, w, approx); diff != "" {
		t.Errorf("ReadData mismatch (-want +got):\n%s", diff)
	}
}

func TestReadDataBadPreamble(t *testing.T) {
	sc, f := newScope(t)
	f.On(preamble, "1;2;3")
	_, err := sc.ReadData(1)
	assert.ErrorContains(t, err, "want 5 values")
}

func TestRange(t *testing.T) {
	sc, f := newScope(t)
	f.On(preamble, "0;1e-6;0.5;0.01;127")
	f.Reset()
	r, err := sc.Range(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"DAT:SOU CH1", preamble}, f.Sent)
	assert.InDelta(t, -0.77, r[0], 1e-12)
	assert.InDelta(t, 1.78, r[1], 1e-12)
}

func TestSignedEncoding(t *testing.T) {
	sc, f := newScope(t)
	f.On(preamble, "0;1e-3;0;0.01;0").
		OnBlock("CURV?", []byte{0x80, 0x00, 0x7f})
	f.Reset()

	assert.Error(t, sc.SetEncoding("ASCII"))
	require.NoError(t, sc.SetEncoding(Signed))
	w, err := sc.ReadData(1)
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{-1.28, 0, 1.27}, w.Volts, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("signed volts mismatch (-want +got):\n%s", diff)
	}
	r, err := sc.Range(1)
	require.NoError(t, err)
	assert.InDelta(t, -1.28, r[0], 1e-12)
	assert.InDelta(t, 1.27, r[1], 1e-12)
	assert.Equal(t, "DAT:ENC RIB", f.Sent[0])
}

func TestClose(t *testing.T) {
	sc, f := newScope(t)
	f.CloseErr = errors.New("gone")
	assert.EqualError(t, sc.Close(), "gone")
	assert.True(t, f.Closed)
}
