// Copyright (c) 2020–2024 The labinst developers. All rights reserved.
// Project site: https://github.com/gotmc/labinst
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package sr830

import (
	"errors"
	"testing"
	"time"

	"github.com/gotmc/labinst/instrument"
	"github.com/gotmc/labinst/lib/fakeinst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sleeper struct{ waits []time.Duration }

func (s *sleeper) sleep(d time.Duration) { s.waits = append(s.waits, d) }

func newLockIn(t *testing.T, sens, tc string) (*LockIn, *fakeinst.Instrument, *sleeper) {
	t.Helper()
	f := fakeinst.New().On("SENS ?", sens).On("OFLT ?", tc)
	s := &sleeper{}
	l, err := New(f, instrument.WithLogger(zaptest.NewLogger(t)), instrument.WithSleep(s.sleep))
	require.NoError(t, err)
	return l, f, s
}

func TestTables(t *testing.T) {
	assert.Len(t, Sensitivities, 27)
	assert.Len(t, TimeConstants, 20)
	assert.Equal(t, 2e-9, Sensitivities[0])
	assert.Equal(t, 1.0, Sensitivities[26])
	assert.Equal(t, 30e3, TimeConstants[19])
}

func TestNew(t *testing.T) {
	l, f, s := newLockIn(t, "22", "8")
	assert.Equal(t, []string{"LOCL 2", "SENS ?", "OFLT ?"}, f.Sent)
	assert.Equal(t, []time.Duration{DefaultSettle}, s.waits)
	assert.Equal(t, 22, l.scale)
	assert.Equal(t, 8, l.tc)
}

func TestNewSettleOption(t *testing.T) {
	f := fakeinst.New().On("SENS ?", "0").On("OFLT ?", "0")
	s := &sleeper{}
	_, err := New(f, instrument.WithSleep(s.sleep), instrument.WithSettle(10*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, s.waits)
}

func TestNewBadIndex(t *testing.T) {
	f := fakeinst.New().On("SENS ?", "27").On("OFLT ?", "0")
	_, err := New(f, instrument.WithSleep(func(time.Duration) {}))
	assert.ErrorContains(t, err, "sensitivity index 27 out of range")
}

func TestSetters(t *testing.T) {
	l, f, _ := newLockIn(t, "0", "0")
	f.Reset()
	require.NoError(t, l.SetInputMode(InputAB))
	require.NoError(t, l.SetFilter(17, 9, 3))
	require.NoError(t, l.SetAuxOut(2, -1.5))
	require.NoError(t, l.SetReference(true, 1000, 0.5))
	require.NoError(t, l.SetReference(false, 0, 0))
	require.NoError(t, l.SetTimeConstant(12))
	require.NoError(t, l.SetDisplay(true))
	require.NoError(t, l.SetDisplay(false))
	assert.Equal(t, []string{
		"ISRC 1",
		"OFLS 3",
		"OFLT 9",
		"SENS 17",
		"AUXV 2, -1.5",
		"FMOD 1",
		"SLVL 0.500000",
		"FREQ 1000.000000",
		"FMOD 0",
		"OFLT 12",
		"DDEF 1,0",
		"DDEF 2,0",
		"DDEF 1,1",
		"DDEF 2,1",
	}, f.Sent)
	assert.Equal(t, 17, l.scale)
	assert.Equal(t, 12, l.tc)
}

func TestValidation(t *testing.T) {
	l, f, _ := newLockIn(t, "0", "0")
	f.Reset()
	assert.Error(t, l.SetInputMode(InputMode(4)))
	assert.Error(t, l.SetFilter(27, 0, 0))
	assert.Error(t, l.SetFilter(0, 20, 0))
	assert.Error(t, l.SetFilter(0, 0, 4))
	assert.Error(t, l.SetAuxOut(0, 1))
	assert.Error(t, l.SetAuxOut(5, 1))
	assert.Error(t, l.SetAuxOut(1, 10.6))
	assert.Error(t, l.SetAuxOut(1, -11))
	assert.Error(t, l.SetTimeConstant(-1))
	assert.Empty(t, f.Sent)
}

func TestSetScaleClamps(t *testing.T) {
	l, f, _ := newLockIn(t, "10", "0")
	f.Reset()
	for given, want := range map[int]int{-3: 0, 5: 5, 26: 26, 40: 26} {
		got, err := l.SetScale(given)
		require.NoError(t, err)
		assert.Equal(t, want, got, "SetScale(%d)", given)
	}
	assert.Contains(t, f.Sent, "SENS 26")
	assert.NotContains(t, f.Sent, "SENS 27")
}

func TestMeasureAndDisplay(t *testing.T) {
	l, f, _ := newLockIn(t, "0", "0")
	f.On("SNAP? 1, 2", "1.5e-3,-2e-4").On("SNAP? 3, 4", "1.51e-3,-7.6").On("SNAP? 10, 11", "3,4")
	f.Reset()

	xy, err := l.Measure(true)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{1.5e-3, -2e-4}, xy)
	rt, err := l.Measure(false)
	require.NoError(t, err)
	assert.Equal(t, [2]float64{1.51e-3, -7.6}, rt)
	d, err := l.Display()
	require.NoError(t, err)
	assert.Equal(t, [2]float64{3, 4}, d)
	assert.Equal(t, []string{"DDEF 1,0", "SNAP? 1, 2", "DDEF 1,1", "SNAP? 3, 4", "SNAP? 10, 11"}, f.Sent)
}

func TestMeasureShortResponse(t *testing.T) {
	l, f, _ := newLockIn(t, "0", "0")
	f.On("SNAP? 1, 2", "1.5e-3")
	_, err := l.Measure(true)
	assert.ErrorContains(t, err, "want 2 values")
}

func TestAutoScaleDown(t *testing.T) {
	// 100 mV scale (23) with 1 s time constant (10) and a 3 mV signal:
	// under 10 mV steps down to 50 mV, under 5 mV steps down to 20 mV, where
	// 3 mV is above the 2 mV threshold.
	l, f, s := newLockIn(t, "23", "10")
	f.On("SNAP? 3, 4", "3e-3,12").Reset()
	s.waits = nil

	r, theta, err := l.AutoScale()
	require.NoError(t, err)
	assert.Equal(t, 3e-3, r)
	assert.Equal(t, 12.0, theta)
	assert.Equal(t, 21, l.scale)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, s.waits)
	assert.Equal(t, []string{
		"DDEF 1,1", "SNAP? 3, 4",
		"SENS 22", "DDEF 1,1", "SNAP? 3, 4",
		"SENS 21", "DDEF 1,1", "SNAP? 3, 4",
	}, f.Sent)
}

func TestAutoScaleUp(t *testing.T) {
	l, f, _ := newLockIn(t, "17", "0")
	f.On("SNAP? 3, 4", "2.5e-3,0", "2.5e-3,0", "2.5e-3,0").Reset()

	r, _, err := l.AutoScale()
	require.NoError(t, err)
	assert.Equal(t, 2.5e-3, r)
	assert.Equal(t, 19, l.scale)
	assert.Contains(t, f.Sent, "SENS 18")
	assert.Contains(t, f.Sent, "SENS 19")
}

func TestAutoScaleBounded(t *testing.T) {
	l, f, _ := newLockIn(t, "0", "0")
	f.On("SNAP? 3, 4", "0,0")
	r, _, err := l.AutoScale()
	require.NoError(t, err)
	assert.Zero(t, r)
	assert.Equal(t, 0, l.scale)

	l, f, _ = newLockIn(t, "26", "0")
	f.On("SNAP? 3, 4", "5,0")
	_, _, err = l.AutoScale()
	require.NoError(t, err)
	assert.Equal(t, 26, l.scale)
}

func TestClose(t *testing.T) {
	l, f, _ := newLockIn(t, "0", "0")
	f.Reset()
	f.CloseErr = errors.New("bus error")
	err := l.Close()
	assert.EqualError(t, err, "bus error")
	assert.Equal(t, []string{"LOCL 0"}, f.Sent)
	assert.True(t, f.Closed)
}

func TestInputModeString(t *testing.T) {
	assert.Equal(t, "I (100 MOhm)", InputI100M.String())
	assert.Equal(t, "InputMode(7)", InputMode(7).String())
}
