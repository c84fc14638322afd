package tek

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func TestParsePreamble(t *testing.T) {
	p, err := ParsePreamble([]float64{-2.5e-3, 2e-6, 0, 8e-4, 127})
	require.NoError(t, err)
	assert.Equal(t, Preamble{XZero: -2.5e-3, XIncr: 2e-6, YMult: 8e-4, YOff: 127}, p)

	_, err = ParsePreamble([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	p := Preamble{YZero: 0.1, YMult: 0.5, YOff: 128}
	got := p.Scale([]byte{0, 128, 255})
	want := []float64{-63.9, 0.1, 63.6}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Scale mismatch (-want +got):\n%s", diff)
	}
}

func TestScaleSigned(t *testing.T) {
	p := Preamble{YMult: 0.25}
	got := p.ScaleSigned([]byte{0x80, 0x00, 0x7f})
	want := []float64{-32, 0, 31.75}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("ScaleSigned mismatch (-want +got):\n%s", diff)
	}
}

func TestTimes(t *testing.T) {
	p := Preamble{XZero: -1e-3, XIncr: 4e-4}
	want := []float64{-1e-3, -6e-4, -2e-4, 2e-4}
	if diff := cmp.Diff(want, p.Times(4), approx); diff != "" {
		t.Errorf("Times mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, p.Times(0))
}

func TestRange(t *testing.T) {
	p := Preamble{YZero: 0, YMult: 8e-4, YOff: 128}
	r := p.Range()
	assert.InDelta(t, -0.1024, r[0], 1e-12)
	assert.InDelta(t, 0.1016, r[1], 1e-12)
}

func TestRangeSigned(t *testing.T) {
	p := Preamble{YZero: 0, YMult: 8e-4, YOff: 0}
	r := p.RangeSigned()
	assert.InDelta(t, -0.1024, r[0], 1e-12)
	assert.InDelta(t, 0.1016, r[1], 1e-12)
}
