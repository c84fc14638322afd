// Package tek converts Tektronix oscilloscope waveform transfers into
// physical units.
package tek

import (
	"fmt"
)

// PreambleQuery asks for the preamble fields Preamble needs, in the order
// ParsePreamble expects them.
const PreambleQuery = "WFMPRE:XZE?;XIN?;YZE?;YMU?;YOFF?;"

// Preamble holds the scaling fields of a waveform preamble.
type Preamble struct {
	XZero float64 // XZE, time of the first point in s
	XIncr float64 // XIN, time between points in s
	YZero float64 // YZE, offset in volts
	YMult float64 // YMU, volts per code
	YOff  float64 // YOFF, code of the vertical position
}

// ParsePreamble builds a Preamble from the five values returned by
// PreambleQuery.
func ParsePreamble(vals []float64) (Preamble, error) {
	if len(vals) != 5 {
		return Preamble{}, fmt.Errorf("preamble: want 5 values, got %d", len(vals))
	}
	return Preamble{
		XZero: vals[0],
		XIncr: vals[1],
		YZero: vals[2],
		YMult: vals[3],
		YOff:  vals[4],
	}, nil
}

// Volts converts a single raw code.
func (p Preamble) Volts(code float64) float64 {
	return (code-p.YOff)*p.YMult + p.YZero
}

// Scale converts RPB (unsigned, one byte per point) curve data to volts.
func (p Preamble) Scale(raw []byte) []float64 {
	v := make([]float64, len(raw))
	for i, b := range raw {
		v[i] = p.Volts(float64(b))
	}
	return v
}

// ScaleSigned converts RIB (signed, one byte per point) curve data to volts.
func (p Preamble) ScaleSigned(raw []byte) []float64 {
	v := make([]float64, len(raw))
	for i, b := range raw {
		v[i] = p.Volts(float64(int8(b)))
	}
	return v
}

// Times returns the sample times of an n point record.
func (p Preamble) Times(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = p.XZero + float64(i)*p.XIncr
	}
	return t
}

// Range returns the voltages of the lowest and highest RPB codes, i.e. the
// span the screen can show with the current settings.
func (p Preamble) Range() [2]float64 {
	return [2]float64{p.Volts(0), p.Volts(255)}
}

// RangeSigned is Range for RIB codes.
func (p Preamble) RangeSigned() [2]float64 {
	return [2]float64{p.Volts(-128), p.Volts(127)}
}
