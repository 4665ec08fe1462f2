// Package dsp provides the signal-processing primitives shared by the
// balancer, demodulator and binarizers: cubic and linear interpolation,
// running min/max, and an incrementally-updated Hann low-pass filter.
package dsp

import "math"

// Interp performs Catmull-Rom-style four-point cubic interpolation of
// vals at fractional position x. Samples outside [0, len(vals)) are
// treated as zero.
func Interp(vals []float32, x float64) float32 {
	x0 := int(math.Floor(x))
	frac := float32(x - float64(x0))

	y0 := sampleAt(vals, x0-1)
	y1 := sampleAt(vals, x0)
	y2 := sampleAt(vals, x0+1)
	y3 := sampleAt(vals, x0+2)

	return y1 + frac*(y2-y0+frac*(2*y0-5*y1+4*y2-y3+frac*(-y0+3*y1-3*y2+y3)))/2
}

// InterpLin performs two-point linear interpolation of vals at
// fractional position x. Samples outside [0, len(vals)) are treated as
// zero.
func InterpLin(vals []float32, x float64) float32 {
	x0 := int(math.Floor(x))
	frac := float32(x - float64(x0))

	y0 := sampleAt(vals, x0)
	y1 := sampleAt(vals, x0+1)

	return y0 + frac*(y1-y0)
}

func sampleAt(vals []float32, i int) float32 {
	if i >= 0 && i < len(vals) {
		return vals[i]
	}
	return 0
}
