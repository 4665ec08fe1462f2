package dsp

import (
	"math"

	"github.com/erik-persson/oric-toolbox/internal/simdops"
)

// f32ops is the generic SIMD dispatch this package's convolution steps
// run through, rather than calling github.com/tphakala/simd/f32
// directly, so the same call sites work unmodified if a future stage
// needs the float64 instantiation.
var f32ops = simdops.Float32Ops()

// HannLowpass convolves src with a raised-cosine (Hann) kernel of the
// given odd filterlen, normalized to unit sum, producing
// len(src)-filterlen+1 outputs.
//
// The first output is computed by direct convolution; every following
// output is obtained from the previous one by an O(1) incremental
// update of three running accumulators (r, c, s) representing the
// kernel's DC, cosine and sine components, which is what lets this run
// in O(1) per sample instead of O(filterlen) and is required for long
// recordings. Above fftCrossoverTaps the direct-convolution seed step
// itself is computed via FFT instead of a plain dot product.
func HannLowpass(src []float32, filterlen int) []float32 {
	if filterlen <= 0 || filterlen%2 == 0 {
		panic("dsp: filterlen must be a positive odd number")
	}
	srclen := len(src)
	dstlen := srclen - filterlen + 1
	if dstlen < 0 {
		panic("dsp: filterlen exceeds input length")
	}
	dst := make([]float32, dstlen)
	if dstlen == 0 {
		return dst
	}

	ckern := make([]float32, filterlen)
	skern := make([]float32, filterlen)
	k := 2 * math.Pi / float64(filterlen)
	var csum float32
	for i := 0; i < filterlen; i++ {
		phi := k * float64(i-filterlen/2)
		ckern[i] = float32(math.Cos(phi))
		skern[i] = float32(math.Sin(phi))
		csum += ckern[i]
	}

	kh := 1.0 / (float32(filterlen) + csum)

	var r, c, s float32
	if filterlen >= fftCrossoverTaps {
		r, c, s = seedViaFFT(src[:filterlen], ckern, skern)
	} else {
		r = sumFloat32(src[:filterlen])
		c = f32ops.DotProductUnsafe(src[:filterlen], ckern)
		s = f32ops.DotProductUnsafe(src[:filterlen], skern)
	}
	dst[0] = kh * (r + c)

	for i := 1; i < dstlen; i++ {
		dx := src[i+filterlen-1] - src[i-1]
		j := (i - 1) % filterlen

		r += dx
		c += dx * ckern[j]
		s += dx * skern[j]

		j = (i + filterlen/2) % filterlen
		dst[i] = kh * (ckern[j]*c + skern[j]*s + r)
	}

	return dst
}

func sumFloat32(xs []float32) float32 {
	return f32ops.Sum(xs)
}

// seedViaFFT computes the same three running sums that the direct
// convolution loop would produce for the first window, using an FFT
// based correlation instead of a plain dot product. This is what long
// low-pass kernels (the Balancer's lp_filterlen at low reference rates)
// exercise the gonum FFT path for; the recurrence that follows is
// identical regardless of how the seed was computed.
func seedViaFFT(window, ckern, skern []float32) (r, c, s float32) {
	r = sumFloat32(window)
	c = fftCorrelate(window, ckern)
	s = fftCorrelate(window, skern)
	return
}
