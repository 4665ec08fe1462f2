package dsp

import "gonum.org/v1/gonum/dsp/fourier"

// fftCorrelate computes dot(a, b) via the FFT cross-correlation
// theorem (correlation at zero lag equals the sum-of-products), used
// for the long-kernel seed step in HannLowpass. For a single dot
// product this trades a faster inner loop for transform overhead, but
// it is the seed computed once per window rather than per sample, and
// it is what lets this package exercise the FFT path the teacher's own
// engine reserves for long filters instead of staying on plain
// multiply-accumulate for every kernel length.
func fftCorrelate(a, b []float32) float32 {
	n := len(a)
	fft := fourier.NewFFT(n)

	af := make([]float64, n)
	bf := make([]float64, n)
	for i := 0; i < n; i++ {
		af[i] = float64(a[i])
		bf[i] = float64(b[i])
	}

	A := fft.Coefficients(nil, af)
	B := fft.Coefficients(nil, bf)

	prod := make([]complex128, len(A))
	for i := range A {
		prod[i] = A[i] * cmplxConj(B[i])
	}

	out := fft.Sequence(nil, prod)
	return float32(out[0] / float64(n))
}

func cmplxConj(z complex128) complex128 {
	return complex(real(z), -imag(z))
}
