package dsp

// fftCrossoverTaps is the filter length at or above which HannLowpass
// computes its first-window seed sums by FFT correlation instead of a
// direct dot product; the incremental update that follows is the same.
// The teacher's internal/engine/fft_convolve.go documents a crossover in
// the 400-500 tap range for its own convolution stage; Balancer.lp_filterlen
// can exceed that at low reference rates, so the same order-of-magnitude
// threshold is used here.
const fftCrossoverTaps = 512
