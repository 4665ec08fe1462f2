package decoder

import (
	"math"
	"testing"

	"github.com/erik-persson/oric-toolbox/internal/tapefmt"
	"github.com/stretchr/testify/assert"
)

// buildWideTrace renders z into a WPIF-like trace: each zero bit gets
// a clean peak at the nominal 3-clock zero-symbol offset, each one bit
// leaves no peak (the reader's default assumption).
func buildWideTrace(z uint16, clk float64) (buf []float32, start int) {
	n := int(20*clk) + slowBitsPerByte*int(4*clk) + 32
	buf = make([]float32, n)
	pos := 16
	for b := 0; b < slowBitsPerByte; b++ {
		if (z>>uint(b))&1 == 0 {
			j := pos + int(math.Round(3*clk))
			buf[j] = 5
			pos = j
		} else {
			pos += int(math.Round(2 * clk))
		}
	}
	return buf, 16
}

func TestReadByteWideRecoversKnownCode(t *testing.T) {
	data := byte(0x2d)
	z := syncedCode(data)
	clk := 4.0
	buf, start := buildWideTrace(z, clk)

	got, _, _, ok := readByteWide(buf, start, clk)
	if assert.True(t, ok) {
		assert.Equal(t, data, tapefmt.GetDataBits(got))
		assert.True(t, tapefmt.IsSyncOK(got))
	}
}

// buildAreaTrace renders z into an NPIF-like trace: each zero bit gets
// a wide negative dip at the nominal 3-clock offset, each one bit
// leaves the trace flat.
func buildAreaTrace(z uint16, clk float64) (buf []float32, start int) {
	n := int(20*clk) + slowBitsPerByte*int(4*clk) + 32
	buf = make([]float32, n)
	pos := 16
	half := int(math.Round(clk))
	for b := 0; b < slowBitsPerByte; b++ {
		if (z>>uint(b))&1 == 0 {
			center := pos + int(math.Round(3*clk))
			for i := center - half; i <= center+half; i++ {
				if i >= 0 && i < len(buf) {
					buf[i] = -3
				}
			}
			pos = center
		} else {
			pos += int(math.Round(2 * clk))
		}
	}
	return buf, 16
}

func TestReadByteAreaRecoversKnownCode(t *testing.T) {
	data := byte(0x71)
	z := syncedCode(data)
	clk := 4.0
	buf, start := buildAreaTrace(z, clk)

	got, _, _, ok := readByteArea(buf, start, clk)
	if assert.True(t, ok) {
		assert.Equal(t, data, tapefmt.GetDataBits(got))
		assert.True(t, tapefmt.IsSyncOK(got))
	}
}

func TestXenonReadByteHonorsCue(t *testing.T) {
	data := byte(0x4c)
	z := syncedCode(data)
	clk := 4.0
	wpifTr, start := buildWideTrace(z, clk)
	npifTr, _ := buildAreaTrace(z, clk)

	for _, cue := range []tapefmt.Cue{tapefmt.CueWide, tapefmt.CueArea, tapefmt.CueAuto} {
		got, _, _, ok := xenonReadByte(cue, wpifTr, npifTr, start, clk)
		if assert.True(t, ok, "cue=%v", cue) {
			assert.Equal(t, data, tapefmt.GetDataBits(got), "cue=%v", cue)
		}
	}
}

func TestXenonStartConfidencePeaksNearStartBit(t *testing.T) {
	clk := 4.0
	wpifTr := make([]float32, 200)
	npifTr := make([]float32, 200)
	for k := 1; k <= 3; k++ {
		npifTr[100-k*int(clk)] = 1
	}
	wpifTr[100] = 5

	conf := xenonStartConfidence(wpifTr, npifTr, clk)
	assert.Greater(t, conf[100], 0.0)
}

func TestXenonByteTrackKeepsGoodCandidate(t *testing.T) {
	clk := 4.0
	data := byte(0x33)
	z := syncedCode(data)
	wpifTr, start := buildWideTrace(z, clk)
	npifTr, _ := buildAreaTrace(z, clk)

	conf := make([]float64, len(wpifTr))
	conf[start] = 1

	out := xenonByteTrack([]int{start}, conf, wpifTr, npifTr, clk, tapefmt.CueWide)
	if assert.Len(t, out, 1) {
		assert.Equal(t, data, tapefmt.GetDataBits(out[0].z))
	}
}
