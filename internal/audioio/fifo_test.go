package audioio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFIFOWriteReadRoundTrip(t *testing.T) {
	f := NewFIFO(8)
	n := f.Write([]float32{1, 2, 3})
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, f.Available())

	dst := make([]float32, 3)
	got := f.Read(dst)
	assert.Equal(t, 3, got)
	assert.Equal(t, []float32{1, 2, 3}, dst)
	assert.Equal(t, 0, f.Available())
}

func TestFIFOCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	f := NewFIFO(5)
	assert.Equal(t, 8, f.Capacity())
}

func TestFIFOWriteTruncatesWhenFull(t *testing.T) {
	f := NewFIFO(4)
	n := f.Write([]float32{1, 2, 3, 4, 5, 6})
	assert.Equal(t, 4, n)
	assert.Equal(t, 0, f.Free())
}

func TestFIFOReadTruncatesWhenEmpty(t *testing.T) {
	f := NewFIFO(4)
	f.Write([]float32{1, 2})
	dst := make([]float32, 10)
	n := f.Read(dst)
	assert.Equal(t, 2, n)
}

func TestFIFOWrapsAroundRingBoundary(t *testing.T) {
	f := NewFIFO(4)
	f.Write([]float32{1, 2, 3})
	buf := make([]float32, 3)
	f.Read(buf)

	n := f.Write([]float32{4, 5, 6})
	assert.Equal(t, 3, n)

	dst := make([]float32, 3)
	got := f.Read(dst)
	assert.Equal(t, 3, got)
	assert.Equal(t, []float32{4, 5, 6}, dst)
}

// TestFIFOConcurrentProducerConsumer exercises the single-producer/
// single-consumer contract under the race detector: one goroutine
// writes, another reads, and every byte written is eventually read
// back in order.
func TestFIFOConcurrentProducerConsumer(t *testing.T) {
	f := NewFIFO(64)
	const total = 100000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		i := 0
		for i < total {
			chunk := []float32{float32(i)}
			if f.Write(chunk) == 1 {
				i++
			}
		}
	}()

	var got []float32
	go func() {
		defer wg.Done()
		dst := make([]float32, 1)
		for len(got) < total {
			if f.Read(dst) == 1 {
				got = append(got, dst[0])
			}
		}
	}()

	wg.Wait()
	assert.Len(t, got, total)
	for i, v := range got {
		assert.Equal(t, float32(i), v)
	}
}
