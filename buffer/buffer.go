package buffer

import (
	"math"
	"sync"
)

type Average float64
type Minimum float64
type Maximum float64
type Sum float64
type Size int
type Position int

// SampleBuffer is a fixed size ring of float64 samples. Writers push
// one sample per period; readers take rolling aggregates. A buffer can
// cascade into further buffers: each time the ring wraps, its average,
// minimum or maximum for the completed pass is pushed downstream, which
// is how per-read samples roll up into minute and hour series.
type SampleBuffer struct {
	position int
	size     int
	data     []float64
	lock     sync.Mutex
	first    bool

	avgOut *SampleBuffer
	minOut *SampleBuffer
	maxOut *SampleBuffer
}

func NewBuffer(size int) *SampleBuffer {
	b := SampleBuffer{}
	b.first = true

	b.size = size
	b.data = make([]float64, size)

	return &b
}

// SetAutoAverage pushes the buffer average into out each time the ring
// wraps. Cascades must form a chain, never a cycle.
func (b *SampleBuffer) SetAutoAverage(out *SampleBuffer) {
	b.avgOut = out
}

// SetAutoMinimum pushes the buffer minimum into out each time the ring
// wraps.
func (b *SampleBuffer) SetAutoMinimum(out *SampleBuffer) {
	b.minOut = out
}

// SetAutoMaximum pushes the buffer maximum into out each time the ring
// wraps.
func (b *SampleBuffer) SetAutoMaximum(out *SampleBuffer) {
	b.maxOut = out
}

func (b *SampleBuffer) AddItem(val float64) {
	b.lock.Lock()
	b.data[b.position] = val
	b.position += 1
	if b.first {
		// fill so early aggregates aren't dragged down by zeros
		for i := b.position; i < b.size; i++ {
			b.data[i] = val
		}
		b.first = false
	}
	wrapped := b.position == b.size
	if wrapped {
		b.position = 0
	}
	var avg Average
	var mn Minimum
	var mx Maximum
	if wrapped {
		avg, mn, mx, _ = b.getAverageMinMaxSum()
	}
	b.lock.Unlock()

	// downstream pushes happen outside our own lock
	if wrapped {
		if b.avgOut != nil {
			b.avgOut.AddItem(float64(avg))
		}
		if b.minOut != nil {
			b.minOut.AddItem(float64(mn))
		}
		if b.maxOut != nil {
			b.maxOut.AddItem(float64(mx))
		}
	}
}

func (b *SampleBuffer) GetAverageMinMaxSum() (Average, Minimum, Maximum, Sum) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.getAverageMinMaxSum()
}

func (b *SampleBuffer) getAverageMinMaxSum() (Average, Minimum, Maximum, Sum) {
	min := math.MaxFloat64
	max := -math.MaxFloat64
	sum := 0.0

	for _, x := range b.data {
		if x > max {
			max = x
		}
		if x < min {
			min = x
		}
		sum += x
	}

	return Average(sum / float64(b.size)), Minimum(min), Maximum(max), Sum(sum)
}

// AverageLast averages the most recent numberOfItems samples.
func (b *SampleBuffer) AverageLast(numberOfItems int) Average {
	b.lock.Lock()
	defer b.lock.Unlock()
	index := b.position - numberOfItems
	if index < 0 {
		// we are at the start of the array, so need to reverse wrap
		index += b.size
	}
	items := numberOfItems
	sum := 0.0
	for numberOfItems > 0 {
		sum += b.data[index]
		index += 1
		if index == b.size {
			index = 0
		}
		numberOfItems -= 1
	}
	return Average(sum / float64(items))
}

func (b *SampleBuffer) GetLast() float64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	index := b.position - 1
	if index < 0 {
		index += b.size
	}
	return b.data[index]
}

func (b *SampleBuffer) GetRawData() ([]float64, Size, Position) {
	b.lock.Lock()
	defer b.lock.Unlock()
	cp := make([]float64, b.size)
	copy(cp, b.data)
	return cp, Size(b.size), Position(b.position)
}

func (b *SampleBuffer) GetSize() int {
	return b.size
}
