package data

import "github.com/gr-butler/am2301/buffer"

// holder for the sample series produced by the climate monitor

type ClimateData struct {
	buffers map[string]*buffer.SampleBuffer
}

func CreateClimateData() *ClimateData {
	cd := ClimateData{}

	cd.buffers = make(map[string]*buffer.SampleBuffer)

	return &cd
}

// AddBuffer registers a named series. Registration happens once at
// startup, before any monitor goroutine runs.
func (cd *ClimateData) AddBuffer(name string, b *buffer.SampleBuffer) {
	cd.buffers[name] = b
}

func (cd *ClimateData) GetBuffer(name string) *buffer.SampleBuffer {
	return cd.buffers[name]
}
