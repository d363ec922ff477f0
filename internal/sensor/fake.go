package sensor

import "github.com/sweeney/access-logger/internal/access"

// Sample is one scripted sampler result.
type Sample struct {
	Reading access.Reading
	OK      bool
}

// Fresh is a convenience for a scripted sample with fresh data.
func Fresh(temp, humidity float64) Sample {
	return Sample{Reading: access.Reading{Temperature: temp, Humidity: humidity}, OK: true}
}

// FakeSampler is a test double that returns scripted samples.
type FakeSampler struct {
	// Samples contains scripted results. Each call to Sample() consumes the
	// next one; once exhausted the last one repeats.
	Samples []Sample

	index int

	// Calls counts Sample() invocations.
	Calls int
}

// NewFakeSampler creates a FakeSampler with the given samples.
func NewFakeSampler(samples ...Sample) *FakeSampler {
	return &FakeSampler{Samples: samples}
}

// Sample returns the next scripted result. With no samples configured it
// reports no fresh data.
func (f *FakeSampler) Sample() (access.Reading, bool) {
	f.Calls++
	if len(f.Samples) == 0 {
		return access.Reading{}, false
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s.Reading, s.OK
}
