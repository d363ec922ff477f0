// Package sensor provides temperature and humidity samplers.
// The simulated sampler replaces the environmental sensor on a desktop; the
// MQTT sampler takes readings published by a remote sensor node.
package sensor

import (
	"math"
	"math/rand"
	"sync"

	"github.com/sweeney/access-logger/internal/access"
)

// Sampler yields the latest reading. ok is false when the sensor has no
// fresh data yet.
type Sampler interface {
	Sample() (r access.Reading, ok bool)
}

// Simulated ranges.
const (
	SimTempMin     = 15.0
	SimTempMax     = 25.0
	SimHumidityMin = 40.0
	SimHumidityMax = 60.0
)

// Simulated produces uniform random readings rounded to two decimals.
// It always has fresh data.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated creates a simulated sampler with the given seed.
func NewSimulated(seed int64) *Simulated {
	return &Simulated{rng: rand.New(rand.NewSource(seed))}
}

// Sample returns a new random reading.
func (s *Simulated) Sample() (access.Reading, bool) {
	s.mu.Lock()
	t := SimTempMin + s.rng.Float64()*(SimTempMax-SimTempMin)
	h := SimHumidityMin + s.rng.Float64()*(SimHumidityMax-SimHumidityMin)
	s.mu.Unlock()
	return access.Reading{Temperature: round2(t), Humidity: round2(h)}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
