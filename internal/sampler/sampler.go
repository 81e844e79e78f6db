// Package sampler turns periodically polled cumulative counters into a
// bounded series of samples with an instantaneous bandwidth.
package sampler

import (
	"sync"
	"time"
)

// Window bounds, in samples.
const (
	MinPoints = 60
	MaxPoints = 3600
)

// trendSpan is the number of samples averaged on each side of a trend
// comparison.
const trendSpan = 10

// Sampler keeps the most recent samples. All methods are safe for
// concurrent use.
type Sampler struct {
	mu        sync.Mutex
	samples   []Sample
	maxPoints int
	normalize bool

	prev    StatsSnapshot
	prevAt  time.Time
	hasPrev bool
}

// New creates a Sampler holding up to maxPoints samples, clamped to
// [MinPoints, MaxPoints]. With normalize set, bandwidth is divided by the
// seconds elapsed since the previous snapshot.
func New(maxPoints int, normalize bool) *Sampler {
	return &Sampler{
		maxPoints: clampPoints(maxPoints),
		normalize: normalize,
	}
}

func clampPoints(n int) int {
	return min(max(n, MinPoints), MaxPoints)
}

// AddSample records snap at the current time.
func (s *Sampler) AddSample(snap StatsSnapshot) Sample {
	return s.AddSampleAt(snap, time.Now())
}

// AddSampleAt records snap at now. The first sample after New or Clear has
// bandwidth 0. A byte counter lower than the previous one is treated as a
// reset and counts from zero.
func (s *Sampler) AddSampleAt(snap StatsSnapshot, now time.Time) Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bandwidth float64
	if s.hasPrev {
		delta := snap.BytesProcessed - s.prev.BytesProcessed
		if snap.BytesProcessed < s.prev.BytesProcessed {
			delta = snap.BytesProcessed
		}
		bandwidth = float64(delta)

		if s.normalize {
			elapsed := now.Sub(s.prevAt).Seconds()
			if elapsed > 0 {
				bandwidth /= elapsed
			}
		}
	}

	sample := Sample{
		Timestamp: now,
		Threats:   snap.ThreatsDetected,
		Packets:   snap.PacketsProcessed,
		Bandwidth: bandwidth,
	}
	s.samples = append(s.samples, sample)
	s.prev = snap
	s.prevAt = now
	s.hasPrev = true
	s.trimLocked()

	return sample
}

// SetMaxPoints changes the window, clamped to [MinPoints, MaxPoints], and
// keeps only the most recent samples that fit.
func (s *Sampler) SetMaxPoints(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxPoints = clampPoints(n)
	s.trimLocked()
}

func (s *Sampler) MaxPoints() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxPoints
}

// Clear drops every sample and the remembered snapshot.
func (s *Sampler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = nil
	s.prev = StatsSnapshot{}
	s.prevAt = time.Time{}
	s.hasPrev = false
}

// Samples returns a copy of the series, oldest first.
func (s *Sampler) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.samples) == 0 {
		return nil
	}
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Latest returns the most recent sample.
func (s *Sampler) Latest() (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Snapshot returns the last recorded stats snapshot.
func (s *Sampler) Snapshot() (StatsSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prev, s.hasPrev
}

// Trend compares mean bandwidth over the last trendSpan samples with the
// trendSpan samples before them.
func (s *Sampler) Trend() TrendDirection {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.samples)
	if n < 2*trendSpan {
		return TrendFlat
	}
	current := meanBandwidth(s.samples[n-trendSpan:])
	previous := meanBandwidth(s.samples[n-2*trendSpan : n-trendSpan])

	// Changes within 5% are noise.
	diff := current - previous
	epsilon := 0.05 * max(previous, 1)
	if diff > epsilon {
		return TrendUp
	}
	if diff < -epsilon {
		return TrendDown
	}
	return TrendFlat
}

func meanBandwidth(samples []Sample) float64 {
	var sum float64
	for _, s := range samples {
		sum += s.Bandwidth
	}
	return sum / float64(len(samples))
}

func (s *Sampler) trimLocked() {
	if over := len(s.samples) - s.maxPoints; over > 0 {
		s.samples = append(s.samples[:0:0], s.samples[over:]...)
	}
}
