// internal/sampler/sampler.go
// Package sampler defines the single-channel analog input boundary.
package sampler

import (
	"errors"
	"math"
	"time"
)

// ADC defaults matching a 10-bit converter referenced to 5 V
const (
	// DefaultFullScale is the largest raw reading of a 10-bit ADC
	DefaultFullScale RawSample = 1023
	// DefaultVref is the reference voltage the full scale maps to
	DefaultVref = 5.0
)

var (
	// ErrClosed indicates the underlying source has been shut down
	ErrClosed = errors.New("sampler closed")
	// ErrInvalidScale indicates full scale and reference voltage must be positive
	ErrInvalidScale = errors.New("full scale and vref must be positive")
)

// RawSample is one instantaneous ADC reading (0..full scale on real hardware).
// It is signed so derived sequences may be sign-flipped for analysis.
type RawSample int

// Sampler reads the instantaneous raw analog value.
type Sampler interface {
	Read() (RawSample, error)
}

// Discarder is implemented by samplers that queue readings ahead of the
// consumer. Discard drops everything queued and returns how many readings
// were skipped.
type Discarder interface {
	Discard() int
}

// Clock is a monotonic microsecond-resolution time source.
// Now returns the time elapsed since an arbitrary fixed origin.
type Clock interface {
	Now() time.Duration
}

// Scale maps raw readings to volts and back.
type Scale struct {
	FullScale RawSample
	Vref      float64
}

// DefaultScale returns the 10-bit / 5 V scale
func DefaultScale() Scale {
	return Scale{FullScale: DefaultFullScale, Vref: DefaultVref}
}

// Validate checks both fields are positive
func (s Scale) Validate() error {
	if s.FullScale <= 0 || s.Vref <= 0 {
		return ErrInvalidScale
	}
	return nil
}

// Volts converts a raw reading to volts.
func (s Scale) Volts(raw RawSample) float64 {
	return float64(raw) / float64(s.FullScale) * s.Vref
}

// FromVolts quantizes a voltage to the nearest raw reading, clamped to 0..FullScale.
func (s Scale) FromVolts(v float64) RawSample {
	raw := math.Round(v / s.Vref * float64(s.FullScale))
	if raw < 0 {
		return 0
	}
	if raw > float64(s.FullScale) {
		return s.FullScale
	}
	return RawSample(raw)
}

// FromNormalized maps a normalized audio sample (-1.0..1.0) onto 0..FullScale.
func (s Scale) FromNormalized(x float32) RawSample {
	return s.FromVolts((float64(x) + 1) / 2 * s.Vref)
}

// WallClock is a Clock backed by the runtime monotonic clock.
type WallClock struct {
	origin time.Time
}

// NewWallClock returns a clock whose origin is now.
func NewWallClock() *WallClock {
	return &WallClock{origin: time.Now()}
}

// Now returns elapsed time since the clock was created, truncated to microseconds.
func (c *WallClock) Now() time.Duration {
	return time.Since(c.origin).Truncate(time.Microsecond)
}
