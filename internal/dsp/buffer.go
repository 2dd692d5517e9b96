// internal/dsp/buffer.go
package dsp

import (
	"errors"
	"slices"
	"time"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

// Buffer defaults
const (
	// DefaultInitialCapacity is the backing capacity of a fresh buffer
	DefaultInitialCapacity = 10
	// DefaultGrowth is how many slots are added when the buffer is full
	DefaultGrowth = 10
	// DefaultMaxElements is the hard ceiling on stored readings
	DefaultMaxElements = 250
	// DefaultIntervalFactor gives the sampling interval in µs as factor/frequency_hz,
	// about 100 readings per cycle.
	DefaultIntervalFactor = 10000.0
)

var (
	// ErrInvalidCapacity indicates initial capacity must be positive
	ErrInvalidCapacity = errors.New("initial capacity must be positive")
	// ErrInvalidGrowth indicates the growth increment must be positive
	ErrInvalidGrowth = errors.New("growth increment must be positive")
	// ErrInvalidMaxElements indicates max elements must be at least the initial capacity
	ErrInvalidMaxElements = errors.New("max elements must be >= initial capacity")
	// ErrInvalidIntervalFactor indicates the interval factor must be positive
	ErrInvalidIntervalFactor = errors.New("interval factor must be positive")
)

// BufferConfig holds the growth policy and sampling cadence.
type BufferConfig struct {
	// InitialCapacity is the starting backing capacity (from config: buffer_initial_capacity)
	InitialCapacity int
	// Growth is the fixed capacity increment on overflow (from config: buffer_growth)
	Growth int
	// MaxElements is the ceiling after which appends are dropped (from config: buffer_max_elements)
	MaxElements int
	// IntervalFactor in µs·Hz; interval = IntervalFactor / frequency (from config: interval_factor_us)
	IntervalFactor float64
}

// DefaultBufferConfig returns the 10 / +10 / 250 policy with ~100 readings per cycle
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		InitialCapacity: DefaultInitialCapacity,
		Growth:          DefaultGrowth,
		MaxElements:     DefaultMaxElements,
		IntervalFactor:  DefaultIntervalFactor,
	}
}

// SampleSequence is a time-ordered run of readings captured in one session.
type SampleSequence []sampler.RawSample

// SampleBuffer is a growable sequence that appends readings at a cadence
// derived from the current frequency estimate.
type SampleBuffer struct {
	config BufferConfig

	samples  []sampler.RawSample
	times    []time.Duration
	capacity int

	lastAppend time.Duration
	hasAppend  bool
	dropped    int
}

// NewSampleBuffer creates an empty buffer with the initial capacity reserved.
func NewSampleBuffer(cfg BufferConfig) (*SampleBuffer, error) {
	if cfg.InitialCapacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if cfg.Growth <= 0 {
		return nil, ErrInvalidGrowth
	}
	if cfg.MaxElements < cfg.InitialCapacity {
		return nil, ErrInvalidMaxElements
	}
	if cfg.IntervalFactor <= 0 {
		return nil, ErrInvalidIntervalFactor
	}

	b := &SampleBuffer{config: cfg}
	b.Reset()
	return b, nil
}

// TargetInterval returns the spacing between appends for an estimate.
func (b *SampleBuffer) TargetInterval(est FrequencyEstimate) time.Duration {
	if !est.Valid() {
		return 0
	}
	us := b.config.IntervalFactor / est.FrequencyHz
	return time.Duration(us * float64(time.Microsecond))
}

// MaybeSample appends v if an estimate exists, the buffer is not full and at
// least the target interval has passed since the last append. It reports
// whether v was stored.
func (b *SampleBuffer) MaybeSample(now time.Duration, v sampler.RawSample, est FrequencyEstimate) bool {
	if !est.Valid() {
		return false
	}
	if b.hasAppend && (now < b.lastAppend || now-b.lastAppend < b.TargetInterval(est)) {
		return false
	}
	if len(b.samples) >= b.config.MaxElements {
		b.dropped++
		return false
	}

	if len(b.samples) == b.capacity {
		b.grow()
	}

	b.samples = append(b.samples, v)
	b.times = append(b.times, now)
	b.lastAppend = now
	b.hasAppend = true
	return true
}

// grow raises capacity by the fixed increment, never past MaxElements.
func (b *SampleBuffer) grow() {
	next := min(b.capacity+b.config.Growth, b.config.MaxElements)
	extra := next - len(b.samples)
	b.samples = slices.Grow(b.samples, extra)
	b.times = slices.Grow(b.times, extra)
	b.capacity = next
}

// Len returns the number of stored readings
func (b *SampleBuffer) Len() int {
	return len(b.samples)
}

// Capacity returns the policy capacity (initial capacity plus whole increments)
func (b *SampleBuffer) Capacity() int {
	return b.capacity
}

// Full reports whether the ceiling has been reached
func (b *SampleBuffer) Full() bool {
	return len(b.samples) >= b.config.MaxElements
}

// Dropped returns how many eligible readings were discarded because the buffer was full
func (b *SampleBuffer) Dropped() int {
	return b.dropped
}

// Times returns the append timestamps. The slice must not be modified.
func (b *SampleBuffer) Times() []time.Duration {
	return b.times
}

// Take hands the captured sequence to the caller and leaves the buffer empty.
// The buffer no longer references the returned storage.
func (b *SampleBuffer) Take() SampleSequence {
	seq := SampleSequence(b.samples)
	b.Reset()
	return seq
}

// Reset releases the current storage and starts over at the initial capacity.
func (b *SampleBuffer) Reset() {
	b.samples = make([]sampler.RawSample, 0, b.config.InitialCapacity)
	b.times = make([]time.Duration, 0, b.config.InitialCapacity)
	b.capacity = b.config.InitialCapacity
	b.lastAppend = 0
	b.hasAppend = false
	b.dropped = 0
}

// Config returns the buffer configuration
func (b *SampleBuffer) Config() BufferConfig {
	return b.config
}
