// internal/dsp/frequency.go
package dsp

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

// DefaultHysteresis is the half-width of the dead band around the midline in raw units
const DefaultHysteresis = 5

var (
	// ErrInvalidHysteresis indicates hysteresis must be non-negative
	ErrInvalidHysteresis = errors.New("hysteresis must be non-negative")
)

// BandState is the detector position relative to the hysteresis band
type BandState int

const (
	// BelowBand means the signal has fallen under mean-h and a crossing is armed
	BelowBand BandState = iota
	// ArmedHigh means a crossing fired and the signal has not yet fallen under mean-h
	ArmedHigh
)

func (s BandState) String() string {
	if s == ArmedHigh {
		return "armed-high"
	}
	return "below-band"
}

// FrequencyEstimate is the period between two consecutive rising crossings.
type FrequencyEstimate struct {
	Period      time.Duration
	FrequencyHz float64
}

// Valid reports whether the estimate carries a positive frequency
func (e FrequencyEstimate) Valid() bool {
	return e.Period > 0 && e.FrequencyHz > 0
}

// CrossingEvent is emitted on every rising crossing of mean+h.
type CrossingEvent struct {
	// Timestamp is the clock reading of the crossing sample
	Timestamp time.Duration
	// Value is the raw reading that crossed
	Value sampler.RawSample
	// Estimate is the estimate produced by this crossing, if any
	Estimate FrequencyEstimate
}

// CrossingCallback is called on each rising crossing.
// Must be non-blocking and fast - called from the acquisition loop.
type CrossingCallback func(event CrossingEvent)

// FrequencyDetector finds rising crossings of the calibrated midline using a
// hysteresis band and derives the frequency from consecutive crossings.
type FrequencyDetector struct {
	hysteresis sampler.RawSample

	mean  sampler.RawSample
	state BandState

	previous    time.Duration
	hasPrevious bool
	estimate    FrequencyEstimate
	crossings   int

	callbackPtr atomic.Pointer[CrossingCallback]
}

// NewFrequencyDetector creates a detector with the given band half-width.
func NewFrequencyDetector(hysteresis int) (*FrequencyDetector, error) {
	if hysteresis < 0 {
		return nil, ErrInvalidHysteresis
	}
	return &FrequencyDetector{hysteresis: sampler.RawSample(hysteresis)}, nil
}

// SetCallback sets the callback for crossing events.
func (d *FrequencyDetector) SetCallback(cb CrossingCallback) {
	if cb == nil {
		d.callbackPtr.Store(nil)
	} else {
		d.callbackPtr.Store(&cb)
	}
}

// Arm sets the midline and clears all crossing state.
func (d *FrequencyDetector) Arm(mean sampler.RawSample) {
	d.mean = mean
	d.Reset()
}

// Observe feeds one reading taken at now. It returns the new estimate and true
// only when this reading completed a period.
func (d *FrequencyDetector) Observe(now time.Duration, v sampler.RawSample) (FrequencyEstimate, bool) {
	switch d.state {
	case BelowBand:
		if v >= d.mean+d.hysteresis {
			d.state = ArmedHigh
			return d.cross(now, v)
		}
	case ArmedHigh:
		if v < d.mean-d.hysteresis {
			d.state = BelowBand
		}
	}
	return FrequencyEstimate{}, false
}

// cross handles a BelowBand -> ArmedHigh transition
func (d *FrequencyDetector) cross(now time.Duration, v sampler.RawSample) (FrequencyEstimate, bool) {
	d.crossings++

	if !d.hasPrevious {
		d.previous = now
		d.hasPrevious = true
		d.emitEvent(CrossingEvent{Timestamp: now, Value: v})
		return FrequencyEstimate{}, false
	}

	period := now - d.previous
	d.previous = now

	periodUs := period.Microseconds()
	if periodUs <= 0 {
		// Coincident timestamps: keep the last good estimate
		d.emitEvent(CrossingEvent{Timestamp: now, Value: v})
		return FrequencyEstimate{}, false
	}

	d.estimate = FrequencyEstimate{
		Period:      period,
		FrequencyHz: 1e6 / float64(periodUs),
	}
	d.emitEvent(CrossingEvent{Timestamp: now, Value: v, Estimate: d.estimate})
	return d.estimate, true
}

// emitEvent calls the registered callback if set
func (d *FrequencyDetector) emitEvent(event CrossingEvent) {
	cbPtr := d.callbackPtr.Load()
	if cbPtr != nil {
		(*cbPtr)(event)
	}
}

// Estimate returns the most recent estimate, false until one positive period
// has been observed.
func (d *FrequencyDetector) Estimate() (FrequencyEstimate, bool) {
	return d.estimate, d.estimate.Valid()
}

// State returns the current band state
func (d *FrequencyDetector) State() BandState {
	return d.state
}

// Mean returns the armed midline
func (d *FrequencyDetector) Mean() sampler.RawSample {
	return d.mean
}

// Hysteresis returns the band half-width
func (d *FrequencyDetector) Hysteresis() int {
	return int(d.hysteresis)
}

// Crossings returns the number of rising crossings since the last Arm
func (d *FrequencyDetector) Crossings() int {
	return d.crossings
}

// Reset clears crossing state but keeps the midline.
func (d *FrequencyDetector) Reset() {
	d.state = BelowBand
	d.previous = 0
	d.hasPrevious = false
	d.estimate = FrequencyEstimate{}
	d.crossings = 0
}
