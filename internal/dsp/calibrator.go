// internal/dsp/calibrator.go
// Package dsp implements the time-domain measurement stages: calibration,
// hysteresis frequency detection and frequency-synchronized sample capture.
package dsp

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

// DefaultCalibrationWindow is how long the calibrator scans the input
const DefaultCalibrationWindow = 1000 * time.Millisecond

var (
	// ErrSamplerRequired indicates a sampler instance is required
	ErrSamplerRequired = errors.New("sampler is required")
	// ErrClockRequired indicates a clock instance is required
	ErrClockRequired = errors.New("clock is required")
	// ErrInvalidWindow indicates the calibration window must be non-negative
	ErrInvalidWindow = errors.New("calibration window must be non-negative")
)

// CalibrationResult is the amplitude and midline measured over one window.
// Min <= Mean <= Max always holds.
type CalibrationResult struct {
	Min       sampler.RawSample
	Max       sampler.RawSample
	Mean      sampler.RawSample
	Amplitude float64 // peak-to-peak in volts
	Samples   int     // readings taken during the window
}

// Degenerate reports whether no variation was observed (flat or absent input)
func (r CalibrationResult) Degenerate() bool {
	return r.Max == r.Min
}

// Calibrator tracks running min/max of the input for a fixed window.
type Calibrator struct {
	sampler sampler.Sampler
	clock   sampler.Clock
	scale   sampler.Scale
}

// NewCalibrator creates a calibrator reading from s and timing with clk.
func NewCalibrator(s sampler.Sampler, clk sampler.Clock, scale sampler.Scale) (*Calibrator, error) {
	if s == nil {
		return nil, ErrSamplerRequired
	}
	if clk == nil {
		return nil, ErrClockRequired
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	return &Calibrator{sampler: s, clock: clk, scale: scale}, nil
}

// Calibrate blocks for the full window, reading continuously. If no reading
// fits in the window the result is all zeros. A read error aborts the scan.
func (c *Calibrator) Calibrate(window time.Duration) (CalibrationResult, error) {
	if window < 0 {
		return CalibrationResult{}, ErrInvalidWindow
	}

	minV := sampler.RawSample(math.MaxInt)
	maxV := sampler.RawSample(math.MinInt)
	n := 0

	start := c.clock.Now()
	for c.clock.Now()-start < window {
		v, err := c.sampler.Read()
		if err != nil {
			return CalibrationResult{}, fmt.Errorf("calibration read %d: %w", n, err)
		}
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
		n++
	}

	if n == 0 {
		return CalibrationResult{}, nil
	}

	return CalibrationResult{
		Min:       minV,
		Max:       maxV,
		Mean:      (maxV + minV) / 2,
		Amplitude: c.scale.Volts(maxV - minV),
		Samples:   n,
	}, nil
}
