// internal/session/report.go
package session

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ColonelBlimp/waveprobe/internal/dsp"
	"github.com/ColonelBlimp/waveprobe/internal/waveform"
)

var (
	// ErrCalibrationDegenerate indicates no variation was seen during calibration.
	// Advisory: the session continues and reports amplitude 0.
	ErrCalibrationDegenerate = errors.New("calibration degenerate: no variation observed")
	// ErrFrequencyUnavailable indicates fewer than two crossings were observed. Advisory.
	ErrFrequencyUnavailable = errors.New("frequency unavailable: fewer than two crossings")
	// ErrBufferFull indicates the sample buffer reached its ceiling. Advisory.
	ErrBufferFull = errors.New("sample buffer full")
	// ErrSamplerFailure indicates a read error; it aborts the session.
	ErrSamplerFailure = errors.New("sampler failure")
	// ErrUnexpectedCommand indicates a command with no transition in the current state
	ErrUnexpectedCommand = errors.New("unexpected command")
	// ErrSamplerRequired indicates a sampler instance is required
	ErrSamplerRequired = errors.New("sampler is required")
	// ErrClockRequired indicates a clock instance is required
	ErrClockRequired = errors.New("clock is required")
)

// Report is everything a completed session measured.
type Report struct {
	Calibration    dsp.CalibrationResult
	Frequency      dsp.FrequencyEstimate
	FrequencyOK    bool
	Crossings      int
	Classification waveform.Result
	Summary        waveform.Summary

	// Sequence is the captured readings, owned by the report
	Sequence dsp.SampleSequence
	// Times holds the clock time of each reading in Sequence
	Times    []time.Duration
	Capacity int
	Full     bool
	Dropped  int

	// Acquisition is the clock time spent in the acquisition loop
	Acquisition time.Duration

	// Conditions lists the advisory errors raised during the session
	Conditions []error
}

// Has reports whether target is among the report's conditions.
func (r Report) Has(target error) bool {
	for _, c := range r.Conditions {
		if errors.Is(c, target) {
			return true
		}
	}
	return false
}

type reportJSON struct {
	Amplitude  float64  `json:"amplitude_volts"`
	Min        int      `json:"min"`
	Max        int      `json:"max"`
	Mean       int      `json:"mean"`
	Frequency  *float64 `json:"frequency_hz"`
	PeriodUs   int64    `json:"period_us,omitempty"`
	Crossings  int      `json:"crossings"`
	Shape      string   `json:"shape"`
	Square     int      `json:"count_square"`
	Sine       int      `json:"count_sine"`
	Triangular int      `json:"count_triangular"`
	Length     int      `json:"length"`
	Capacity   int      `json:"capacity"`
	Full       bool     `json:"full"`
	Dropped    int      `json:"dropped"`
	MeanVolts  float64  `json:"mean_volts"`
	StdDev     float64  `json:"stddev_volts"`
	AcquireUs  int64    `json:"acquisition_us"`
	Conditions []string `json:"conditions"`
}

// MarshalJSON flattens the report. An unavailable frequency is null.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		Amplitude:  r.Calibration.Amplitude,
		Min:        int(r.Calibration.Min),
		Max:        int(r.Calibration.Max),
		Mean:       int(r.Calibration.Mean),
		Crossings:  r.Crossings,
		Shape:      r.Classification.Shape.String(),
		Square:     r.Classification.Square,
		Sine:       r.Classification.Sine,
		Triangular: r.Classification.Triangular,
		Length:     len(r.Sequence),
		Capacity:   r.Capacity,
		Full:       r.Full,
		Dropped:    r.Dropped,
		MeanVolts:  r.Summary.Mean,
		StdDev:     r.Summary.StdDev,
		AcquireUs:  r.Acquisition.Microseconds(),
		Conditions: make([]string, 0, len(r.Conditions)),
	}
	if r.FrequencyOK {
		f := r.Frequency.FrequencyHz
		out.Frequency = &f
		out.PeriodUs = r.Frequency.Period.Microseconds()
	}
	for _, c := range r.Conditions {
		out.Conditions = append(out.Conditions, c.Error())
	}
	return json.Marshal(out)
}
