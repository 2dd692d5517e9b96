// internal/waveform/summary.go
package waveform

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

// Summary holds descriptive statistics of a captured sequence in volts.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize converts values to volts and computes their statistics.
// An empty sequence yields a zero Summary.
func Summarize(values []sampler.RawSample, scale sampler.Scale) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	volts := make([]float64, len(values))
	for i, v := range values {
		volts[i] = scale.Volts(v)
	}

	s := Summary{
		Count: len(volts),
		Min:   floats.Min(volts),
		Max:   floats.Max(volts),
	}
	if len(volts) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(volts, nil)
	} else {
		s.Mean = volts[0]
	}
	return s
}
