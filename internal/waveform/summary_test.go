package waveform

import (
	"math"
	"testing"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil, sampler.DefaultScale()); s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", s)
	}
}

func TestSummarize_Single(t *testing.T) {
	s := Summarize([]sampler.RawSample{1023}, sampler.DefaultScale())
	if s.Count != 1 || s.Mean != 5.0 || s.StdDev != 0 || s.Min != 5.0 || s.Max != 5.0 {
		t.Errorf("Summarize(single) = %+v", s)
	}
}

func TestSummarize_Square(t *testing.T) {
	scale := sampler.Scale{FullScale: 1000, Vref: 10}
	s := Summarize([]sampler.RawSample{100, 300, 100, 300}, scale)

	if s.Count != 4 {
		t.Errorf("Count = %d, want 4", s.Count)
	}
	if math.Abs(s.Mean-2.0) > 1e-9 {
		t.Errorf("Mean = %v, want 2.0", s.Mean)
	}
	if math.Abs(s.Min-1.0) > 1e-9 || math.Abs(s.Max-3.0) > 1e-9 {
		t.Errorf("Min/Max = %v/%v, want 1/3", s.Min, s.Max)
	}
	// Sample (n-1) standard deviation of {1,3,1,3}
	want := math.Sqrt(4.0 / 3.0)
	if math.Abs(s.StdDev-want) > 1e-9 {
		t.Errorf("StdDev = %v, want %v", s.StdDev, want)
	}
}
