package waveform

import (
	"math"
	"testing"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultClassifierConfig())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	return c
}

// squarePattern alternates lo/hi in runs of halfCycle samples
func squarePattern(n, halfCycle int, lo, hi sampler.RawSample) []sampler.RawSample {
	out := make([]sampler.RawSample, n)
	for i := range out {
		if (i/halfCycle)%2 == 0 {
			out[i] = hi
		} else {
			out[i] = lo
		}
	}
	return out
}

// sinePattern quantizes a sine with the given samples per cycle
func sinePattern(n, perCycle int, mid, amp float64) []sampler.RawSample {
	out := make([]sampler.RawSample, n)
	for i := range out {
		out[i] = sampler.RawSample(math.Round(mid + amp*math.Sin(2*math.Pi*float64(i)/float64(perCycle))))
	}
	return out
}

// zigzag alternates between two levels on every sample
func zigzag(n int, lo, hi sampler.RawSample) []sampler.RawSample {
	return squarePattern(n, 1, lo, hi)
}

func TestNewClassifier_InvalidConfig(t *testing.T) {
	if _, err := NewClassifier(ClassifierConfig{CountThreshold: -1}); err != ErrInvalidCountThreshold {
		t.Errorf("negative count threshold error = %v", err)
	}
	if _, err := NewClassifier(ClassifierConfig{CurvatureThreshold: -1}); err != ErrInvalidCurvatureThreshold {
		t.Errorf("negative curvature threshold error = %v", err)
	}
}

func TestClassify_ShortSequences(t *testing.T) {
	c := newTestClassifier(t)

	for n := 0; n < 3; n++ {
		r := c.Classify(make([]sampler.RawSample, n))
		if r.Shape != Unknown || r.Interior != 0 || r.Square != 0 || r.Sine != 0 || r.Triangular != 0 {
			t.Errorf("len %d: result = %+v, want empty Unknown", n, r)
		}
	}
}

func TestClassify_InteriorOnly(t *testing.T) {
	c := newTestClassifier(t)

	// Only the middle element is interior
	r := c.Classify([]sampler.RawSample{1, 5, 5})
	if r.Interior != 1 {
		t.Fatalf("Interior = %d, want 1", r.Interior)
	}
	if r.Square != 1 {
		t.Errorf("Square = %d, want 1", r.Square)
	}
	// slopeNext 0, slopePrev 4: falling branch, delta 4 > 3
	if r.Triangular != 1 || r.Sine != 0 {
		t.Errorf("Triangular/Sine = %d/%d, want 1/0", r.Triangular, r.Sine)
	}
}

func TestClassify_SineOrTriangularExactlyOnce(t *testing.T) {
	c := newTestClassifier(t)
	seqs := map[string][]sampler.RawSample{
		"square": squarePattern(250, 50, 205, 818),
		"sine":   sinePattern(250, 100, 511, 307),
		"zigzag": zigzag(250, 205, 818),
	}

	for name, seq := range seqs {
		r := c.Classify(seq)
		if r.Interior != len(seq)-2 {
			t.Errorf("%s: Interior = %d, want %d", name, r.Interior, len(seq)-2)
		}
		if r.Sine+r.Triangular != r.Interior {
			t.Errorf("%s: sine %d + triangular %d != interior %d", name, r.Sine, r.Triangular, r.Interior)
		}
	}
}

func TestClassify_CurvatureThresholdBoundary(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		seq      []sampler.RawSample
		wantTri  int
		wantSine int
	}{
		{"delta 3 is smooth", []sampler.RawSample{10, 10, 13}, 0, 1},
		{"delta 4 is sharp", []sampler.RawSample{10, 10, 14}, 1, 0},
		{"falling delta 3", []sampler.RawSample{13, 10, 10}, 0, 1},
		{"falling delta 4", []sampler.RawSample{14, 10, 10}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.Classify(tt.seq)
			if r.Triangular != tt.wantTri || r.Sine != tt.wantSine {
				t.Errorf("Triangular/Sine = %d/%d, want %d/%d", r.Triangular, r.Sine, tt.wantTri, tt.wantSine)
			}
		})
	}
}

func TestClassify_Square(t *testing.T) {
	c := newTestClassifier(t)

	r := c.Classify(squarePattern(250, 50, 205, 818))
	if r.Shape != Square {
		t.Errorf("Shape = %v, want square (counts %+v)", r.Shape, r)
	}
	if r.Square != 244 {
		t.Errorf("Square = %d, want 244", r.Square)
	}
}

func TestClassify_Sine(t *testing.T) {
	c := newTestClassifier(t)

	r := c.Classify(sinePattern(250, 100, 511, 307))
	if r.Shape != Sine {
		t.Errorf("Shape = %v, want sine (counts %+v)", r.Shape, r)
	}
	if r.Square > DefaultCountThreshold {
		t.Errorf("Square = %d, want <= %d", r.Square, DefaultCountThreshold)
	}
}

func TestClassify_TriangularCorners(t *testing.T) {
	c := newTestClassifier(t)

	r := c.Classify(zigzag(250, 205, 818))
	if r.Shape != Triangular {
		t.Errorf("Shape = %v, want triangular (counts %+v)", r.Shape, r)
	}
	if r.Triangular != 248 || r.Square != 0 {
		t.Errorf("Triangular/Square = %d/%d, want 248/0", r.Triangular, r.Square)
	}
}

func TestClassify_LinearRampIsSmooth(t *testing.T) {
	c := newTestClassifier(t)

	ramp := make([]sampler.RawSample, 200)
	for i := range ramp {
		ramp[i] = sampler.RawSample(100 + 3*i)
	}
	r := c.Classify(ramp)
	if r.Sine != 198 || r.Triangular != 0 {
		t.Errorf("Sine/Triangular = %d/%d, want 198/0", r.Sine, r.Triangular)
	}
}

func TestClassify_NotEnoughEvidence(t *testing.T) {
	c := newTestClassifier(t)

	// 100 interior indices: no counter can exceed 100
	r := c.Classify(squarePattern(102, 10, 100, 900))
	if r.Shape != Unknown {
		t.Errorf("Shape = %v, want unknown (counts %+v)", r.Shape, r)
	}
}

func TestClassify_PriorityTieBreak(t *testing.T) {
	c := newTestClassifier(t)

	t.Run("square over sine", func(t *testing.T) {
		flat := make([]sampler.RawSample, 200)
		for i := range flat {
			flat[i] = 400
		}
		r := c.Classify(flat)
		if r.Square <= 100 || r.Sine <= 100 {
			t.Fatalf("setup: counts %+v, want square and sine > 100", r)
		}
		if r.Shape != Square {
			t.Errorf("Shape = %v, want square", r.Shape)
		}
	})

	t.Run("sine over triangular", func(t *testing.T) {
		seq := make([]sampler.RawSample, 0, 260)
		for i := 0; i < 130; i++ {
			seq = append(seq, sampler.RawSample(i))
		}
		seq = append(seq, zigzag(130, 100, 500)...)
		r := c.Classify(seq)
		if r.Sine <= 100 || r.Triangular <= 100 || r.Square > 100 {
			t.Fatalf("setup: counts %+v", r)
		}
		if r.Shape != Sine {
			t.Errorf("Shape = %v, want sine", r.Shape)
		}
	})
}

// A global sign flip keeps both curvature counts: slopes are taken between
// absolute values and the delta is a magnitude in both slope directions.
// The square test compares the raw value with an absolute value, so flipping
// a positive sequence removes every square match.
func TestClassify_SignFlipAsymmetry(t *testing.T) {
	c := newTestClassifier(t)

	seqs := map[string][]sampler.RawSample{
		"square": squarePattern(250, 50, 205, 818),
		"sine":   sinePattern(250, 100, 511, 307),
		"zigzag": zigzag(250, 205, 818),
	}

	for name, seq := range seqs {
		t.Run(name, func(t *testing.T) {
			flipped := make([]sampler.RawSample, len(seq))
			for i, v := range seq {
				flipped[i] = -v
			}

			orig := c.Classify(seq)
			flip := c.Classify(flipped)

			if flip.Sine != orig.Sine || flip.Triangular != orig.Triangular {
				t.Errorf("curvature counts changed: %d/%d -> %d/%d",
					orig.Sine, orig.Triangular, flip.Sine, flip.Triangular)
			}
			if flip.Square != 0 {
				t.Errorf("flipped Square = %d, want 0", flip.Square)
			}
		})
	}

	// The square signature survives a flip only when the successor is negative
	// and the current value already equals its magnitude.
	mixed := []sampler.RawSample{5, 5, -5, 5}
	if got := c.Classify(mixed).Square; got != 1 {
		t.Errorf("mixed Square = %d, want 1", got)
	}
}

func TestShape_Strings(t *testing.T) {
	tests := []struct {
		shape   Shape
		str     string
		display string
	}{
		{Square, "square", "Cuadrada"},
		{Sine, "sine", "Senoidal"},
		{Triangular, "triangular", "Triangular"},
		{Unknown, "unknown", "Desconocida"},
	}

	for _, tt := range tests {
		if tt.shape.String() != tt.str {
			t.Errorf("String() = %q, want %q", tt.shape.String(), tt.str)
		}
		if tt.shape.DisplayName() != tt.display {
			t.Errorf("DisplayName() = %q, want %q", tt.shape.DisplayName(), tt.display)
		}
	}
	if Shape(9).String() != "Shape(9)" {
		t.Errorf("Shape(9).String() = %q", Shape(9).String())
	}
}

func BenchmarkClassify(b *testing.B) {
	c, _ := NewClassifier(DefaultClassifierConfig())
	seq := sinePattern(250, 100, 511, 307)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Classify(seq)
	}
}
