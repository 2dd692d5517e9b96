// internal/sampler/synthetic.go
package sampler

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrInvalidStep indicates the generator read step must be positive
	ErrInvalidStep = errors.New("synthetic step must be positive")
	// ErrInvalidFrequency indicates the generator frequency must be non-negative
	ErrInvalidFrequency = errors.New("synthetic frequency must be non-negative")
	// ErrUnknownShape indicates an unrecognised waveform shape name
	ErrUnknownShape = errors.New("unknown synthetic shape")
)

// Shape selects the synthetic waveform
type Shape int

const (
	// ShapeConstant holds the offset level
	ShapeConstant Shape = iota
	// ShapeSquare alternates between offset±amplitude/2 each half period
	ShapeSquare
	// ShapeSine is a sinusoid around the offset
	ShapeSine
	// ShapeTriangle ramps linearly between the two extremes
	ShapeTriangle
)

var shapeNames = map[Shape]string{
	ShapeConstant: "constant",
	ShapeSquare:   "square",
	ShapeSine:     "sine",
	ShapeTriangle: "triangle",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// ParseShape returns the Shape for a config name such as "square".
func ParseShape(name string) (Shape, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for shape, n := range shapeNames {
		if n == name {
			return shape, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, name)
}

// GeneratorConfig describes a synthetic periodic signal.
type GeneratorConfig struct {
	Shape Shape
	// Frequency in Hz (ignored for ShapeConstant)
	Frequency float64
	// Amplitude is the peak-to-peak swing in volts
	Amplitude float64
	// Offset is the DC level (midline) in volts
	Offset float64
	// Phase is the starting position within a cycle, 0.0-1.0
	Phase float64
	// Step is the virtual time that elapses per Read
	Step time.Duration
	// Scale quantizes volts to raw readings
	Scale Scale
}

// Generator is a deterministic Sampler and Clock. Each Read returns the signal
// value at the current virtual time and then advances the clock by Step.
type Generator struct {
	config GeneratorConfig
	now    time.Duration
}

// NewGenerator validates cfg and returns a generator positioned at time zero.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Step <= 0 {
		return nil, ErrInvalidStep
	}
	if cfg.Frequency < 0 {
		return nil, ErrInvalidFrequency
	}
	if err := cfg.Scale.Validate(); err != nil {
		return nil, err
	}
	if _, ok := shapeNames[cfg.Shape]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownShape, cfg.Shape)
	}
	return &Generator{config: cfg}, nil
}

// Read returns the quantized signal at the current virtual time.
func (g *Generator) Read() (RawSample, error) {
	v := g.VoltsAt(g.now)
	g.now += g.config.Step
	return g.config.Scale.FromVolts(v), nil
}

// Now returns the virtual time of the next Read.
func (g *Generator) Now() time.Duration {
	return g.now
}

// Reset rewinds the virtual clock so the same sequence is produced again.
func (g *Generator) Reset() {
	g.now = 0
}

// Config returns the generator configuration
func (g *Generator) Config() GeneratorConfig {
	return g.config
}

// VoltsAt evaluates the continuous (unquantized) signal at t.
func (g *Generator) VoltsAt(t time.Duration) float64 {
	half := g.config.Amplitude / 2
	if g.config.Shape == ShapeConstant || g.config.Frequency == 0 {
		return g.config.Offset
	}

	// Integer microseconds times frequency keeps phase exact on the step grid
	cycles := float64(t.Microseconds())*g.config.Frequency/1e6 + g.config.Phase
	p := cycles - math.Floor(cycles)

	var unit float64
	switch g.config.Shape {
	case ShapeSquare:
		unit = -1
		if p < 0.5 {
			unit = 1
		}
	case ShapeSine:
		unit = math.Sin(2 * math.Pi * p)
	case ShapeTriangle:
		// -1 at p=0, +1 at p=0.5
		if p < 0.5 {
			unit = -1 + 4*p
		} else {
			unit = 3 - 4*p
		}
	}
	return g.config.Offset + half*unit
}
