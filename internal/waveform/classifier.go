// internal/waveform/classifier.go
// Package waveform classifies a captured sample sequence by its slope signatures.
package waveform

import (
	"errors"
	"fmt"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

// Classification thresholds
const (
	// DefaultCountThreshold is how many interior indices a signature needs to win
	DefaultCountThreshold = 100
	// DefaultCurvatureThreshold separates smooth (<=) from sharp (>) slope changes
	DefaultCurvatureThreshold = 3
)

var (
	// ErrInvalidCountThreshold indicates the count threshold must be non-negative
	ErrInvalidCountThreshold = errors.New("count threshold must be non-negative")
	// ErrInvalidCurvatureThreshold indicates the curvature threshold must be non-negative
	ErrInvalidCurvatureThreshold = errors.New("curvature threshold must be non-negative")
)

// Shape is the detected waveform shape
type Shape int

const (
	// Unknown means no signature exceeded the count threshold
	Unknown Shape = iota
	// Square means repeated readings (a flat signal) won
	Square
	// Sine means slope changes within the curvature threshold won
	Sine
	// Triangular means slope changes beyond the curvature threshold won
	Triangular
)

func (s Shape) String() string {
	switch s {
	case Square:
		return "square"
	case Sine:
		return "sine"
	case Triangular:
		return "triangular"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// DisplayName returns the label used on the two-line display
func (s Shape) DisplayName() string {
	switch s {
	case Square:
		return "Cuadrada"
	case Sine:
		return "Senoidal"
	case Triangular:
		return "Triangular"
	}
	return "Desconocida"
}

// Result is the chosen shape and the counters that produced it.
type Result struct {
	Shape      Shape
	Square     int
	Sine       int
	Triangular int
	// Interior is how many indices were examined (len-2, or 0)
	Interior int
}

// ClassifierConfig holds the decision thresholds.
type ClassifierConfig struct {
	// CountThreshold is the count a signature must exceed (from config: count_threshold)
	CountThreshold int
	// CurvatureThreshold splits sine from triangular (from config: curvature_threshold)
	CurvatureThreshold int
}

// DefaultClassifierConfig returns the 100 / 3 thresholds
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		CountThreshold:     DefaultCountThreshold,
		CurvatureThreshold: DefaultCurvatureThreshold,
	}
}

// Classifier counts square, sine and triangular signatures over a sequence.
type Classifier struct {
	config ClassifierConfig
}

// NewClassifier validates the thresholds.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if cfg.CountThreshold < 0 {
		return nil, ErrInvalidCountThreshold
	}
	if cfg.CurvatureThreshold < 0 {
		return nil, ErrInvalidCurvatureThreshold
	}
	return &Classifier{config: cfg}, nil
}

// Config returns the classifier configuration
func (c *Classifier) Config() ClassifierConfig {
	return c.config
}

// Classify examines interior indices 1..len-2 of values.
//
// The square test compares a raw value with the absolute value of its
// successor, so it depends on sign. Slopes are taken between absolute
// values and the curvature delta is a magnitude whichever way the signal is
// heading, so the sine and triangular counts do not depend on sign.
func (c *Classifier) Classify(values []sampler.RawSample) Result {
	var r Result
	if len(values) < 3 {
		r.Shape = c.decide(r)
		return r
	}

	for i := 1; i <= len(values)-2; i++ {
		prev, cur, next := values[i-1], values[i], values[i+1]

		slopeNext := abs(next) - abs(cur)
		slopePrev := abs(cur) - abs(prev)

		if cur == abs(next) {
			r.Square++
		}

		var delta sampler.RawSample
		if next > cur {
			delta = abs(slopeNext - slopePrev)
		} else {
			delta = abs(slopePrev - slopeNext)
		}

		if delta > sampler.RawSample(c.config.CurvatureThreshold) {
			r.Triangular++
		} else {
			r.Sine++
		}
		r.Interior++
	}

	r.Shape = c.decide(r)
	return r
}

// decide applies the fixed priority: square, then sine, then triangular.
func (c *Classifier) decide(r Result) Shape {
	threshold := c.config.CountThreshold
	switch {
	case r.Square > threshold:
		return Square
	case r.Sine > threshold:
		return Sine
	case r.Triangular > threshold:
		return Triangular
	}
	return Unknown
}

func abs(v sampler.RawSample) sampler.RawSample {
	if v < 0 {
		return -v
	}
	return v
}
