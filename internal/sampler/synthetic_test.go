package sampler

import (
	"errors"
	"testing"
	"time"
)

func testGeneratorConfig(shape Shape) GeneratorConfig {
	return GeneratorConfig{
		Shape:     shape,
		Frequency: 1000,
		Amplitude: 3.0,
		Offset:    2.5,
		Step:      10 * time.Microsecond,
		Scale:     DefaultScale(),
	}
}

func TestNewGenerator_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GeneratorConfig)
		want   error
	}{
		{"zero step", func(c *GeneratorConfig) { c.Step = 0 }, ErrInvalidStep},
		{"negative step", func(c *GeneratorConfig) { c.Step = -time.Microsecond }, ErrInvalidStep},
		{"negative frequency", func(c *GeneratorConfig) { c.Frequency = -1 }, ErrInvalidFrequency},
		{"bad scale", func(c *GeneratorConfig) { c.Scale = Scale{} }, ErrInvalidScale},
		{"bad shape", func(c *GeneratorConfig) { c.Shape = Shape(42) }, ErrUnknownShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testGeneratorConfig(ShapeSine)
			tt.mutate(&cfg)
			_, err := NewGenerator(cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewGenerator() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseShape(t *testing.T) {
	tests := []struct {
		in   string
		want Shape
	}{
		{"square", ShapeSquare},
		{"Sine", ShapeSine},
		{" triangle ", ShapeTriangle},
		{"constant", ShapeConstant},
	}

	for _, tt := range tests {
		got, err := ParseShape(tt.in)
		if err != nil {
			t.Errorf("ParseShape(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseShape(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseShape("sawtooth"); !errors.Is(err, ErrUnknownShape) {
		t.Errorf("ParseShape(sawtooth) error = %v, want ErrUnknownShape", err)
	}
}

func TestGenerator_ClockAdvancesPerRead(t *testing.T) {
	g, err := NewGenerator(testGeneratorConfig(ShapeSine))
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	if g.Now() != 0 {
		t.Errorf("initial Now() = %v, want 0", g.Now())
	}
	for i := 0; i < 5; i++ {
		if _, err := g.Read(); err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}
	if g.Now() != 50*time.Microsecond {
		t.Errorf("Now() after 5 reads = %v, want 50µs", g.Now())
	}

	g.Reset()
	if g.Now() != 0 {
		t.Errorf("Now() after Reset = %v, want 0", g.Now())
	}
}

func TestGenerator_Square(t *testing.T) {
	g, err := NewGenerator(testGeneratorConfig(ShapeSquare))
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	// 100 reads per 1 kHz cycle at 10µs: first half high, second half low
	for i := 0; i < 100; i++ {
		v, _ := g.Read()
		want := RawSample(818)
		if i >= 50 {
			want = 205
		}
		if v != want {
			t.Fatalf("read %d = %d, want %d", i, v, want)
		}
	}
}

func TestGenerator_TriangleCorners(t *testing.T) {
	cfg := testGeneratorConfig(ShapeTriangle)
	cfg.Step = 500 * time.Microsecond
	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		v, _ := g.Read()
		want := RawSample(205)
		if i%2 == 1 {
			want = 818
		}
		if v != want {
			t.Fatalf("read %d = %d, want %d", i, v, want)
		}
	}
}

func TestGenerator_SinePeaks(t *testing.T) {
	g, err := NewGenerator(testGeneratorConfig(ShapeSine))
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	if v := g.VoltsAt(250 * time.Microsecond); v < 3.999 || v > 4.001 {
		t.Errorf("VoltsAt(peak) = %v, want 4.0", v)
	}
	if v := g.VoltsAt(750 * time.Microsecond); v < 0.999 || v > 1.001 {
		t.Errorf("VoltsAt(trough) = %v, want 1.0", v)
	}
}

func TestGenerator_Constant(t *testing.T) {
	cfg := testGeneratorConfig(ShapeConstant)
	g, err := NewGenerator(cfg)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	for i := 0; i < 1000; i++ {
		v, _ := g.Read()
		if v != 512 {
			t.Fatalf("read %d = %d, want 512", i, v)
		}
	}
}
