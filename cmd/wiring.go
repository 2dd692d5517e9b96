// cmd/wiring.go
package cmd

import (
	"fmt"
	"time"

	"github.com/ColonelBlimp/waveprobe/internal/audio"
	"github.com/ColonelBlimp/waveprobe/internal/config"
	"github.com/ColonelBlimp/waveprobe/internal/display"
	"github.com/ColonelBlimp/waveprobe/internal/dsp"
	"github.com/ColonelBlimp/waveprobe/internal/logging"
	"github.com/ColonelBlimp/waveprobe/internal/sampler"
	"github.com/ColonelBlimp/waveprobe/internal/session"
	"github.com/ColonelBlimp/waveprobe/internal/waveform"
)

func scaleFrom(s *config.Settings) sampler.Scale {
	return sampler.Scale{
		FullScale: sampler.RawSample(s.FullScale),
		Vref:      s.Vref,
	}
}

// sessionConfig maps settings onto the stage configuration
func sessionConfig(s *config.Settings) session.Config {
	return session.Config{
		CalibrationWindow: time.Duration(s.CalibrationMs) * time.Millisecond,
		Hysteresis:        s.Hysteresis,
		Scale:             scaleFrom(s),
		Buffer: dsp.BufferConfig{
			InitialCapacity: s.BufferInitialCapacity,
			Growth:          s.BufferGrowth,
			MaxElements:     s.BufferMaxElements,
			IntervalFactor:  s.IntervalFactorUs,
		},
		Classifier: waveform.ClassifierConfig{
			CountThreshold:     s.CountThreshold,
			CurvatureThreshold: s.CurvatureThreshold,
		},
		Tick: time.Duration(s.TickMs) * time.Millisecond,
	}
}

func audioConfig(s *config.Settings) audio.Config {
	return audio.Config{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		Channels:    1,
		BufferSize:  uint32(s.BufferSize),
	}
}

func generatorConfig(s *config.Settings) (sampler.GeneratorConfig, error) {
	shape, err := sampler.ParseShape(s.SyntheticShape)
	if err != nil {
		return sampler.GeneratorConfig{}, fmt.Errorf("synthetic source: %w", err)
	}
	return sampler.GeneratorConfig{
		Shape:     shape,
		Frequency: s.SyntheticFrequency,
		Amplitude: s.SyntheticAmplitude,
		Offset:    s.SyntheticOffset,
		Step:      time.Duration(s.SyntheticStepUs) * time.Microsecond,
		Scale:     scaleFrom(s),
	}, nil
}

func loggingOptions(s *config.Settings) logging.Options {
	return logging.Options{
		Level: s.LogLevel,
		Debug: s.Debug,
		File:  s.LogFile,
	}
}

func mqttConfig(s *config.Settings) display.MQTTConfig {
	return display.MQTTConfig{
		Broker:   s.MQTTBroker,
		Topic:    s.MQTTTopic,
		ClientID: s.MQTTClientID,
		QoS:      1,
	}
}
