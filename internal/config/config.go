// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

const (
	AppName       = "waveprobe"
	ConfigType    = "yaml"
	DefaultConfig = `# Waveprobe Configuration

# Signal source
source: "audio"          # audio (sound card) or synthetic (built-in generator)
device_index: -1         # -1 for default capture device
sample_rate: 48000       # Capture sample rate in Hz
buffer_size: 512         # Frames per capture callback

# ADC scaling
vref: 5.0                # Volts at full scale
full_scale: 1023         # Largest raw reading (10-bit)

# Calibration and frequency detection
calibration_ms: 1000     # Calibration window in milliseconds
hysteresis: 5            # Band half-width around the midline, raw units

# Sample capture
interval_factor_us: 10000    # Sampling interval in us = factor / frequency_hz
buffer_initial_capacity: 10  # Starting buffer capacity
buffer_growth: 10            # Capacity added when the buffer fills
buffer_max_elements: 250     # Hard ceiling on captured readings

# Classification
count_threshold: 100     # Count a signature must exceed to win
curvature_threshold: 3   # Slope change above this is a sharp corner

# Control loop
tick_ms: 10              # Command poll interval while idle

# Synthetic source (source: synthetic, and the simulate command)
synthetic_shape: "sine"  # square, sine, triangle or constant
synthetic_frequency: 1000
synthetic_amplitude: 3.0 # Peak-to-peak volts
synthetic_offset: 2.5    # DC level in volts
synthetic_step_us: 10    # Virtual time per reading

# Diagnostics
trace: false                       # Write every acquired reading to trace_file
trace_file: "waveprobe-trace.log"
log_level: "info"                  # debug, info, warn, error
log_file: ""                       # Empty logs to stderr
metrics_addr: ""                   # e.g. ":9100" to serve /metrics

# Remote display mirror
mqtt_broker: ""                    # e.g. "tcp://localhost:1883"; empty disables
mqtt_topic: "waveprobe/display"
mqtt_client_id: "waveprobe"

# Output
debug: false
`
)

// Settings holds all application configuration
type Settings struct {
	// Signal source
	Source      string `mapstructure:"source"`
	DeviceIndex int    `mapstructure:"device_index"`
	SampleRate  int    `mapstructure:"sample_rate"`
	BufferSize  int    `mapstructure:"buffer_size"`

	// ADC scaling
	Vref      float64 `mapstructure:"vref"`
	FullScale int     `mapstructure:"full_scale"`

	// Calibration and frequency detection
	CalibrationMs int `mapstructure:"calibration_ms"`
	Hysteresis    int `mapstructure:"hysteresis"`

	// Sample capture
	IntervalFactorUs      float64 `mapstructure:"interval_factor_us"`
	BufferInitialCapacity int     `mapstructure:"buffer_initial_capacity"`
	BufferGrowth          int     `mapstructure:"buffer_growth"`
	BufferMaxElements     int     `mapstructure:"buffer_max_elements"`

	// Classification
	CountThreshold     int `mapstructure:"count_threshold"`
	CurvatureThreshold int `mapstructure:"curvature_threshold"`

	// Control loop
	TickMs int `mapstructure:"tick_ms"`

	// Synthetic source
	SyntheticShape     string  `mapstructure:"synthetic_shape"`
	SyntheticFrequency float64 `mapstructure:"synthetic_frequency"`
	SyntheticAmplitude float64 `mapstructure:"synthetic_amplitude"`
	SyntheticOffset    float64 `mapstructure:"synthetic_offset"`
	SyntheticStepUs    int     `mapstructure:"synthetic_step_us"`

	// Diagnostics
	Trace       bool   `mapstructure:"trace"`
	TraceFile   string `mapstructure:"trace_file"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Remote display mirror
	MQTTBroker   string `mapstructure:"mqtt_broker"`
	MQTTTopic    string `mapstructure:"mqtt_topic"`
	MQTTClientID string `mapstructure:"mqtt_client_id"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Sources
const (
	SourceAudio     = "audio"
	SourceSynthetic = "synthetic"
)

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/waveprobe/
func Init() error {
	setDefaults()

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("source", SourceAudio)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("vref", 5.0)
	viper.SetDefault("full_scale", 1023)
	viper.SetDefault("calibration_ms", 1000)
	viper.SetDefault("hysteresis", 5)
	viper.SetDefault("interval_factor_us", 10000.0)
	viper.SetDefault("buffer_initial_capacity", 10)
	viper.SetDefault("buffer_growth", 10)
	viper.SetDefault("buffer_max_elements", 250)
	viper.SetDefault("count_threshold", 100)
	viper.SetDefault("curvature_threshold", 3)
	viper.SetDefault("tick_ms", 10)
	viper.SetDefault("synthetic_shape", "sine")
	viper.SetDefault("synthetic_frequency", 1000.0)
	viper.SetDefault("synthetic_amplitude", 3.0)
	viper.SetDefault("synthetic_offset", 2.5)
	viper.SetDefault("synthetic_step_us", 10)
	viper.SetDefault("trace", false)
	viper.SetDefault("trace_file", "waveprobe-trace.log")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("metrics_addr", "")
	viper.SetDefault("mqtt_broker", "")
	viper.SetDefault("mqtt_topic", "waveprobe/display")
	viper.SetDefault("mqtt_client_id", AppName)
	viper.SetDefault("debug", false)
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Signal source
	if s.Source != SourceAudio && s.Source != SourceSynthetic {
		errs = append(errs, fmt.Errorf("source must be %q or %q, got %q", SourceAudio, SourceSynthetic, s.Source))
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}

	// ADC scaling
	if s.Vref <= 0 {
		errs = append(errs, fmt.Errorf("vref must be positive, got %v", s.Vref))
	}
	if s.FullScale < 1 {
		errs = append(errs, fmt.Errorf("full_scale must be positive, got %d", s.FullScale))
	}

	// Calibration and frequency detection
	if s.CalibrationMs < 1 || s.CalibrationMs > 60000 {
		errs = append(errs, fmt.Errorf("calibration_ms must be between 1 and 60000, got %d", s.CalibrationMs))
	}
	if s.Hysteresis < 0 || s.Hysteresis > s.FullScale/2 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 0 and half of full_scale, got %d", s.Hysteresis))
	}

	// Sample capture
	if s.IntervalFactorUs <= 0 {
		errs = append(errs, fmt.Errorf("interval_factor_us must be positive, got %v", s.IntervalFactorUs))
	}
	if s.BufferInitialCapacity < 1 {
		errs = append(errs, fmt.Errorf("buffer_initial_capacity must be at least 1, got %d", s.BufferInitialCapacity))
	}
	if s.BufferGrowth < 1 {
		errs = append(errs, fmt.Errorf("buffer_growth must be at least 1, got %d", s.BufferGrowth))
	}
	if s.BufferMaxElements < s.BufferInitialCapacity {
		errs = append(errs, fmt.Errorf("buffer_max_elements (%d) must be >= buffer_initial_capacity (%d)",
			s.BufferMaxElements, s.BufferInitialCapacity))
	}

	// Classification
	if s.CountThreshold < 0 {
		errs = append(errs, fmt.Errorf("count_threshold must be non-negative, got %d", s.CountThreshold))
	}
	if s.CurvatureThreshold < 0 {
		errs = append(errs, fmt.Errorf("curvature_threshold must be non-negative, got %d", s.CurvatureThreshold))
	}

	// Control loop
	if s.TickMs < 1 || s.TickMs > 1000 {
		errs = append(errs, fmt.Errorf("tick_ms must be between 1 and 1000, got %d", s.TickMs))
	}

	// Synthetic source
	if _, err := sampler.ParseShape(s.SyntheticShape); err != nil {
		errs = append(errs, fmt.Errorf("synthetic_shape: %w", err))
	}
	if s.SyntheticFrequency < 0 {
		errs = append(errs, fmt.Errorf("synthetic_frequency must be non-negative, got %v", s.SyntheticFrequency))
	}
	if s.SyntheticAmplitude < 0 {
		errs = append(errs, fmt.Errorf("synthetic_amplitude must be non-negative, got %v", s.SyntheticAmplitude))
	}
	if s.SyntheticStepUs < 1 {
		errs = append(errs, fmt.Errorf("synthetic_step_us must be at least 1, got %d", s.SyntheticStepUs))
	}
	// The generator must be sampled at least twice per cycle
	if s.SyntheticFrequency > 0 && s.SyntheticStepUs >= 1 &&
		s.SyntheticFrequency > 1e6/float64(2*s.SyntheticStepUs) {
		errs = append(errs, fmt.Errorf("synthetic_frequency (%v Hz) must not exceed the step Nyquist limit (%v Hz)",
			s.SyntheticFrequency, 1e6/float64(2*s.SyntheticStepUs)))
	}

	// Diagnostics
	if s.Trace && s.TraceFile == "" {
		errs = append(errs, errors.New("trace_file is required when trace is enabled"))
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[s.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s.LogLevel))
	}

	// Remote display mirror
	if s.MQTTBroker != "" && s.MQTTTopic == "" {
		errs = append(errs, errors.New("mqtt_topic is required when mqtt_broker is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
