// internal/session/session.go
// Package session sequences calibration, acquisition and classification in
// response to user commands and publishes the results.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/waveprobe/internal/display"
	"github.com/ColonelBlimp/waveprobe/internal/dsp"
	"github.com/ColonelBlimp/waveprobe/internal/input"
	"github.com/ColonelBlimp/waveprobe/internal/logging"
	"github.com/ColonelBlimp/waveprobe/internal/metrics"
	"github.com/ColonelBlimp/waveprobe/internal/sampler"
	"github.com/ColonelBlimp/waveprobe/internal/waveform"
)

// DefaultTick is the command poll interval while idle
const DefaultTick = 10 * time.Millisecond

// State is the capture session phase
type State int

const (
	// Idle waits for StartCapture
	Idle State = iota
	// Calibrating scans the input for min, max and mean
	Calibrating
	// Acquiring tracks frequency and fills the sample buffer
	Acquiring
	// Classifying runs the classifier over the captured sequence
	Classifying
	// Done holds the report until Rearm
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Calibrating:
		return "calibrating"
	case Acquiring:
		return "acquiring"
	case Classifying:
		return "classifying"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the settings of every stage.
type Config struct {
	CalibrationWindow time.Duration
	Hysteresis        int
	Scale             sampler.Scale
	Buffer            dsp.BufferConfig
	Classifier        waveform.ClassifierConfig
	Tick              time.Duration
}

// DefaultConfig returns the stage defaults
func DefaultConfig() Config {
	return Config{
		CalibrationWindow: dsp.DefaultCalibrationWindow,
		Hysteresis:        dsp.DefaultHysteresis,
		Scale:             sampler.DefaultScale(),
		Buffer:            dsp.DefaultBufferConfig(),
		Classifier:        waveform.DefaultClassifierConfig(),
		Tick:              DefaultTick,
	}
}

// Option configures optional collaborators
type Option func(*Session)

// WithDisplay sets where status screens are shown
func WithDisplay(d display.Sink) Option {
	return func(s *Session) { s.display = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTrace records every acquired reading
func WithTrace(t *logging.Trace) Option {
	return func(s *Session) { s.trace = t }
}

// WithReportHook calls fn with every completed report
func WithReportHook(fn func(Report)) Option {
	return func(s *Session) { s.onReport = fn }
}

// Session is the capture state machine. It is driven from a single goroutine.
type Session struct {
	config  Config
	sampler sampler.Sampler
	clock   sampler.Clock

	calibrator *dsp.Calibrator
	detector   *dsp.FrequencyDetector
	buffer     *dsp.SampleBuffer
	classifier *waveform.Classifier

	display  display.Sink
	logger   *zap.Logger
	metrics  *metrics.Collector
	trace    *logging.Trace
	onReport func(Report)

	state     State
	report    Report
	hasReport bool
	lastErr   error
	quit      bool
}

// New builds a session reading from s and timing with clk.
func New(cfg Config, s sampler.Sampler, clk sampler.Clock, opts ...Option) (*Session, error) {
	if s == nil {
		return nil, ErrSamplerRequired
	}
	if clk == nil {
		return nil, ErrClockRequired
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}

	calibrator, err := dsp.NewCalibrator(s, clk, cfg.Scale)
	if err != nil {
		return nil, fmt.Errorf("calibrator: %w", err)
	}
	detector, err := dsp.NewFrequencyDetector(cfg.Hysteresis)
	if err != nil {
		return nil, fmt.Errorf("frequency detector: %w", err)
	}
	buffer, err := dsp.NewSampleBuffer(cfg.Buffer)
	if err != nil {
		return nil, fmt.Errorf("sample buffer: %w", err)
	}
	classifier, err := waveform.NewClassifier(cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	sess := &Session{
		config:     cfg,
		sampler:    s,
		clock:      clk,
		calibrator: calibrator,
		detector:   detector,
		buffer:     buffer,
		classifier: classifier,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(sess)
	}

	detector.SetCallback(func(e dsp.CrossingEvent) {
		sess.logger.Debug("crossing",
			zap.Int64("t_us", e.Timestamp.Microseconds()),
			zap.Int("raw", int(e.Value)),
			zap.Float64("frequency_hz", e.Estimate.FrequencyHz))
	})

	return sess, nil
}

// State returns the current phase
func (s *Session) State() State {
	return s.state
}

// Report returns the last completed report, false if none since the last Rearm.
func (s *Session) Report() (Report, bool) {
	return s.report, s.hasReport
}

// Err returns the error that aborted the last session, if any.
func (s *Session) Err() error {
	return s.lastErr
}

// Config returns the session configuration
func (s *Session) Config() Config {
	return s.config
}

// Handle applies one command. StartCapture runs a whole session
// synchronously, polling src for StopCapture during acquisition.
func (s *Session) Handle(ctx context.Context, cmd input.Command, src input.Source) error {
	switch {
	case cmd == input.StartCapture && s.state == Idle:
		return s.capture(ctx, src)
	case cmd == input.Rearm && s.state == Done:
		s.rearm()
		return nil
	}
	return fmt.Errorf("%w: %s while %s", ErrUnexpectedCommand, cmd, s.state)
}

// Run shows the prompt and dispatches commands from src until Quit or ctx
// is cancelled. Sampler failures are shown and logged but do not stop Run.
func (s *Session) Run(ctx context.Context, src input.Source) error {
	s.show(display.Prompt())

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		if cmd, ok := src.Poll(); ok {
			if cmd == input.Quit {
				s.logger.Info("quit requested", zap.Stringer("state", s.state))
				return nil
			}

			err := s.Handle(ctx, cmd, src)
			switch {
			case err == nil:
			case errors.Is(err, ErrUnexpectedCommand):
				s.logger.Debug("command ignored", zap.Error(err))
			case errors.Is(err, ErrSamplerFailure):
				// already reported by abort
			case ctx.Err() != nil:
				return nil
			default:
				return err
			}

			if s.quit {
				s.logger.Info("quit requested", zap.Stringer("state", s.state))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// rearm clears all per-session state and returns to Idle.
func (s *Session) rearm() {
	s.buffer.Reset()
	s.detector.Reset()
	s.report = Report{}
	s.hasReport = false
	s.lastErr = nil
	s.setState(Idle)
	s.show(display.Prompt())
}

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("state transition",
		zap.Stringer("from", s.state),
		zap.Stringer("to", next))
	s.state = next
}

func (s *Session) show(lines display.Lines) {
	if s.display == nil {
		return
	}
	if err := s.display.Show(lines); err != nil {
		s.logger.Warn("display update failed", zap.Error(err), zap.Stringer("lines", lines))
	}
}
