// internal/session/capture.go
package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/waveprobe/internal/display"
	"github.com/ColonelBlimp/waveprobe/internal/dsp"
	"github.com/ColonelBlimp/waveprobe/internal/input"
	"github.com/ColonelBlimp/waveprobe/internal/metrics"
	"github.com/ColonelBlimp/waveprobe/internal/sampler"
	"github.com/ColonelBlimp/waveprobe/internal/waveform"
)

// capture runs Calibrating -> Acquiring -> Classifying -> Done.
func (s *Session) capture(ctx context.Context, src input.Source) error {
	s.buffer.Reset()
	s.detector.Reset()
	s.report = Report{}
	s.hasReport = false
	s.lastErr = nil
	s.quit = false

	s.setState(Calibrating)
	s.show(display.Capturing())

	// Readings queued while idle predate the command
	if d, ok := s.sampler.(sampler.Discarder); ok {
		if n := d.Discard(); n > 0 {
			s.logger.Debug("discarded stale readings", zap.Int("count", n))
		}
	}

	cal, err := s.calibrator.Calibrate(s.config.CalibrationWindow)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancel(ctx.Err())
		}
		return s.abort(err)
	}
	s.logger.Info("calibration complete",
		zap.Int("min", int(cal.Min)),
		zap.Int("max", int(cal.Max)),
		zap.Int("mean", int(cal.Mean)),
		zap.Float64("amplitude_volts", cal.Amplitude),
		zap.Int("samples", cal.Samples))

	s.setState(Acquiring)
	s.detector.Arm(cal.Mean)

	start := s.clock.Now()
	if err := s.acquire(ctx, src); err != nil {
		return err
	}
	elapsed := s.clock.Now() - start

	s.setState(Classifying)
	s.finish(cal, elapsed)
	return nil
}

// acquire feeds the detector and buffer until StopCapture or Quit arrives.
// src is polled once per reading.
func (s *Session) acquire(ctx context.Context, src input.Source) error {
	announcedFull := false

	for {
		if src != nil {
			if cmd, ok := src.Poll(); ok {
				switch cmd {
				case input.StopCapture:
					return nil
				case input.Quit:
					s.quit = true
					return nil
				default:
					s.logger.Debug("command ignored while acquiring", zap.Stringer("command", cmd))
				}
			}
		}

		if err := ctx.Err(); err != nil {
			return s.cancel(err)
		}

		now := s.clock.Now()
		v, err := s.sampler.Read()
		if err != nil {
			// cancellation may close the stream under a blocked Read
			if ctx.Err() != nil {
				return s.cancel(ctx.Err())
			}
			return s.abort(err)
		}
		s.trace.Record(now, v, s.config.Scale.Volts(v))

		if est, fresh := s.detector.Observe(now, v); fresh {
			s.logger.Debug("frequency estimate",
				zap.Float64("frequency_hz", est.FrequencyHz),
				zap.Duration("period", est.Period))
		}

		est, ok := s.detector.Estimate()
		if !ok {
			continue
		}
		if s.buffer.MaybeSample(now, v, est) && s.buffer.Full() && !announcedFull {
			announcedFull = true
			s.logger.Info("sample buffer full", zap.Int("length", s.buffer.Len()))
		}
	}
}

// finish classifies the captured sequence and publishes the report.
func (s *Session) finish(cal dsp.CalibrationResult, elapsed time.Duration) {
	full := s.buffer.Full()
	capacity := s.buffer.Capacity()
	dropped := s.buffer.Dropped()
	times := s.buffer.Times()
	seq := s.buffer.Take()

	est, estOK := s.detector.Estimate()
	result := s.classifier.Classify(seq)

	r := Report{
		Calibration:    cal,
		Frequency:      est,
		FrequencyOK:    estOK,
		Crossings:      s.detector.Crossings(),
		Classification: result,
		Summary:        waveform.Summarize(seq, s.config.Scale),
		Sequence:       seq,
		Times:          times,
		Capacity:       capacity,
		Full:           full,
		Dropped:        dropped,
		Acquisition:    elapsed,
	}

	if cal.Degenerate() {
		r.Conditions = append(r.Conditions, ErrCalibrationDegenerate)
	}
	if !estOK {
		r.Conditions = append(r.Conditions, ErrFrequencyUnavailable)
	}
	if full {
		r.Conditions = append(r.Conditions, ErrBufferFull)
	}

	s.report = r
	s.hasReport = true
	s.setState(Done)

	s.logger.Info("classification complete",
		zap.Stringer("shape", result.Shape),
		zap.Int("count_square", result.Square),
		zap.Int("count_sine", result.Sine),
		zap.Int("count_triangular", result.Triangular),
		zap.Int("length", len(seq)),
		zap.Bool("frequency_ok", estOK),
		zap.Float64("frequency_hz", est.FrequencyHz),
		zap.Errors("conditions", r.Conditions))

	s.show(display.Measurements(cal.Amplitude, est.FrequencyHz, estOK))
	s.show(display.Classification(result.Shape.DisplayName(), result.Square, result.Sine, result.Triangular))

	s.metrics.Measured(cal.Amplitude, est.FrequencyHz, estOK)
	s.metrics.Captured(len(seq), full)
	s.metrics.Classified(result.Shape.String())
	s.metrics.ObserveAcquisition(r.Acquisition)
	s.metrics.SessionFinished(metrics.OutcomeCompleted)

	if s.onReport != nil {
		s.onReport(r)
	}
}

// cancel ends the session because ctx was cancelled and returns to Idle.
func (s *Session) cancel(cause error) error {
	s.buffer.Reset()
	s.logger.Info("capture cancelled", zap.Stringer("state", s.state))
	s.setState(Idle)
	s.metrics.SessionFinished(metrics.OutcomeAborted)
	return fmt.Errorf("acquisition cancelled: %w", cause)
}

// abort ends the session after a read failure and returns to Idle.
func (s *Session) abort(cause error) error {
	err := fmt.Errorf("%w: %w", ErrSamplerFailure, cause)

	s.buffer.Reset()
	s.lastErr = err
	s.logger.Error("session aborted",
		zap.Stringer("state", s.state),
		zap.Error(cause))
	s.setState(Idle)
	s.show(display.SamplerFailure())

	s.metrics.SamplerError()
	s.metrics.SessionFinished(metrics.OutcomeAborted)
	return err
}
