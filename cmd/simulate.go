// cmd/simulate.go
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/waveprobe/internal/config"
	"github.com/ColonelBlimp/waveprobe/internal/display"
	"github.com/ColonelBlimp/waveprobe/internal/input"
	"github.com/ColonelBlimp/waveprobe/internal/sampler"
	"github.com/ColonelBlimp/waveprobe/internal/session"
)

// defaultStopAfter is the number of acquisition readings before the
// scripted stop; enough for a frequency estimate and a full buffer at 1 kHz.
const defaultStopAfter = 600

var errInvalidRuns = errors.New("runs must be at least 1")

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run scripted capture sessions against a synthetic signal",
	Long: `simulate drives complete capture sessions against the synthetic generator:
each run starts a capture, stops it after a fixed number of acquisition
readings and prints the resulting report.`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.IntP("runs", "n", 1, "number of sessions to run")
	f.String("shape", "", "override synthetic_shape (constant, square, sine, triangle)")
	f.Float64("frequency", 0, "override synthetic_frequency in Hz")
	f.Int("step", 0, "override synthetic_step_us")
	f.Int("stop-after", defaultStopAfter, "acquisition readings before the scripted stop")
	f.Bool("json", false, "print reports as JSON lines")
	f.Bool("screens", false, "also print every display screen")
}

// simulateOverrides applies the local flags the user set on top of s
func simulateOverrides(cmd *cobra.Command, s *config.Settings) error {
	f := cmd.Flags()
	if f.Changed("shape") {
		s.SyntheticShape, _ = f.GetString("shape")
	}
	if f.Changed("frequency") {
		s.SyntheticFrequency, _ = f.GetFloat64("frequency")
	}
	if f.Changed("step") {
		s.SyntheticStepUs, _ = f.GetInt("step")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	s, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := simulateOverrides(cmd, s); err != nil {
		return err
	}
	runs, _ := cmd.Flags().GetInt("runs")
	if runs < 1 {
		return fmt.Errorf("%w, got %d", errInvalidRuns, runs)
	}
	stopAfter, _ := cmd.Flags().GetInt("stop-after")
	asJSON, _ := cmd.Flags().GetBool("json")
	screens, _ := cmd.Flags().GetBool("screens")

	gcfg, err := generatorConfig(s)
	if err != nil {
		return err
	}
	gen, err := sampler.NewGenerator(gcfg)
	if err != nil {
		return fmt.Errorf("synthetic source: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	opts, closeDiag, err := diagnostics(ctx, s, logger)
	if err != nil {
		return err
	}
	defer closeDiag()

	out := cmd.OutOrStdout()
	var reports []session.Report
	opts = append(opts,
		session.WithLogger(logger),
		session.WithReportHook(func(r session.Report) {
			reports = append(reports, r)
			// every run sees the same signal
			gen.Reset()
		}))
	if screens {
		opts = append(opts, session.WithDisplay(display.NewTerminal(out, false)))
	}

	sess, err := session.New(sessionConfig(s), gen, gen, opts...)
	if err != nil {
		return err
	}

	logger.Debug("simulating",
		zap.Int("runs", runs),
		zap.Stringer("shape", gcfg.Shape),
		zap.Float64("frequency_hz", gcfg.Frequency),
		zap.Duration("step", gcfg.Step))

	if err := sess.Run(ctx, simulationScript(runs, stopAfter)); err != nil {
		return err
	}
	if len(reports) != runs {
		if err := sess.Err(); err != nil {
			return fmt.Errorf("completed %d of %d runs: %w", len(reports), runs, err)
		}
		return fmt.Errorf("completed %d of %d runs", len(reports), runs)
	}

	for i, r := range reports {
		if asJSON {
			err = writeReportJSON(out, r)
		} else {
			err = writeReport(out, i+1, r)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// simulationScript starts, stops and re-arms runs times, then quits
func simulationScript(runs, stopAfter int) *input.Script {
	steps := make([]input.Step, 0, 3*runs+1)
	for range runs {
		steps = append(steps,
			input.Step{Command: input.StartCapture},
			input.Step{Wait: stopAfter, Command: input.StopCapture},
			input.Step{Command: input.Rearm},
		)
	}
	steps = append(steps, input.Step{Command: input.Quit})
	return input.NewScript(steps...)
}

func writeReport(w io.Writer, run int, r session.Report) error {
	freq := "---"
	if r.FrequencyOK {
		freq = fmt.Sprintf("%.1f Hz", r.Frequency.FrequencyHz)
	}
	c := r.Classification
	_, err := fmt.Fprintf(w, "run %d: %s amplitude %.2f V frequency %s samples %d/%d counts C%d S%d T%d\n",
		run, c.Shape, r.Calibration.Amplitude, freq, len(r.Sequence), r.Capacity, c.Square, c.Sine, c.Triangular)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	for _, cond := range r.Conditions {
		if _, err := fmt.Fprintf(w, "  %v\n", cond); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

func writeReportJSON(w io.Writer, r session.Report) error {
	if err := json.NewEncoder(w).Encode(r); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
