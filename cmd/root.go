// cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ColonelBlimp/waveprobe/internal/audio"
	"github.com/ColonelBlimp/waveprobe/internal/config"
	"github.com/ColonelBlimp/waveprobe/internal/display"
	"github.com/ColonelBlimp/waveprobe/internal/input"
	"github.com/ColonelBlimp/waveprobe/internal/logging"
	"github.com/ColonelBlimp/waveprobe/internal/metrics"
	"github.com/ColonelBlimp/waveprobe/internal/recovery"
	"github.com/ColonelBlimp/waveprobe/internal/sampler"
	"github.com/ColonelBlimp/waveprobe/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "waveprobe",
	Short: "Measure amplitude, frequency and shape of a periodic signal",
	Long: `waveprobe calibrates against a periodic input, estimates its frequency,
captures one cycle-spaced sequence and classifies it as square, sine or
triangular. Press 1 (or s) to capture, 2 (or x) to stop, r to re-arm and q to quit.`,
	SilenceUsage: true,
	RunE:         runAnalyser,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// persistent flags and the settings they override
var flagKeys = map[string]string{
	"device":      "device_index",
	"source":      "source",
	"hysteresis":  "hysteresis",
	"calibration": "calibration_ms",
	"debug":       "debug",
	"trace":       "trace",
	"metrics":     "metrics_addr",
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().StringP("source", "s", config.SourceAudio, "signal source: audio or synthetic")
	rootCmd.PersistentFlags().IntP("hysteresis", "H", 5, "dead band half-width around the midline, in raw units")
	rootCmd.PersistentFlags().IntP("calibration", "c", 1000, "calibration window in milliseconds")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")
	rootCmd.PersistentFlags().BoolP("trace", "t", false, "write every acquired reading to the trace file")
	rootCmd.PersistentFlags().StringP("metrics", "m", "", "serve Prometheus metrics on this address (e.g. :9102)")

	rootCmd.AddCommand(simulateCmd, devicesCmd)
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	bindFlags()
}

// bindFlags binds the persistent flags to viper. It runs after config.Init
// so the bindings survive a viper.Reset between executions.
func bindFlags() {
	for name, key := range flagKeys {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name))
	}
}

// setup loads and validates the settings and builds the logger
func setup() (*config.Settings, *zap.Logger, error) {
	s, err := config.Get()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(loggingOptions(s))
	if err != nil {
		return nil, nil, err
	}
	return s, logger, nil
}

func runAnalyser(cmd *cobra.Command, _ []string) error {
	s, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := cmd.InOrStdin()
	keys := input.NewKeyboard(in)
	raw := false
	if f, ok := in.(*os.File); ok {
		switch err := keys.EnableRaw(int(f.Fd())); {
		case err == nil:
			raw = true
		case errors.Is(err, input.ErrNotTerminal):
			logger.Debug("input is not a terminal, keys need Enter")
		default:
			return err
		}
	}
	defer func() {
		if err := keys.Close(); err != nil {
			logger.Warn("restore terminal failed", zap.Error(err))
		}
	}()
	defer recovery.HandlePanicFunc(logger, func() { _ = keys.Close() })

	smp, clk, closeSource, err := openSource(ctx, s, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	opts, closeDiag, err := diagnostics(ctx, s, logger)
	if err != nil {
		return err
	}
	defer closeDiag()

	var sink display.Sink = display.NewTerminal(cmd.OutOrStdout(), raw)
	if s.MQTTBroker != "" {
		mq, err := display.DialMQTT(mqttConfig(s))
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer mq.Close()
		sink = display.Multi{sink, mq}
		opts = append(opts, session.WithReportHook(publishReport(mq, logger)))
		logger.Info("mirroring display", zap.String("broker", s.MQTTBroker), zap.String("topic", s.MQTTTopic))
	}
	opts = append(opts, session.WithDisplay(sink), session.WithLogger(logger))

	sess, err := session.New(sessionConfig(s), smp, clk, opts...)
	if err != nil {
		return err
	}

	logger.Info("analyser ready",
		zap.String("source", s.Source),
		zap.Int("hysteresis", s.Hysteresis),
		zap.Int("calibration_ms", s.CalibrationMs))
	return sess.Run(ctx, quitOnEOF{keys})
}

// openSource builds the configured sampler and its clock. The returned
// func releases the source.
func openSource(ctx context.Context, s *config.Settings, logger *zap.Logger) (sampler.Sampler, sampler.Clock, func(), error) {
	if s.Source == config.SourceSynthetic {
		gcfg, err := generatorConfig(s)
		if err != nil {
			return nil, nil, nil, err
		}
		gen, err := sampler.NewGenerator(gcfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("synthetic source: %w", err)
		}
		logger.Info("using synthetic source",
			zap.Stringer("shape", gcfg.Shape),
			zap.Float64("frequency_hz", gcfg.Frequency),
			zap.Duration("step", gcfg.Step))
		return gen, gen, func() {}, nil
	}

	acfg := audioConfig(s)
	capture := audio.New(acfg)
	if err := capture.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("audio: %w", err)
	}
	closeCapture := func() {
		if err := capture.Close(); err != nil {
			logger.Warn("close audio capture failed", zap.Error(err))
		}
	}
	if err := capture.Start(ctx); err != nil {
		closeCapture()
		return nil, nil, nil, fmt.Errorf("audio: %w", err)
	}
	// Closing the stream unblocks a Read in progress when ctx ends
	stopAfter := context.AfterFunc(ctx, closeCapture)

	smp, err := audio.NewSampler(capture.Samples, acfg.SampleRate, acfg.Channels, scaleFrom(s))
	if err != nil {
		stopAfter()
		closeCapture()
		return nil, nil, nil, fmt.Errorf("audio: %w", err)
	}
	logger.Info("audio capture started",
		zap.Int("device_index", acfg.DeviceIndex),
		zap.Uint32("sample_rate", acfg.SampleRate))
	return smp, smp, func() {
		stopAfter()
		closeCapture()
	}, nil
}

// diagnostics builds the optional metrics and trace collaborators
func diagnostics(ctx context.Context, s *config.Settings, logger *zap.Logger) ([]session.Option, func(), error) {
	var opts []session.Option
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if s.MetricsAddr != "" {
		collector := metrics.New()
		opts = append(opts, session.WithMetrics(collector))
		go func() {
			if err := collector.Serve(ctx, s.MetricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if s.Trace {
		trace, err := logging.NewTrace(s.TraceFile)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := trace.Close(); err != nil {
				logger.Warn("close trace failed", zap.Error(err))
			}
		})
		opts = append(opts, session.WithTrace(trace))
		logger.Info("tracing readings", zap.String("file", s.TraceFile))
	}

	return opts, closeAll, nil
}

func publishReport(mq *display.MQTT, logger *zap.Logger) func(session.Report) {
	return func(r session.Report) {
		if err := mq.PublishJSON("report", r); err != nil {
			logger.Warn("publish report failed", zap.Error(err))
		}
	}
}

// quitOnEOF turns the end of keyboard input into Quit once every key read
// before it has been delivered.
type quitOnEOF struct {
	keys *input.Keyboard
}

func (q quitOnEOF) Poll() (input.Command, bool) {
	if cmd, ok := q.keys.Poll(); ok {
		return cmd, true
	}
	select {
	case <-q.keys.Done():
		if cmd, ok := q.keys.Poll(); ok {
			return cmd, true
		}
		return input.Quit, true
	default:
		return 0, false
	}
}
