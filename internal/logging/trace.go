// internal/logging/trace.go
package logging

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ColonelBlimp/waveprobe/internal/sampler"
)

// Trace writes one line per acquired reading: "<t_us> <raw> <volts>".
// A nil *Trace discards everything.
type Trace struct {
	logger *zap.Logger
	close  func()
}

// traceEncoder emits the message only
func traceEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
}

// NewTrace opens (or creates) path and traces into it.
func NewTrace(path string) (*Trace, error) {
	ws, closeFn, err := zap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	return newTrace(ws, closeFn), nil
}

// NewTraceWriter traces into w.
func NewTraceWriter(w io.Writer) *Trace {
	return newTrace(zapcore.AddSync(w), func() {})
}

func newTrace(ws zapcore.WriteSyncer, closeFn func()) *Trace {
	core := zapcore.NewCore(traceEncoder(), ws, zapcore.DebugLevel)
	return &Trace{logger: zap.New(core), close: closeFn}
}

// Record traces one reading taken at t.
func (t *Trace) Record(at time.Duration, raw sampler.RawSample, volts float64) {
	if t == nil {
		return
	}
	t.logger.Debug(fmt.Sprintf("%d %d %.3f", at.Microseconds(), raw, volts))
}

// Close flushes and closes the underlying file.
func (t *Trace) Close() error {
	if t == nil {
		return nil
	}
	err := t.logger.Sync()
	t.close()
	return err
}
