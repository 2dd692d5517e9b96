// internal/recovery/recovery.go
// Package recovery turns unrecovered panics into a logged, clean exit.
package recovery

import (
	"os"
	"runtime/debug"

	"go.uber.org/zap"
)

// exit is replaced in tests that must observe the exit path in-process.
var exit = os.Exit

// HandlePanic should be deferred at the top of main() or goroutines.
// It logs the panic and stack through logger and exits with code 1.
// A nil logger falls back to a production logger on stderr.
func HandlePanic(logger *zap.Logger) {
	if r := recover(); r != nil {
		fatal(logger, r)
		exit(1)
	}
}

// HandlePanicFunc is HandlePanic with a cleanup run after logging and
// before exiting, typically restoring the terminal.
func HandlePanicFunc(logger *zap.Logger, cleanup func()) {
	if r := recover(); r != nil {
		fatal(logger, r)
		if cleanup != nil {
			cleanup()
		}
		exit(1)
	}
}

func fatal(logger *zap.Logger, r any) {
	if logger == nil {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
	}
	logger.Error("panic recovered",
		zap.Any("panic", r),
		zap.String("stack", string(debug.Stack())),
	)
	_ = logger.Sync()
}
