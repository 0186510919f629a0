package content

import (
	"log/slog"
	"time"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger instead of webview.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// ContextOption configures a QuickJS context.
type ContextOption func(*contextOptions)

type contextOptions struct {
	memoryLimit uintptr
	evalTimeout time.Duration
}

const (
	// DefaultMemoryLimit bounds each document's script heap.
	DefaultMemoryLimit = 64 << 20

	// DefaultEvalTimeout interrupts a single evaluation.
	DefaultEvalTimeout = 5 * time.Second
)

func defaultContextOptions() contextOptions {
	return contextOptions{
		memoryLimit: DefaultMemoryLimit,
		evalTimeout: DefaultEvalTimeout,
	}
}

// WithMemoryLimit sets the script heap limit in bytes.
func WithMemoryLimit(n uintptr) ContextOption {
	return func(o *contextOptions) {
		if n > 0 {
			o.memoryLimit = n
		}
	}
}

// WithEvalTimeout sets how long one evaluation may run before it is
// interrupted. Zero disables the watchdog.
func WithEvalTimeout(d time.Duration) ContextOption {
	return func(o *contextOptions) {
		o.evalTimeout = d
	}
}
