package webview

import "log/slog"

// Option configures a Controller during creation.
//
// Example:
//
//	ctrl := webview.NewController(eng, host,
//	    webview.WithListener(events),
//	    webview.WithFrameRate(30),
//	)
type Option func(*controllerOptions)

type controllerOptions struct {
	listener  Listener
	logger    *slog.Logger
	frameRate int
	userAgent string
}

func defaultOptions() controllerOptions {
	return controllerOptions{
		listener:  NullListener{},
		frameRate: DefaultFrameRate,
	}
}

// WithListener sets the sink for page, progress, error and script events.
func WithListener(l Listener) Option {
	return func(o *controllerOptions) {
		if l != nil {
			o.listener = l
		}
	}
}

// WithLogger sets a logger for this controller instead of the package
// logger returned by Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *controllerOptions) {
		o.logger = l
	}
}

// WithFrameRate sets the windowless frame rate for new instances.
// Non-positive values keep DefaultFrameRate.
func WithFrameRate(fps int) Option {
	return func(o *controllerOptions) {
		if fps > 0 {
			o.frameRate = fps
		}
	}
}

// WithUserAgent overrides the engine's user agent.
func WithUserAgent(ua string) Option {
	return func(o *controllerOptions) {
		o.userAgent = ua
	}
}
