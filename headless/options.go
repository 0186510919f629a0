package headless

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gogpu/gg/text"
)

// Option configures an Engine.
//
// Example:
//
//	eng := headless.New(
//	    headless.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
//	    headless.WithFontSize(16),
//	)
type Option func(*options)

type options struct {
	client      *http.Client
	userAgent   string
	font        *text.FontSource
	fontSize    float64
	logger      *slog.Logger
	evalTimeout time.Duration
}

const (
	// DefaultUserAgent is sent unless the engine settings or WithUserAgent
	// override it.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) webview-headless/1.0"

	// DefaultFontSize is the body text size in pixels.
	DefaultFontSize = 14

	// DefaultFetchTimeout bounds one network load.
	DefaultFetchTimeout = 30 * time.Second
)

func defaultOptions() options {
	return options{
		userAgent: DefaultUserAgent,
		fontSize:  DefaultFontSize,
	}
}

// WithHTTPClient sets the client used for http and https loads. The
// engine installs its own cookie jar on a copy of the client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithUserAgent sets the User-Agent header. engine.Settings.UserAgent, when
// set, takes precedence.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithFont sets the font used to render pages. The default is Go Regular.
func WithFont(src *text.FontSource) Option {
	return func(o *options) {
		o.font = src
	}
}

// WithFontSize sets the body text size in pixels.
func WithFontSize(size float64) Option {
	return func(o *options) {
		if size > 0 {
			o.fontSize = size
		}
	}
}

// WithLogger sets the engine's logger instead of webview.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithEvalTimeout bounds a single script evaluation on the content side.
func WithEvalTimeout(d time.Duration) Option {
	return func(o *options) {
		o.evalTimeout = d
	}
}
