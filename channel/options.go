package channel

import (
	"log/slog"
	"time"

	"github.com/gogpu/webview"
)

// Option configures a Channel.
//
// Example:
//
//	ch := channel.New(eng, host, textures, presenter,
//	    channel.WithLogger(logger),
//	    channel.WithControllerOptions(webview.WithFrameRate(30)),
//	)
type Option func(*options)

type options struct {
	logger       *slog.Logger
	ctrlOpts     []webview.Option
	writeTimeout time.Duration
	sendQueue    int
}

const (
	// DefaultWriteTimeout bounds one WebSocket write.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultSendQueue is the number of outgoing frames a connection
	// buffers before Send fails.
	DefaultSendQueue = 256
)

func defaultOptions() options {
	return options{
		writeTimeout: DefaultWriteTimeout,
		sendQueue:    DefaultSendQueue,
	}
}

// WithLogger sets the channel's logger instead of webview.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithControllerOptions passes opts to the Controller the channel creates.
// A WithListener among them is overridden by the channel itself.
func WithControllerOptions(opts ...webview.Option) Option {
	return func(o *options) {
		o.ctrlOpts = append(o.ctrlOpts, opts...)
	}
}

// WithWriteTimeout bounds each frame written by Serve.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithSendQueue sets how many frames a connection buffers.
func WithSendQueue(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sendQueue = n
		}
	}
}
