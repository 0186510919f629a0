// Command webviewd serves off-screen browsers to a remote host over a
// WebSocket method channel.
//
// Usage:
//
//	webviewd -addr :8765 -width 1280 -height 800
//
// Clients connect to /channel and exchange JSON calls and events as
// described in package channel. /frame.png returns the composited
// framebuffer and /snapshot/{id} the texture of one browser instance.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"github.com/gogpu/webview"
)

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:8765", "listen address")
		width   = flag.Int("width", 1280, "framebuffer width")
		height  = flag.Int("height", 800, "framebuffer height")
		fps     = flag.Int("fps", webview.DefaultFrameRate, "frame rate of new browsers")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	zl, err := newZapLogger(*verbose)
	if err != nil {
		log.Fatalf("webviewd: logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	logger := slog.New(zapslog.NewHandler(zl.Core()))
	webview.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, config{addr: *addr, width: *width, height: *height, fps: *fps}); err != nil {
		logger.Error("webviewd: exiting", "err", err)
		os.Exit(1)
	}
}

func newZapLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

type config struct {
	addr          string
	width, height int
	fps           int
}

// run owns the host thread: it serves HTTP from other goroutines and runs
// the host loop on the calling goroutine until ctx is done.
func run(ctx context.Context, logger *slog.Logger, cfg config) error {
	d := newDaemon(logger, cfg)

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           d.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		logger.Info("webviewd: listening", "addr", cfg.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	if err := d.host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("webviewd: host loop stopped", "err", err)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("webviewd: http shutdown", "err", err)
	}

	// Run has returned, so this goroutine is the host thread again.
	closeErr := d.close()

	select {
	case err := <-serveErr:
		return errors.Join(err, closeErr)
	default:
		return closeErr
	}
}
