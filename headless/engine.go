package headless

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gogpu/webview"
	"github.com/gogpu/webview/content"
	"github.com/gogpu/webview/engine"
)

// Errors returned by Initialize.
var (
	// ErrNotWindowless is returned when windowless rendering is not enabled.
	ErrNotWindowless = errors.New("headless: windowless rendering must be enabled")

	// ErrInitialized is returned by a second Initialize.
	ErrInitialized = errors.New("headless: engine already initialized")
)

// Engine is a pure Go off-screen engine. It fetches pages over HTTP, runs
// their inline scripts in QuickJS and rasterizes a simplified text layout
// with gg.
//
// Engine implements engine.Engine. The zero value is not usable; call New.
type Engine struct {
	opts   options
	queue  *taskQueue
	quit   atomic.Bool
	runner *content.Runner

	// Set by Initialize.
	settings engine.Settings
	app      engine.App
	loader   *loader
	cookies  *cookieStore
	painter  *painter

	// Engine thread only.
	browsers    map[int]*browser
	nextID      int
	initialized bool
}

var _ engine.Engine = (*Engine)(nil)

// New returns an engine configured by opts.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{
		opts:     o,
		queue:    newTaskQueue(),
		browsers: make(map[int]*browser),
	}
	e.runner = content.NewRunner(content.WithLogger(e.logger()))
	return e
}

func (e *Engine) logger() *slog.Logger {
	if e.opts.logger != nil {
		return e.opts.logger
	}
	return webview.Logger()
}

func (e *Engine) contextOptions() []content.ContextOption {
	if e.opts.evalTimeout == 0 {
		return nil
	}
	return []content.ContextOption{content.WithEvalTimeout(e.opts.evalTimeout)}
}

// Initialize implements engine.Engine.
func (e *Engine) Initialize(settings engine.Settings, app engine.App) error {
	if e.initialized {
		return ErrInitialized
	}
	if !settings.WindowlessRendering {
		return ErrNotWindowless
	}

	font := e.opts.font
	if font == nil {
		src, err := loadDefaultFont()
		if err != nil {
			return fmt.Errorf("headless: loading default font: %w", err)
		}
		font = src
	}

	ua := e.opts.userAgent
	if settings.UserAgent != "" {
		ua = settings.UserAgent
	}

	e.cookies = newCookieStore(e.PostTask)
	client := &http.Client{Timeout: DefaultFetchTimeout}
	if e.opts.client != nil {
		c := *e.opts.client
		client = &c
	}
	client.Jar = e.cookies

	e.settings = settings
	e.app = app
	e.loader = &loader{client: client, userAgent: ua}
	e.painter = newPainter(font, e.opts.fontSize)
	e.initialized = true

	e.logger().Info("headless: engine initialized", "userAgent", ua, "args", settings.Args)
	e.queue.start(app.OnContextInitialized)
	return nil
}

// RunMessageLoop implements engine.Engine.
func (e *Engine) RunMessageLoop() {
	e.quit.Store(false)
	for {
		batch := e.queue.take()
		if batch == nil {
			return
		}
		for i, task := range batch {
			task()
			if e.quit.Load() {
				e.queue.requeue(batch[i+1:])
				return
			}
		}
	}
}

// QuitMessageLoop implements engine.Engine.
func (e *Engine) QuitMessageLoop() {
	e.quit.Store(true)
	e.queue.signal()
}

// Shutdown implements engine.Engine. Browsers still open are dropped
// without callbacks.
func (e *Engine) Shutdown() {
	e.queue.stop()
	for id, b := range e.browsers {
		b.closed = true
		if b.cancel != nil {
			b.cancel()
		}
		b.renderer.stop()
		b.renderer.wait()
		delete(e.browsers, id)
	}
	e.logger().Info("headless: engine shut down")
}

// PostTask implements engine.Engine.
func (e *Engine) PostTask(task func()) bool {
	return e.queue.push(task)
}

// CreateBrowser implements engine.Engine. Only windowless browsers are
// supported.
func (e *Engine) CreateBrowser(info engine.WindowInfo, client engine.Client, url string, settings engine.BrowserSettings) bool {
	if !info.Windowless || client == nil || !e.initialized {
		return false
	}
	return e.PostTask(func() {
		e.nextID++
		b := newBrowser(e, e.nextID, client, settings)
		e.browsers[b.id] = b
		client.OnAfterCreated(b)
		if url != "" && !b.closed {
			b.navigate(navigation{req: &engine.Request{URL: url}})
		}
	})
}

// CookieManager implements engine.Engine.
func (e *Engine) CookieManager() engine.CookieManager {
	if e.cookies == nil {
		return nil
	}
	return e.cookies
}

func (e *Engine) removeBrowser(b *browser) {
	delete(e.browsers, b.id)
}
