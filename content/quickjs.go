package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"modernc.org/quickjs"

	"github.com/gogpu/webview/engine"
)

// ErrContextClosed is returned by Eval after Close or after an evaluation
// was interrupted.
var ErrContextClosed = errors.New("content: script context is closed")

// WindowHost receives window.open and window.close calls made by page
// scripts.
type WindowHost interface {
	OpenWindow(url string)
	CloseWindow()
}

type nopWindowHost struct{}

func (nopWindowHost) OpenWindow(string) {}
func (nopWindowHost) CloseWindow()      {}

// QuickJSContext is a document's script context backed by a QuickJS VM.
// It implements engine.ScriptContext. A context is owned by one goroutine.
type QuickJSContext struct {
	vm     *quickjs.VM
	opts   contextOptions
	closed bool
}

var _ engine.ScriptContext = (*QuickJSContext)(nil)

// NewQuickJSContext creates a context whose window.open and window.close
// are forwarded to host. host may be nil.
func NewQuickJSContext(host WindowHost, opts ...ContextOption) (*QuickJSContext, error) {
	o := defaultContextOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if host == nil {
		host = nopWindowHost{}
	}

	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("content: creating VM: %w", err)
	}
	vm.SetMemoryLimit(o.memoryLimit)

	c := &QuickJSContext{vm: vm, opts: o}
	if err := c.installWindow(host); err != nil {
		vm.Close()
		return nil, err
	}
	return c, nil
}

const windowBootstrap = `(function (g) {
	var open = g.__webview_open, close = g.__webview_close;
	delete g.__webview_open;
	delete g.__webview_close;
	g.window = g;
	g.self = g;
	g.document = { URL: "about:blank", title: "" };
	g.open = function (url) {
		open(url === undefined || url === null ? "" : String(url));
		return null;
	};
	g.close = function () { close(); };
})(globalThis);`

func (c *QuickJSContext) installWindow(host WindowHost) error {
	if err := c.vm.RegisterFunc("__webview_open", func(url string) {
		host.OpenWindow(url)
	}, false); err != nil {
		return fmt.Errorf("content: registering window.open: %w", err)
	}
	if err := c.vm.RegisterFunc("__webview_close", func() {
		host.CloseWindow()
	}, false); err != nil {
		return fmt.Errorf("content: registering window.close: %w", err)
	}
	return c.exec(windowBootstrap)
}

// SetDocument exposes the loaded document's URL and title to scripts as
// document.URL and document.title.
func (c *QuickJSContext) SetDocument(url, title string) error {
	doc, err := json.Marshal(map[string]string{"URL": url, "title": title})
	if err != nil {
		return err
	}
	return c.exec("globalThis.document = " + string(doc) + ";")
}

func (c *QuickJSContext) exec(js string) error {
	if c.closed {
		return ErrContextClosed
	}
	v, err := c.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}
	v.Free()
	return nil
}

// Eval runs code in the global scope. A thrown exception, or running past
// the evaluation timeout, is returned as an *engine.ScriptError. A context
// that timed out is closed.
func (c *QuickJSContext) Eval(code string) (any, error) {
	if c.closed {
		return nil, ErrContextClosed
	}

	var timedOut atomic.Bool
	var watchdog *time.Timer
	interrupted := make(chan struct{})
	if c.opts.evalTimeout > 0 {
		watchdog = time.AfterFunc(c.opts.evalTimeout, func() {
			defer close(interrupted)
			timedOut.Store(true)
			c.vm.Interrupt()
		})
	}

	v, err := c.vm.Eval(code, quickjs.EvalGlobal)
	if watchdog != nil && !watchdog.Stop() {
		// The VM must not be touched again until Interrupt has returned.
		<-interrupted
	}
	if timedOut.Load() {
		c.Close()
		return nil, &engine.ScriptError{Message: fmt.Sprintf("script timed out after %v", c.opts.evalTimeout)}
	}
	if err != nil {
		return nil, &engine.ScriptError{Message: err.Error()}
	}
	return v, nil
}

// Close releases the VM. It is idempotent.
func (c *QuickJSContext) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.vm.Close()
}
