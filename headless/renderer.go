package headless

import (
	"log/slog"

	"github.com/gogpu/webview/content"
	"github.com/gogpu/webview/engine"
)

// renderer is the content side of one browser. It owns the page's script
// context on its own goroutine and talks to the browser only through
// posted tasks.
type renderer struct {
	queue  *taskQueue
	client engine.ContentClient
	opts   []content.ContextOption
	logger *slog.Logger

	// toBrowser delivers a message on the engine thread.
	toBrowser func(msg *engine.ProcessMessage)
	window    content.WindowHost

	// Owned by the renderer goroutine.
	ctx *content.QuickJSContext

	done chan struct{}
}

func newRenderer(client engine.ContentClient, window content.WindowHost, toBrowser func(*engine.ProcessMessage), logger *slog.Logger, opts ...content.ContextOption) *renderer {
	r := &renderer{
		queue:     newTaskQueue(),
		client:    client,
		opts:      opts,
		logger:    logger,
		toBrowser: toBrowser,
		window:    window,
		done:      make(chan struct{}),
	}
	r.queue.start()
	go r.run()
	return r
}

func (r *renderer) run() {
	defer close(r.done)
	defer r.dropContext()
	for {
		batch := r.queue.take()
		if batch == nil {
			return
		}
		for _, task := range batch {
			task()
		}
	}
}

func (r *renderer) dropContext() {
	if r.ctx != nil {
		r.ctx.Close()
		r.ctx = nil
	}
}

// commit replaces the script context with a fresh one for a new document
// and runs the document's inline scripts.
func (r *renderer) commit(url, title string, scripts []string) {
	r.queue.push(func() {
		r.dropContext()
		ctx, err := content.NewQuickJSContext(r.window, r.opts...)
		if err != nil {
			r.logger.Error("headless: creating script context", "url", url, "err", err)
			return
		}
		r.ctx = ctx
		if err := ctx.SetDocument(url, title); err != nil {
			r.logger.Warn("headless: setting document", "url", url, "err", err)
		}
		for i, src := range scripts {
			if _, err := ctx.Eval(src); err != nil {
				r.logger.Debug("headless: inline script failed", "url", url, "index", i, "err", err)
			}
		}
	})
}

// deliver hands msg to the content client.
func (r *renderer) deliver(source engine.ProcessID, msg *engine.ProcessMessage) {
	r.queue.push(func() {
		if !r.client.OnProcessMessageReceived(rendererFrame{r}, source, msg) {
			r.logger.Debug("headless: unhandled content message", "name", msg.Name)
		}
	})
}

// stop ends the goroutine after the running task. Queued tasks are dropped.
func (r *renderer) stop() {
	r.queue.stop()
}

// wait blocks until the goroutine has released its script context.
func (r *renderer) wait() {
	<-r.done
}

// rendererFrame is the main frame as the content side sees it.
type rendererFrame struct {
	r *renderer
}

var _ engine.ContentFrame = rendererFrame{}

func (rendererFrame) IsMain() bool { return true }

func (f rendererFrame) ScriptContext() (engine.ScriptContext, bool) {
	if f.r.ctx == nil {
		return nil, false
	}
	return f.r.ctx, true
}

func (f rendererFrame) SendProcessMessage(target engine.ProcessID, msg *engine.ProcessMessage) {
	if target != engine.ProcessBrowser {
		f.r.logger.Warn("headless: content frame can only message the browser", "target", target)
		return
	}
	f.r.toBrowser(msg)
}
