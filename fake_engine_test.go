package webview

import (
	"sync"
	"testing"
	"time"

	"github.com/gogpu/webview/engine"
)

// fakeEngine is a scripted engine. Browser creation and closing are
// delivered as tasks, the way a real engine reports them asynchronously.
type fakeEngine struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	running bool
	stopped bool

	// Engine thread only.
	app      engine.App
	quit     bool
	browsers []*fakeBrowser
	cookies  fakeCookies

	initErr      error
	createFails  bool
	noAutoLoad   bool
	settings     engine.Settings
	lastSettings engine.BrowserSettings
	lastURL      string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{wake: make(chan struct{}, 1)}
}

func (e *fakeEngine) Initialize(settings engine.Settings, app engine.App) error {
	if e.initErr != nil {
		return e.initErr
	}
	e.settings = settings
	e.app = app
	e.mu.Lock()
	e.running = true
	e.tasks = append([]func(){app.OnContextInitialized}, e.tasks...)
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) RunMessageLoop() {
	for !e.quit {
		e.mu.Lock()
		batch := e.tasks
		e.tasks = nil
		e.mu.Unlock()

		if len(batch) == 0 {
			<-e.wake
			continue
		}
		for i, task := range batch {
			task()
			if e.quit {
				e.mu.Lock()
				e.tasks = append(batch[i+1:], e.tasks...)
				e.mu.Unlock()
				return
			}
		}
	}
}

func (e *fakeEngine) QuitMessageLoop() { e.quit = true }

func (e *fakeEngine) Shutdown() {
	e.mu.Lock()
	e.stopped = true
	e.running = false
	e.mu.Unlock()
}

func (e *fakeEngine) PostTask(task func()) bool {
	e.mu.Lock()
	if !e.running || e.stopped {
		e.mu.Unlock()
		return false
	}
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

func (e *fakeEngine) CreateBrowser(_ engine.WindowInfo, client engine.Client, url string, settings engine.BrowserSettings) bool {
	if e.createFails {
		return false
	}
	e.lastSettings = settings
	e.lastURL = url
	b := &fakeBrowser{eng: e, client: client, id: len(e.browsers) + 1}
	b.frame = &fakeFrame{browser: b, url: url, main: true}
	b.host = &fakeHost{browser: b}
	e.browsers = append(e.browsers, b)
	e.PostTask(func() {
		client.OnAfterCreated(b)
		if !e.noAutoLoad {
			b.load(url)
		}
	})
	return true
}

func (e *fakeEngine) CookieManager() engine.CookieManager { return &e.cookies }

type fakeBrowser struct {
	eng    *fakeEngine
	client engine.Client
	id     int
	frame  *fakeFrame
	host   *fakeHost

	history []string
	// moves records GoBack and GoForward calls.
	moves  []string
	closed bool
}

func (b *fakeBrowser) load(url string) {
	b.frame.url = url
	b.history = append(b.history, url)
	b.client.OnLoadStart(b, b.frame)
	b.client.OnLoadingProgressChange(b, 1)
	b.client.OnLoadEnd(b, b.frame, 200)
}

func (b *fakeBrowser) Identifier() int         { return b.id }
func (b *fakeBrowser) Host() engine.Host       { return b.host }
func (b *fakeBrowser) MainFrame() engine.Frame { return b.frame }
func (b *fakeBrowser) CanGoBack() bool         { return len(b.history) > 1 }
func (b *fakeBrowser) CanGoForward() bool      { return false }
func (b *fakeBrowser) GoBack()                 { b.moves = append(b.moves, "back") }
func (b *fakeBrowser) GoForward()              { b.moves = append(b.moves, "forward") }
func (b *fakeBrowser) Reload()                 { b.load(b.frame.url) }
func (b *fakeBrowser) IsLoading() bool         { return false }

type fakeHost struct {
	browser *fakeBrowser

	closeRequests int
	vetoes        int
	resized       int
	invalidated   []engine.PaintElementType
	clicks        []int
	keys          []engine.KeyEvent
	moves         []engine.MouseEvent
	wheels        [][2]int
	title         string
}

func (h *fakeHost) CloseBrowser(force bool) {
	h.closeRequests++
	b := h.browser
	b.eng.PostTask(func() {
		if b.closed {
			return
		}
		if !force && b.client.DoClose(b) {
			h.vetoes++
			return
		}
		b.closed = true
		b.client.OnBeforeClose(b)
	})
}

func (h *fakeHost) WasResized() { h.resized++ }

func (h *fakeHost) Invalidate(layer engine.PaintElementType) {
	h.invalidated = append(h.invalidated, layer)
}

func (h *fakeHost) SendMouseMoveEvent(ev engine.MouseEvent, _ bool) {
	h.moves = append(h.moves, ev)
}

func (h *fakeHost) SendMouseWheelEvent(_ engine.MouseEvent, dx, dy int) {
	h.wheels = append(h.wheels, [2]int{dx, dy})
}

func (h *fakeHost) SendMouseClickEvent(_ engine.MouseEvent, _ engine.MouseButton, _ bool, clickCount int) {
	h.clicks = append(h.clicks, clickCount)
}

func (h *fakeHost) SendKeyEvent(ev engine.KeyEvent) { h.keys = append(h.keys, ev) }

func (h *fakeHost) VisibleNavigationEntry() *engine.NavigationEntry {
	if h.title == "" {
		return nil
	}
	return &engine.NavigationEntry{URL: h.browser.frame.url, Title: h.title, HTTPStatus: 200}
}

type fakeFrame struct {
	browser *fakeBrowser
	url     string
	main    bool

	sent []*engine.ProcessMessage
}

func (f *fakeFrame) IsMain() bool                  { return f.main }
func (f *fakeFrame) URL() string                   { return f.url }
func (f *fakeFrame) LoadURL(url string)            { f.browser.load(url) }
func (f *fakeFrame) LoadRequest(r *engine.Request) { f.browser.load(r.URL) }

func (f *fakeFrame) SendProcessMessage(_ engine.ProcessID, msg *engine.ProcessMessage) {
	f.sent = append(f.sent, msg)
}

type fakeCookies struct {
	set      []engine.Cookie
	failSet  bool
	rejectOp bool
}

func (c *fakeCookies) SetCookie(_ string, ck engine.Cookie, done func(bool)) bool {
	if c.rejectOp {
		return false
	}
	if !c.failSet {
		c.set = append(c.set, ck)
	}
	done(!c.failSet)
	return true
}

func (c *fakeCookies) DeleteCookies(_, _ string, done func(int)) bool {
	if c.rejectOp {
		return false
	}
	n := len(c.set)
	c.set = nil
	done(n)
	return true
}

// recorder is a Listener that keeps every event. It is only touched on the
// host thread, which in tests is the test goroutine.
type recorder struct {
	events  []string
	errors  []WebResourceError
	scripts []ScriptResult
}

func (r *recorder) OnPageStarted(_ InstanceID, url string) {
	r.events = append(r.events, "started "+url)
}

func (r *recorder) OnPageFinished(_ InstanceID, url string) {
	r.events = append(r.events, "finished "+url)
}

func (r *recorder) OnProgress(InstanceID, int) {}

func (r *recorder) OnWebResourceError(_ InstanceID, e WebResourceError) {
	r.errors = append(r.errors, e)
}

func (r *recorder) OnScriptResult(_ InstanceID, s ScriptResult) {
	r.scripts = append(r.scripts, s)
}

// pump drains host until cond holds.
func pump(t *testing.T, host *HostLoop, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		host.Drain()
		if cond() {
			return
		}
		select {
		case <-host.Ready():
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("timed out waiting on the host loop")
		}
	}
}

// await calls an asynchronous method and pumps the host loop until its
// callback has run.
func await[T any](t *testing.T, host *HostLoop, call func(Callback[T]) error) Result[T] {
	t.Helper()
	var got *Result[T]
	if err := call(func(r Result[T]) { got = &r }); err != nil {
		t.Fatalf("call failed: %v", err)
	}
	pump(t, host, func() bool { return got != nil })
	return *got
}

// runOnEngine runs fn on the engine thread and waits for it.
func runOnEngine(t *testing.T, c *Controller, host *HostLoop, fn func()) {
	t.Helper()
	await(t, host, func(cb Callback[struct{}]) error {
		reply := NewReply(host, cb)
		return c.post(func() {
			fn()
			reply.Resolve(struct{}{})
		})
	})
}

func startController(t *testing.T, eng *fakeEngine, opts ...Option) (*Controller, *HostLoop) {
	t.Helper()
	host := NewHostLoop()
	c := NewController(eng, host, opts...)
	res := await(t, host, func(cb Callback[struct{}]) error { return c.StartEngine(nil, cb) })
	if res.Err != nil {
		t.Fatalf("StartEngine: %v", res.Err)
	}
	t.Cleanup(func() {
		if c.State() < EngineShutdown {
			_ = c.ShutdownEngine()
		}
	})
	return c, host
}

func createInstance(t *testing.T, c *Controller, host *HostLoop, id InstanceID, params CreationParams) {
	t.Helper()
	if params.Width == 0 {
		params.Width, params.Height = 200, 200
	}
	res := await(t, host, func(cb Callback[struct{}]) error { return c.CreateInstance(id, params, cb) })
	if res.Err != nil {
		t.Fatalf("CreateInstance(%d): %v", id, res.Err)
	}
}
