package webview

import (
	"errors"
	"image/color"
	"slices"
	"testing"

	"github.com/gogpu/webview/engine"
)

// settle lets tasks queued by earlier engine tasks run.
func settle(t *testing.T, c *Controller, host *HostLoop) {
	t.Helper()
	runOnEngine(t, c, host, func() {})
	runOnEngine(t, c, host, func() {})
}

func TestStartEngineTwice(t *testing.T) {
	c, _ := startController(t, newFakeEngine())
	if c.State() != EngineInitialized {
		t.Fatalf("State() = %v, want Initialized", c.State())
	}
	err := c.StartEngine(nil, nil)
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second StartEngine = %v, want AlreadyStarted", err)
	}
}

func TestStartEnginePassesSettings(t *testing.T) {
	eng := newFakeEngine()
	host := NewHostLoop()
	c := NewController(eng, host, WithUserAgent("test-agent/1.0"))
	res := await(t, host, func(cb Callback[struct{}]) error {
		return c.StartEngine([]string{"--flag"}, cb)
	})
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	defer c.ShutdownEngine()

	if !eng.settings.WindowlessRendering {
		t.Error("windowless rendering not requested")
	}
	if eng.settings.UserAgent != "test-agent/1.0" {
		t.Errorf("UserAgent = %q", eng.settings.UserAgent)
	}
	if !slices.Equal(eng.settings.Args, []string{"--flag"}) {
		t.Errorf("Args = %v", eng.settings.Args)
	}
}

func TestStartEngineInitFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.initErr = errors.New("no sandbox")
	host := NewHostLoop()
	c := NewController(eng, host)

	res := await(t, host, func(cb Callback[struct{}]) error { return c.StartEngine(nil, cb) })
	if !errors.Is(res.Err, ErrRuntime) {
		t.Fatalf("start result = %v, want RuntimeError", res.Err)
	}
	pump(t, host, func() bool { return c.State() == EngineShutdown })
}

func TestShutdownBeforeStart(t *testing.T) {
	c := NewController(newFakeEngine(), NewHostLoop())
	if err := c.ShutdownEngine(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("ShutdownEngine = %v, want NotStarted", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	c, _ := startController(t, newFakeEngine())
	if err := c.ShutdownEngine(); err != nil {
		t.Fatalf("first ShutdownEngine: %v", err)
	}
	if c.State() != EngineShutdown {
		t.Errorf("State() = %v, want Shutdown", c.State())
	}
	if err := c.ShutdownEngine(); err != nil {
		t.Errorf("second ShutdownEngine = %v, want nil", err)
	}
}

func TestShutdownClosesAllInstances(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{})
	createInstance(t, c, host, 2, CreationParams{})

	if err := c.ShutdownEngine(); err != nil {
		t.Fatalf("ShutdownEngine: %v", err)
	}
	for _, b := range eng.browsers {
		if !b.closed {
			t.Errorf("browser %d still open after shutdown", b.id)
		}
	}
	if c.State() != EngineShutdown {
		t.Errorf("State() = %v, want Shutdown", c.State())
	}

	err := c.CurrentURL(1, nil)
	if !errors.Is(err, ErrPostFailed) {
		t.Errorf("CurrentURL after shutdown = %v, want PostFailed", err)
	}
}

func TestCreateInstanceReady(t *testing.T) {
	eng := newFakeEngine()
	rec := &recorder{}
	c, host := startController(t, eng, WithListener(rec), WithFrameRate(30))
	createInstance(t, c, host, 1, CreationParams{Width: 320, Height: 240})

	pump(t, host, func() bool { return len(rec.events) >= 2 })
	want := []string{"started about:blank", "finished about:blank"}
	if !slices.Equal(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
	if eng.lastURL != DefaultURL {
		t.Errorf("url = %q, want %q", eng.lastURL, DefaultURL)
	}
	if eng.lastSettings.FrameRate != 30 {
		t.Errorf("FrameRate = %d, want 30", eng.lastSettings.FrameRate)
	}
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	if eng.lastSettings.BackgroundColor != white {
		t.Errorf("BackgroundColor = %v, want white", eng.lastSettings.BackgroundColor)
	}
}

func TestCreateInstanceBackgroundColor(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{BackgroundColor: []byte{0x80, 0x10, 0x20, 0x30}})

	want := color.NRGBA{A: 0x80, R: 0x10, G: 0x20, B: 0x30}
	if eng.lastSettings.BackgroundColor != want {
		t.Errorf("BackgroundColor = %v, want %v", eng.lastSettings.BackgroundColor, want)
	}
}

func TestCreateInstanceErrors(t *testing.T) {
	tests := []struct {
		name   string
		params CreationParams
		want   error
	}{
		{"zero width", CreationParams{Width: 0, Height: 10}, ErrBadArguments},
		{"negative height", CreationParams{Width: 10, Height: -1}, ErrBadArguments},
		{"short color", CreationParams{Width: 10, Height: 10, BackgroundColor: []byte{1, 2, 3}}, ErrBadArguments},
	}

	c, host := startController(t, newFakeEngine())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := await(t, host, func(cb Callback[struct{}]) error {
				return c.CreateInstance(7, tt.params, cb)
			})
			if !errors.Is(res.Err, tt.want) {
				t.Errorf("err = %v, want %v", res.Err, tt.want)
			}
		})
	}
}

func TestCreateInstanceDuplicateID(t *testing.T) {
	c, host := startController(t, newFakeEngine())
	createInstance(t, c, host, 1, CreationParams{})

	res := await(t, host, func(cb Callback[struct{}]) error {
		return c.CreateInstance(1, CreationParams{Width: 10, Height: 10}, cb)
	})
	if !errors.Is(res.Err, ErrAlreadyExists) {
		t.Errorf("err = %v, want AlreadyExists", res.Err)
	}
}

func TestCreateBrowserRejected(t *testing.T) {
	eng := newFakeEngine()
	eng.createFails = true
	c, host := startController(t, eng)

	res := await(t, host, func(cb Callback[struct{}]) error {
		return c.CreateInstance(1, CreationParams{Width: 10, Height: 10}, cb)
	})
	if !errors.Is(res.Err, ErrRuntime) {
		t.Errorf("err = %v, want RuntimeError", res.Err)
	}
}

func TestUnknownInstance(t *testing.T) {
	c, host := startController(t, newFakeEngine())

	res := await(t, host, func(cb Callback[string]) error { return c.CurrentURL(42, cb) })
	if !errors.Is(res.Err, ErrInvalidInstanceID) {
		t.Fatalf("err = %v, want InvalidInstanceID", res.Err)
	}
	if got := MessageOf(res.Err); got != "The browser specified by the webview id is not found." {
		t.Errorf("message = %q", got)
	}

	closeRes := await(t, host, func(cb Callback[struct{}]) error { return c.CloseInstance(42, cb) })
	if !errors.Is(closeRes.Err, ErrInvalidInstanceID) {
		t.Errorf("CloseInstance err = %v, want InvalidInstanceID", closeRes.Err)
	}
}

func TestClickCountClamped(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{})

	for _, n := range []int{0, 2, 7, -3} {
		res := await(t, host, func(cb Callback[struct{}]) error {
			return c.SendMouseClick(1, 10, 10, 0, engine.MouseLeft, false, n, cb)
		})
		if res.Err != nil {
			t.Fatalf("SendMouseClick(%d): %v", n, res.Err)
		}
	}
	want := []int{1, 2, 3, 1}
	if got := eng.browsers[0].host.clicks; !slices.Equal(got, want) {
		t.Errorf("click counts = %v, want %v", got, want)
	}
}

func TestInvalidInput(t *testing.T) {
	c, host := startController(t, newFakeEngine())
	createInstance(t, c, host, 1, CreationParams{})

	res := await(t, host, func(cb Callback[struct{}]) error {
		return c.SendMouseClick(1, 0, 0, 0, engine.MouseButton(9), false, 1, cb)
	})
	if !errors.Is(res.Err, ErrBadArguments) {
		t.Errorf("bad button err = %v, want BadArguments", res.Err)
	}

	res = await(t, host, func(cb Callback[struct{}]) error {
		return c.SendKey(1, KeyEvent{Type: engine.KeyEventType(99)}, cb)
	})
	if !errors.Is(res.Err, ErrBadArguments) {
		t.Errorf("bad key type err = %v, want BadArguments", res.Err)
	}
}

func TestInputForwarded(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{})

	if r := await(t, host, func(cb Callback[struct{}]) error {
		return c.SendMouseMove(1, 5, 6, engine.ModShiftDown, false, cb)
	}); r.Err != nil {
		t.Fatal(r.Err)
	}
	if r := await(t, host, func(cb Callback[struct{}]) error {
		return c.SendMouseWheel(1, 5, 6, 0, 0, -120, cb)
	}); r.Err != nil {
		t.Fatal(r.Err)
	}
	if r := await(t, host, func(cb Callback[struct{}]) error {
		return c.SendKey(1, KeyEvent{Type: engine.KeyChar, Character: 'a'}, cb)
	}); r.Err != nil {
		t.Fatal(r.Err)
	}

	h := eng.browsers[0].host
	if len(h.moves) != 1 || h.moves[0].X != 5 || h.moves[0].Modifiers != engine.ModShiftDown {
		t.Errorf("moves = %+v", h.moves)
	}
	if len(h.wheels) != 1 || h.wheels[0] != [2]int{0, -120} {
		t.Errorf("wheels = %v", h.wheels)
	}
	if len(h.keys) != 1 || h.keys[0].Character != 'a' {
		t.Errorf("keys = %+v", h.keys)
	}
}

func TestResize(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{})

	res := await(t, host, func(cb Callback[struct{}]) error { return c.Resize(1, 0, 100, cb) })
	if !errors.Is(res.Err, ErrBadArguments) {
		t.Errorf("Resize(0, 100) = %v, want BadArguments", res.Err)
	}

	res = await(t, host, func(cb Callback[struct{}]) error { return c.Resize(1, 640, 480, cb) })
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	var rect engine.Rect
	runOnEngine(t, c, host, func() {
		b := eng.browsers[0]
		rect = b.client.GetViewRect(b)
	})
	if rect != (engine.Rect{Width: 640, Height: 480}) {
		t.Errorf("view rect = %+v", rect)
	}
	if eng.browsers[0].host.resized != 1 {
		t.Errorf("WasResized calls = %d, want 1", eng.browsers[0].host.resized)
	}
}

func TestNavigationQueries(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{URL: "https://example.com/"})

	url := await(t, host, func(cb Callback[string]) error { return c.CurrentURL(1, cb) })
	if url.Value != "https://example.com/" {
		t.Errorf("CurrentURL = %q", url.Value)
	}
	back := await(t, host, func(cb Callback[bool]) error { return c.CanGoBack(1, cb) })
	if back.Value {
		t.Error("CanGoBack = true with a single entry")
	}

	if r := await(t, host, func(cb Callback[struct{}]) error {
		return c.LoadURL(1, "https://example.com/next", cb)
	}); r.Err != nil {
		t.Fatal(r.Err)
	}
	back = await(t, host, func(cb Callback[bool]) error { return c.CanGoBack(1, cb) })
	if !back.Value {
		t.Error("CanGoBack = false after a second load")
	}

	title := await(t, host, func(cb Callback[string]) error { return c.GetTitle(1, cb) })
	if !errors.Is(title.Err, ErrRuntime) {
		t.Errorf("GetTitle without entry = %v, want RuntimeError", title.Err)
	}
	runOnEngine(t, c, host, func() { eng.browsers[0].host.title = "Example" })
	title = await(t, host, func(cb Callback[string]) error { return c.GetTitle(1, cb) })
	if title.Value != "Example" {
		t.Errorf("GetTitle = %q, want Example", title.Value)
	}
}

func TestHistoryNavigation(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{URL: "https://example.com/"})

	ops := []struct {
		name string
		call func(InstanceID, Callback[struct{}]) error
	}{
		{"GoBack", c.GoBack},
		{"GoForward", c.GoForward},
		{"Reload", c.Reload},
	}
	for _, op := range ops {
		if r := await(t, host, func(cb Callback[struct{}]) error { return op.call(1, cb) }); r.Err != nil {
			t.Errorf("%s: %v", op.name, r.Err)
		}
		if r := await(t, host, func(cb Callback[struct{}]) error { return op.call(2, cb) }); !errors.Is(r.Err, ErrInvalidInstanceID) {
			t.Errorf("%s on unknown id = %v, want InvalidInstanceID", op.name, r.Err)
		}
	}

	b := eng.browsers[0]
	if want := []string{"back", "forward"}; !slices.Equal(b.moves, want) {
		t.Errorf("moves = %v, want %v", b.moves, want)
	}
	if want := []string{"https://example.com/", "https://example.com/"}; !slices.Equal(b.history, want) {
		t.Errorf("history after Reload = %v, want %v", b.history, want)
	}
}

func TestLoadRequest(t *testing.T) {
	rec := &recorder{}
	c, host := startController(t, newFakeEngine(), WithListener(rec))
	createInstance(t, c, host, 1, CreationParams{})

	req := Request{URL: "https://example.com/form", Method: "POST", PostData: []byte("a=1")}
	if r := await(t, host, func(cb Callback[struct{}]) error { return c.LoadRequest(1, req, cb) }); r.Err != nil {
		t.Fatal(r.Err)
	}
	pump(t, host, func() bool { return slices.Contains(rec.events, "finished https://example.com/form") })
}

func TestCloseVetoedUnlessRequested(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{})

	b := eng.browsers[0]
	runOnEngine(t, c, host, func() { b.host.CloseBrowser(false) })
	settle(t, c, host)
	if b.host.vetoes != 1 || b.closed {
		t.Fatalf("page-initiated close: vetoes=%d closed=%v", b.host.vetoes, b.closed)
	}

	res := await(t, host, func(cb Callback[struct{}]) error { return c.CloseInstance(1, cb) })
	if res.Err != nil {
		t.Fatalf("CloseInstance: %v", res.Err)
	}
	if !b.closed {
		t.Error("browser not closed after CloseInstance")
	}

	url := await(t, host, func(cb Callback[string]) error { return c.CurrentURL(1, cb) })
	if !errors.Is(url.Err, ErrInvalidInstanceID) {
		t.Errorf("CurrentURL after close = %v, want InvalidInstanceID", url.Err)
	}
}

func TestCloseBeforeReady(t *testing.T) {
	eng := newFakeEngine()
	eng.noAutoLoad = true
	c, host := startController(t, eng)

	var created *Result[struct{}]
	if err := c.CreateInstance(1, CreationParams{Width: 10, Height: 10}, func(r Result[struct{}]) {
		created = &r
	}); err != nil {
		t.Fatal(err)
	}
	settle(t, c, host)
	if created != nil {
		t.Fatalf("create completed before the first load: %+v", created)
	}

	res := await(t, host, func(cb Callback[struct{}]) error { return c.CloseInstance(1, cb) })
	if res.Err != nil {
		t.Fatalf("CloseInstance: %v", res.Err)
	}
	pump(t, host, func() bool { return created != nil })
	if !errors.Is(created.Err, ErrRuntime) {
		t.Errorf("create result = %v, want RuntimeError", created.Err)
	}
}

func TestLoadErrorReported(t *testing.T) {
	eng := newFakeEngine()
	eng.noAutoLoad = true
	rec := &recorder{}
	c, host := startController(t, eng, WithListener(rec))

	var created *Result[struct{}]
	_ = c.CreateInstance(1, CreationParams{Width: 10, Height: 10}, func(r Result[struct{}]) { created = &r })
	settle(t, c, host)

	runOnEngine(t, c, host, func() {
		b := eng.browsers[0]
		b.client.OnLoadError(b, b.frame, engine.ErrNameNotResolved, "net::ERR_NAME_NOT_RESOLVED", "http://nowhere.invalid/")
	})
	pump(t, host, func() bool { return created != nil && len(rec.errors) == 1 })
	if created.Err != nil {
		t.Errorf("create result = %v, want ready after a load error", created.Err)
	}
	want := WebResourceError{Code: -105, Description: "net::ERR_NAME_NOT_RESOLVED", FailingURL: "http://nowhere.invalid/"}
	if rec.errors[0] != want {
		t.Errorf("error event = %+v, want %+v", rec.errors[0], want)
	}
}

func TestPopupOpensInPlace(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)
	createInstance(t, c, host, 1, CreationParams{})

	var blocked bool
	runOnEngine(t, c, host, func() {
		b := eng.browsers[0]
		blocked = b.client.OnBeforePopup(b, b.frame, "https://example.com/popup")
	})
	if !blocked {
		t.Error("popup was not blocked")
	}
	url := await(t, host, func(cb Callback[string]) error { return c.CurrentURL(1, cb) })
	if url.Value != "https://example.com/popup" {
		t.Errorf("CurrentURL = %q, want the popup target", url.Value)
	}
}

func TestRunScriptRoundTrip(t *testing.T) {
	eng := newFakeEngine()
	rec := &recorder{}
	c, host := startController(t, eng, WithListener(rec))
	createInstance(t, c, host, 1, CreationParams{})

	if r := await(t, host, func(cb Callback[struct{}]) error { return c.RunScript(1, 5, "1+1", cb) }); r.Err != nil {
		t.Fatal(r.Err)
	}
	b := eng.browsers[0]
	if len(b.frame.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(b.frame.sent))
	}
	runID, script, err := engine.ReadRunScriptRequest(b.frame.sent[0])
	if err != nil || runID != 5 || script != "1+1" {
		t.Fatalf("request = (%d, %q, %v)", runID, script, err)
	}

	runOnEngine(t, c, host, func() {
		msg := engine.NewScriptResponse(engine.ScriptResponse{RunID: 5, Executed: true, Result: "2"})
		b.client.OnProcessMessageReceived(b, b.frame, engine.ProcessRenderer, msg)
	})
	pump(t, host, func() bool { return len(rec.scripts) == 1 })
	want := ScriptResult{RunID: 5, WasExecuted: true, Result: "2"}
	if rec.scripts[0] != want {
		t.Errorf("script result = %+v, want %+v", rec.scripts[0], want)
	}
}

func TestCookies(t *testing.T) {
	eng := newFakeEngine()
	c, host := startController(t, eng)

	ck := Cookie{Name: "session", Value: "abc", Domain: "example.com", Path: "/"}
	if r := await(t, host, func(cb Callback[struct{}]) error { return c.SetCookie(ck, cb) }); r.Err != nil {
		t.Fatalf("SetCookie: %v", r.Err)
	}

	cleared := await(t, host, func(cb Callback[bool]) error { return c.ClearCookies(cb) })
	if cleared.Err != nil || !cleared.Value {
		t.Errorf("ClearCookies = %+v, want true", cleared)
	}
	cleared = await(t, host, func(cb Callback[bool]) error { return c.ClearCookies(cb) })
	if cleared.Value {
		t.Error("ClearCookies on an empty store = true")
	}

	runOnEngine(t, c, host, func() { eng.cookies.failSet = true })
	if r := await(t, host, func(cb Callback[struct{}]) error { return c.SetCookie(ck, cb) }); r.Err != nil {
		t.Errorf("soft SetCookie failure = %v, want success", r.Err)
	}

	runOnEngine(t, c, host, func() { eng.cookies.rejectOp = true })
	if r := await(t, host, func(cb Callback[struct{}]) error { return c.SetCookie(ck, cb) }); !errors.Is(r.Err, ErrRuntime) {
		t.Errorf("rejected SetCookie = %v, want RuntimeError", r.Err)
	}
}

func TestClampClickCount(t *testing.T) {
	tests := []struct{ in, want int }{
		{-1, 1}, {0, 1}, {1, 1}, {2, 2}, {3, 3}, {4, 3}, {100, 3},
	}
	for _, tt := range tests {
		if got := ClampClickCount(tt.in); got != tt.want {
			t.Errorf("ClampClickCount(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEngineStateNeverGoesBack(t *testing.T) {
	c := NewController(newFakeEngine(), NewHostLoop())
	if !c.setState(EngineInitialized) {
		t.Fatal("forward transition refused")
	}
	if c.setState(EngineInitializing) {
		t.Error("backward transition accepted")
	}
	if c.State() != EngineInitialized {
		t.Errorf("State() = %v, want Initialized", c.State())
	}
}
