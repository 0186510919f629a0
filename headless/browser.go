package headless

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/gogpu/gg"

	"github.com/gogpu/webview/engine"
)

// Key codes understood by the input line.
const (
	keyBackspace = 8
	keyEnter     = 13
)

// Progress values reported while a navigation is in flight.
const (
	progressStarted = 0.1
	progressDone    = 1.0
)

type navKind int

const (
	navNew navKind = iota
	navHistory
	navReload
)

// navigation is one requested load.
type navigation struct {
	req  *engine.Request
	kind navKind
	// target is the history index for navHistory.
	target int
}

// contextMenu is the popup shown on a right click.
type contextMenu struct {
	rect  engine.Rect
	items []menuItem
	hover int
}

// browser is one off-screen page. Every method runs on the engine thread
// unless noted.
type browser struct {
	id       int
	eng      *Engine
	client   engine.Client
	settings engine.BrowserSettings
	painter  *painter
	renderer *renderer
	logger   *slog.Logger

	history []engine.NavigationEntry
	index   int

	// seq identifies the current navigation; results of older ones are
	// dropped.
	seq      int
	cancel   context.CancelFunc
	loading  bool
	progress float64
	doc      *document
	frameURL string

	scroll int
	input  string
	layout pageLayout
	menu   *contextMenu

	dc            *gg.Context
	width, height int
	buf           []byte
	menuBuf       []byte

	paintQueued bool
	lastPaint   time.Time
	full        bool
	dirty       []engine.Rect
	popupDirty  bool

	closed bool
}

var _ engine.Browser = (*browser)(nil)

func newBrowser(e *Engine, id int, client engine.Client, settings engine.BrowserSettings) *browser {
	b := &browser{
		id:       id,
		eng:      e,
		client:   client,
		settings: settings,
		painter:  e.painter,
		logger:   e.logger().With("browser", id),
		index:    -1,
		doc:      &document{url: "about:blank"},
		frameURL: "about:blank",
		full:     true,
	}
	b.renderer = newRenderer(e.runner, windowBridge{b}, b.receive, b.logger, e.contextOptions()...)
	return b
}

func (b *browser) Identifier() int         { return b.id }
func (b *browser) Host() engine.Host       { return browserHost{b} }
func (b *browser) MainFrame() engine.Frame { return mainFrame{b} }
func (b *browser) CanGoBack() bool         { return b.index > 0 }
func (b *browser) CanGoForward() bool      { return b.index >= 0 && b.index < len(b.history)-1 }
func (b *browser) IsLoading() bool         { return b.loading }

func (b *browser) GoBack() {
	if b.CanGoBack() {
		b.goTo(b.index - 1)
	}
}

func (b *browser) GoForward() {
	if b.CanGoForward() {
		b.goTo(b.index + 1)
	}
}

func (b *browser) goTo(i int) {
	b.navigate(navigation{req: &engine.Request{URL: b.history[i].URL}, kind: navHistory, target: i})
}

func (b *browser) Reload() {
	if b.index < 0 {
		return
	}
	b.navigate(navigation{req: &engine.Request{URL: b.history[b.index].URL}, kind: navReload})
}

// navigate starts loading nav.req in the background. A newer navigation
// supersedes an unfinished one.
func (b *browser) navigate(nav navigation) {
	if b.closed {
		return
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.seq++
	seq := b.seq
	ctx, cancel := context.WithTimeout(context.Background(), DefaultFetchTimeout)
	b.cancel = cancel
	b.loading = true
	b.setProgress(progressStarted)

	ld := b.eng.loader
	go func() {
		doc, err := ld.load(ctx, nav.req)
		if !b.eng.PostTask(func() { b.finish(seq, nav, doc, err) }) {
			cancel()
		}
	}()
}

func (b *browser) setProgress(p float64) {
	b.progress = p
	b.client.OnLoadingProgressChange(b, p)
	b.invalidate(nil)
}

// finish commits a completed load or reports its failure.
func (b *browser) finish(seq int, nav navigation, doc *document, err error) {
	if b.closed || seq != b.seq {
		return
	}
	b.cancel()
	b.cancel = nil
	b.loading = false

	frame := mainFrame{b}
	if err != nil {
		code, text := engine.ErrFailed, errorText(engine.ErrFailed)
		var le *loadError
		if errors.As(err, &le) {
			code, text = le.code, errorText(le.code)
		}
		b.logger.Info("headless: load failed", "url", nav.req.URL, "err", err)
		b.show(errorDocument(nav.req.URL, text))
		b.client.OnLoadError(b, frame, code, text, nav.req.URL)
		b.setProgress(progressDone)
		return
	}

	if doc.truncated {
		b.logger.Warn("headless: response body truncated", "url", doc.url, "limit", maxBodySize)
	}
	b.show(doc)
	entry := engine.NavigationEntry{URL: doc.url, Title: doc.title, HTTPStatus: doc.status}
	if entry.Title == "" {
		entry.Title = doc.url
	}
	switch nav.kind {
	case navNew:
		b.history = append(b.history[:b.index+1], entry)
		b.index = len(b.history) - 1
	case navHistory:
		b.index = nav.target
		b.history[b.index] = entry
	case navReload:
		b.history[b.index] = entry
	}

	b.client.OnLoadStart(b, frame)
	b.renderer.commit(doc.url, doc.title, doc.scripts)
	b.setProgress(progressDone)
	b.client.OnLoadEnd(b, frame, doc.status)
}

// show makes doc the displayed document.
func (b *browser) show(doc *document) {
	b.doc = doc
	b.frameURL = doc.url
	b.scroll = 0
	b.hideMenu()
	b.invalidate(nil)
}

func errorDocument(failedURL, text string) *document {
	return &document{
		url:   failedURL,
		title: "This page isn't available",
		blocks: []block{
			{kind: blockHeading, text: "This page isn't available"},
			{kind: blockText, text: failedURL},
			{kind: blockPre, text: text},
		},
	}
}

// receive delivers a content message on the engine thread. It is called
// from the renderer goroutine.
func (b *browser) receive(msg *engine.ProcessMessage) {
	b.eng.PostTask(func() {
		if b.closed {
			return
		}
		if !b.client.OnProcessMessageReceived(b, mainFrame{b}, engine.ProcessRenderer, msg) {
			b.logger.Debug("headless: unhandled browser message", "name", msg.Name)
		}
	})
}

func (b *browser) openWindow(target string) {
	if b.closed {
		return
	}
	if base, err := url.Parse(b.frameURL); err == nil {
		if ref, err := url.Parse(target); err == nil {
			target = base.ResolveReference(ref).String()
		}
	}
	if !b.client.OnBeforePopup(b, mainFrame{b}, target) {
		b.logger.Warn("headless: popup windows are not supported", "url", target)
	}
}

// close tears the browser down unless the client vetoes it.
func (b *browser) close(force bool) {
	if b.closed {
		return
	}
	if !force && b.client.DoClose(b) {
		return
	}
	b.closed = true
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.renderer.stop()
	if b.dc != nil {
		_ = b.dc.Close()
		b.dc = nil
	}
	b.eng.removeBrowser(b)
	b.client.OnBeforeClose(b)
}

// invalidate marks r for repaint; nil marks the whole view.
func (b *browser) invalidate(r *engine.Rect) {
	if r == nil {
		b.full = true
	} else {
		b.dirty = append(b.dirty, *r)
	}
	b.schedulePaint()
}

func (b *browser) frameInterval() time.Duration {
	rate := b.settings.FrameRate
	if rate <= 0 {
		rate = 60
	}
	return time.Second / time.Duration(rate)
}

// schedulePaint coalesces paints to the browser's frame rate.
func (b *browser) schedulePaint() {
	if b.paintQueued || b.closed {
		return
	}
	b.paintQueued = true
	delay := b.frameInterval() - time.Since(b.lastPaint)
	if delay <= 0 {
		b.eng.PostTask(b.paint)
		return
	}
	time.AfterFunc(delay, func() { b.eng.PostTask(b.paint) })
}

func (b *browser) paint() {
	b.paintQueued = false
	if b.closed {
		return
	}
	b.lastPaint = time.Now()

	view := b.client.GetViewRect(b)
	if view.Width <= 0 || view.Height <= 0 {
		return
	}
	if b.dc == nil || view.Width != b.width || view.Height != b.height {
		if b.dc != nil {
			_ = b.dc.Close()
		}
		b.dc = gg.NewContext(view.Width, view.Height)
		b.width, b.height = view.Width, view.Height
		b.full = true
		b.popupDirty = true
	}

	if b.full || len(b.dirty) > 0 {
		b.layout = b.painter.paintPage(b.dc, b.pageView())
		b.clampScroll()
		dirty := b.clipDirty()
		b.full, b.dirty = false, nil
		b.buf = frameBGRA(b.dc.Image(), b.buf)
		b.client.OnPaint(b, engine.PaintView, dirty, b.buf, b.width, b.height)
		if b.closed {
			return
		}
	}

	if b.menu != nil && b.popupDirty {
		b.popupDirty = false
		b.paintMenu()
	}
}

func (b *browser) pageView() *pageView {
	return &pageView{
		width:      b.width,
		height:     b.height,
		background: b.settings.BackgroundColor,
		url:        b.frameURL,
		title:      b.doc.title,
		blocks:     b.doc.blocks,
		scroll:     b.scroll,
		input:      b.input,
		progress:   b.progress,
	}
}

func (b *browser) clipDirty() []engine.Rect {
	full := engine.Rect{Width: b.width, Height: b.height}
	if b.full {
		return []engine.Rect{full}
	}
	out := make([]engine.Rect, 0, len(b.dirty))
	for _, r := range b.dirty {
		if r = intersect(r, full); !r.IsEmpty() {
			out = append(out, r)
		}
	}
	return out
}

func intersect(a, b engine.Rect) engine.Rect {
	x0, y0 := max(a.X, b.X), max(a.Y, b.Y)
	x1, y1 := min(a.X+a.Width, b.X+b.Width), min(a.Y+a.Height, b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return engine.Rect{}
	}
	return engine.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

func (b *browser) maxScroll() int {
	vp := b.painter.viewport(b.width, b.height)
	return max(0, b.layout.contentHeight-vp.Height+2*pageMargin)
}

func (b *browser) clampScroll() {
	b.scroll = min(max(b.scroll, 0), b.maxScroll())
}

func (b *browser) paintMenu() {
	m := b.menu
	dc := gg.NewContext(m.rect.Width, m.rect.Height)
	defer dc.Close()
	b.painter.paintMenu(dc, m.items, m.hover)
	b.menuBuf = frameBGRA(dc.Image(), b.menuBuf)
	full := []engine.Rect{{Width: m.rect.Width, Height: m.rect.Height}}
	b.client.OnPaint(b, engine.PaintPopup, full, b.menuBuf, m.rect.Width, m.rect.Height)
}

// showMenu opens the context menu with its corner at (x, y), pulled back
// inside the view.
func (b *browser) showMenu(x, y int) {
	items := []menuItem{
		{label: "Back", action: menuBack, enabled: b.CanGoBack()},
		{label: "Forward", action: menuForward, enabled: b.CanGoForward()},
		{label: "Reload", action: menuReload, enabled: b.index >= 0},
	}
	w, h := b.painter.menuSize(len(items))
	r := engine.Rect{X: x, Y: y, Width: w, Height: h}
	r.X = max(0, min(r.X, b.width-w))
	r.Y = max(0, min(r.Y, b.height-h))

	b.menu = &contextMenu{rect: r, items: items, hover: -1}
	b.client.OnPopupShow(b, true)
	b.client.OnPopupSize(b, r)
	b.popupDirty = true
	b.schedulePaint()
}

func (b *browser) hideMenu() {
	if b.menu == nil {
		return
	}
	b.menu = nil
	b.popupDirty = false
	b.client.OnPopupShow(b, false)
	b.invalidate(nil)
}

func (b *browser) menuItemAt(x, y int) int {
	m := b.menu
	return b.painter.menuItemAt(x-m.rect.X, y-m.rect.Y, len(m.items))
}

func (b *browser) runMenu(a menuAction) {
	switch a {
	case menuBack:
		b.GoBack()
	case menuForward:
		b.GoForward()
	case menuReload:
		b.Reload()
	}
}

func (b *browser) mouseMove(x, y int, leave bool) {
	if b.menu == nil {
		return
	}
	hover := -1
	if !leave {
		hover = b.menuItemAt(x, y)
	}
	if hover != b.menu.hover {
		b.menu.hover = hover
		b.popupDirty = true
		b.schedulePaint()
	}
}

func (b *browser) mouseWheel(deltaY int) {
	next := min(max(b.scroll-deltaY, 0), b.maxScroll())
	if next != b.scroll {
		b.scroll = next
		b.hideMenu()
		b.invalidate(nil)
	}
}

func (b *browser) mouseClick(x, y int, button engine.MouseButton, up bool) {
	if !up {
		return
	}
	if b.menu != nil {
		i := b.menuItemAt(x, y)
		var item menuItem
		if i >= 0 {
			item = b.menu.items[i]
		}
		b.hideMenu()
		if i >= 0 && item.enabled {
			b.runMenu(item.action)
		}
		return
	}
	switch button {
	case engine.MouseRight:
		b.showMenu(x, y)
	case engine.MouseLeft:
		for _, l := range b.layout.links {
			if l.contains(x, y) {
				b.navigate(navigation{req: &engine.Request{URL: l.href}})
				return
			}
		}
	}
}

func (b *browser) key(ev engine.KeyEvent) {
	if ev.Type != engine.KeyChar {
		return
	}
	switch ev.Character {
	case keyBackspace:
		if b.input == "" {
			return
		}
		_, n := utf8.DecodeLastRuneInString(b.input)
		b.input = b.input[:len(b.input)-n]
	case keyEnter:
		target := b.input
		b.input = ""
		if u, err := url.Parse(target); err == nil && u.Scheme != "" {
			b.navigate(navigation{req: &engine.Request{URL: target}})
		}
	default:
		if ev.Character < 0x20 || ev.Character == 0x7f {
			return
		}
		b.input += string(rune(ev.Character))
	}
	r := b.painter.inputRect(b.width, b.height)
	b.invalidate(&r)
}

// browserHost implements engine.Host.
type browserHost struct{ b *browser }

// CloseBrowser closes asynchronously, like a window manager close request.
func (h browserHost) CloseBrowser(force bool) {
	b := h.b
	if !b.eng.PostTask(func() { b.close(force) }) {
		b.logger.Warn("headless: close request dropped, engine is not running")
	}
}

func (h browserHost) WasResized() {
	h.b.hideMenu()
	h.b.invalidate(nil)
}

func (h browserHost) Invalidate(layer engine.PaintElementType) {
	b := h.b
	switch layer {
	case engine.PaintView:
		b.invalidate(nil)
	case engine.PaintPopup:
		if b.menu != nil {
			b.popupDirty = true
			b.schedulePaint()
		}
	}
}

func (h browserHost) SendMouseMoveEvent(ev engine.MouseEvent, mouseLeave bool) {
	h.b.mouseMove(ev.X, ev.Y, mouseLeave)
}

func (h browserHost) SendMouseWheelEvent(_ engine.MouseEvent, _, deltaY int) {
	h.b.mouseWheel(deltaY)
}

func (h browserHost) SendMouseClickEvent(ev engine.MouseEvent, button engine.MouseButton, mouseUp bool, _ int) {
	h.b.mouseClick(ev.X, ev.Y, button, mouseUp)
}

func (h browserHost) SendKeyEvent(ev engine.KeyEvent) {
	h.b.key(ev)
}

func (h browserHost) VisibleNavigationEntry() *engine.NavigationEntry {
	b := h.b
	if b.index < 0 {
		return nil
	}
	e := b.history[b.index]
	return &e
}

// mainFrame implements engine.Frame for a browser's only frame.
type mainFrame struct{ b *browser }

func (mainFrame) IsMain() bool  { return true }
func (f mainFrame) URL() string { return f.b.frameURL }
func (f mainFrame) LoadURL(u string) {
	f.b.navigate(navigation{req: &engine.Request{URL: u}})
}

func (f mainFrame) LoadRequest(req *engine.Request) {
	r := *req
	f.b.navigate(navigation{req: &r})
}

func (f mainFrame) SendProcessMessage(target engine.ProcessID, msg *engine.ProcessMessage) {
	if target != engine.ProcessRenderer {
		f.b.logger.Warn("headless: main frame can only message the renderer", "target", target)
		return
	}
	f.b.renderer.deliver(engine.ProcessBrowser, msg)
}

// windowBridge forwards page window calls from the renderer goroutine to
// the engine thread.
type windowBridge struct{ b *browser }

func (w windowBridge) OpenWindow(target string) {
	w.b.eng.PostTask(func() { w.b.openWindow(target) })
}

func (w windowBridge) CloseWindow() {
	w.b.eng.PostTask(func() { browserHost{w.b}.CloseBrowser(false) })
}
