package engine

// Engine is an off-screen browser engine bound to one dedicated thread.
//
// The goroutine that calls Initialize becomes the engine thread; it must stay
// locked to its OS thread until Shutdown returns.
type Engine interface {
	// Initialize prepares the engine. app.OnContextInitialized is delivered
	// from inside RunMessageLoop before any other posted task.
	Initialize(settings Settings, app App) error

	// RunMessageLoop processes tasks until QuitMessageLoop is called.
	RunMessageLoop()

	// QuitMessageLoop makes RunMessageLoop return after the current task.
	QuitMessageLoop()

	// Shutdown releases engine resources. No task runs afterwards.
	Shutdown()

	// PostTask queues task for the engine thread. It may be called from any
	// goroutine and reports false when the engine cannot accept work, for
	// example before Initialize or after Shutdown.
	PostTask(task func()) bool

	// CreateBrowser starts asynchronous creation of a browser. The client
	// receives OnAfterCreated once the browser exists. It reports false when
	// the request is rejected outright.
	CreateBrowser(info WindowInfo, client Client, url string, settings BrowserSettings) bool

	// CookieManager returns the engine-wide cookie store.
	CookieManager() CookieManager
}

// App receives engine-wide notifications.
type App interface {
	OnContextInitialized()
}

// Browser is a handle to one native browser. Handles are only usable on the
// engine thread and only until the client has seen OnBeforeClose.
type Browser interface {
	Identifier() int
	Host() Host
	MainFrame() Frame
	CanGoBack() bool
	CanGoForward() bool
	GoBack()
	GoForward()
	Reload()
	IsLoading() bool
}

// Host controls the hosting side of a browser: input, sizing and closing.
type Host interface {
	// CloseBrowser requests a close. Unless force is set the client may veto
	// it from DoClose.
	CloseBrowser(force bool)

	// WasResized tells the browser to query GetViewRect again.
	WasResized()

	// Invalidate schedules a repaint of the given layer.
	Invalidate(layer PaintElementType)

	SendMouseMoveEvent(ev MouseEvent, mouseLeave bool)
	SendMouseWheelEvent(ev MouseEvent, deltaX, deltaY int)
	SendMouseClickEvent(ev MouseEvent, button MouseButton, mouseUp bool, clickCount int)
	SendKeyEvent(ev KeyEvent)

	// VisibleNavigationEntry returns the committed entry on screen, or nil.
	VisibleNavigationEntry() *NavigationEntry
}

// Frame is a document frame on the browser side.
type Frame interface {
	IsMain() bool
	URL() string
	LoadURL(url string)
	LoadRequest(req *Request)
	SendProcessMessage(target ProcessID, msg *ProcessMessage)
}

// CookieManager stores cookies for every browser of an engine.
type CookieManager interface {
	// SetCookie stores c for url. done runs on the engine thread with the
	// outcome. It reports false if the request was rejected synchronously,
	// in which case done is never called.
	SetCookie(url string, c Cookie, done func(success bool)) bool

	// DeleteCookies removes cookies matching url and name; empty values match
	// everything. done runs on the engine thread with the number removed.
	DeleteCookies(url, name string, done func(numDeleted int)) bool
}
