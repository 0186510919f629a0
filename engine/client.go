package engine

// Client is the capability set of callbacks an engine delivers for one
// browser. All methods run on the engine thread, in the order the engine
// emits them.
type Client interface {
	// OnBeforePopup is called before a popup window would be created.
	// Returning true blocks the popup.
	OnBeforePopup(browser Browser, frame Frame, targetURL string) bool

	// OnAfterCreated is called once the native browser exists.
	OnAfterCreated(browser Browser)

	// DoClose is called when a close was requested by any means. Returning
	// true vetoes the close.
	DoClose(browser Browser) bool

	// OnBeforeClose is the last callback for the browser.
	OnBeforeClose(browser Browser)

	OnLoadStart(browser Browser, frame Frame)
	OnLoadEnd(browser Browser, frame Frame, httpStatusCode int)
	OnLoadError(browser Browser, frame Frame, code ErrorCode, errorText, failedURL string)

	// OnLoadingProgressChange reports progress in the range [0, 1].
	OnLoadingProgressChange(browser Browser, progress float64)

	// GetViewRect returns the view size the engine should render at.
	GetViewRect(browser Browser) Rect

	// OnPaint delivers a BGRA frame for layer. dirty lists the changed
	// rectangles in buffer coordinates.
	OnPaint(browser Browser, layer PaintElementType, dirty []Rect, buffer []byte, width, height int)

	OnPopupShow(browser Browser, show bool)
	OnPopupSize(browser Browser, rect Rect)

	// OnProcessMessageReceived returns true if the message was handled.
	OnProcessMessageReceived(browser Browser, frame Frame, source ProcessID, msg *ProcessMessage) bool
}

// ContentClient handles messages on the content side of a browser.
type ContentClient interface {
	OnProcessMessageReceived(frame ContentFrame, source ProcessID, msg *ProcessMessage) bool
}

// ContentFrame is the content-side view of a frame.
type ContentFrame interface {
	IsMain() bool

	// ScriptContext returns the frame's script context, or false when no
	// document is loaded.
	ScriptContext() (ScriptContext, bool)

	SendProcessMessage(target ProcessID, msg *ProcessMessage)
}

// ScriptContext evaluates script source in a document's global scope.
type ScriptContext interface {
	// Eval runs code and converts the completion value to a Go value.
	// A thrown exception is returned as a *ScriptError.
	Eval(code string) (any, error)
}

// ScriptError is an exception thrown by evaluated code.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string { return e.Message }
