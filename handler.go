package webview

import (
	"github.com/gogpu/webview/engine"
)

// instanceHandler is the engine client for one instance. All methods run
// on the engine thread.
type instanceHandler struct {
	ctrl *Controller
	id   InstanceID

	state   InstanceState
	browser engine.Browser

	target PaintTarget
	sink   PaintSink

	viewWidth, viewHeight int

	// popupRect is originalPopupRect clamped into the view.
	popupRect         engine.Rect
	originalPopupRect engine.Rect

	createReply  *PendingReply[struct{}]
	closeReplies []*PendingReply[struct{}]
}

var _ engine.Client = (*instanceHandler)(nil)

func newInstanceHandler(c *Controller, id InstanceID, params CreationParams, createReply *PendingReply[struct{}]) *instanceHandler {
	h := &instanceHandler{
		ctrl:        c,
		id:          id,
		state:       InstanceBeforeCreated,
		target:      params.Target,
		sink:        params.Sink,
		viewWidth:   params.Width,
		viewHeight:  params.Height,
		createReply: createReply,
	}
	if h.target == nil {
		h.target = discardTarget{}
	}
	if h.sink == nil {
		h.sink = nopSink{}
	}
	return h
}

// close moves the instance to Closing and asks the engine to close it.
// reply, if any, completes at OnBeforeClose.
func (h *instanceHandler) close(reply *PendingReply[struct{}]) {
	if reply != nil {
		h.closeReplies = append(h.closeReplies, reply)
	}
	if h.state == InstanceClosing || h.browser == nil {
		return
	}
	h.state = InstanceClosing
	h.browser.Host().CloseBrowser(false)
}

// setViewRect updates the view size. Non-positive sizes are rejected.
func (h *instanceHandler) setViewRect(width, height int) bool {
	if width <= 0 || height <= 0 {
		h.ctrl.logger().Error("webview: width and height must be greater than 0.",
			"id", h.id, "width", width, "height", height)
		return false
	}
	h.viewWidth = width
	h.viewHeight = height
	return true
}

func (h *instanceHandler) markReady() {
	h.state = InstanceReady
	h.createReply.Resolve(struct{}{})
}

func (h *instanceHandler) OnBeforePopup(browser engine.Browser, frame engine.Frame, targetURL string) bool {
	h.ctrl.logger().Debug("webview: popup blocked", "id", h.id, "url", targetURL)
	if targetURL != "" {
		browser.MainFrame().LoadURL(targetURL)
	}
	return true
}

func (h *instanceHandler) OnAfterCreated(browser engine.Browser) {
	h.browser = browser
	h.state = InstanceCreated
	h.ctrl.onInstanceCreated(h)
}

func (h *instanceHandler) DoClose(engine.Browser) bool {
	if h.state != InstanceClosing {
		h.ctrl.logger().Warn("webview: close vetoed, instances are closed through CloseInstance", "id", h.id)
		return true
	}
	return false
}

func (h *instanceHandler) OnBeforeClose(engine.Browser) {
	h.browser = nil
	h.ctrl.onInstanceClosed(h)
	h.state = InstanceClosed

	if !h.createReply.Done() {
		h.createReply.Reject(NewError(CodeRuntimeError, "browser %d closed before it became ready", h.id))
	}
	for _, r := range h.closeReplies {
		r.Resolve(struct{}{})
	}
	h.closeReplies = nil
}

func (h *instanceHandler) OnLoadStart(_ engine.Browser, frame engine.Frame) {
	if !frame.IsMain() {
		return
	}
	if h.state == InstanceCreated {
		h.markReady()
	}
	id, url := h.id, frame.URL()
	h.ctrl.emit(func(l Listener) { l.OnPageStarted(id, url) })
}

func (h *instanceHandler) OnLoadEnd(_ engine.Browser, frame engine.Frame, httpStatusCode int) {
	h.ctrl.logger().Debug("webview: load end", "id", h.id, "main", frame.IsMain(), "status", httpStatusCode)
	if !frame.IsMain() {
		return
	}
	id, url := h.id, frame.URL()
	h.ctrl.emit(func(l Listener) { l.OnPageFinished(id, url) })
}

func (h *instanceHandler) OnLoadError(_ engine.Browser, frame engine.Frame, code engine.ErrorCode, errorText, failedURL string) {
	// Any frame's error completes creation; only the main frame is reported.
	if h.state == InstanceCreated {
		h.markReady()
	}
	if !frame.IsMain() {
		return
	}
	id := h.id
	e := WebResourceError{Code: int(code), Description: errorText, FailingURL: failedURL}
	h.ctrl.emit(func(l Listener) { l.OnWebResourceError(id, e) })
}

func (h *instanceHandler) OnLoadingProgressChange(_ engine.Browser, progress float64) {
	id, p := h.id, int(progress*100)
	h.ctrl.emit(func(l Listener) { l.OnProgress(id, p) })
}

func (h *instanceHandler) GetViewRect(engine.Browser) engine.Rect {
	return engine.Rect{Width: h.viewWidth, Height: h.viewHeight}
}

func (h *instanceHandler) OnPopupShow(_ engine.Browser, show bool) {
	if !show {
		h.popupRect = engine.Rect{}
		h.originalPopupRect = engine.Rect{}
	}
}

func (h *instanceHandler) OnPopupSize(_ engine.Browser, rect engine.Rect) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return
	}
	h.originalPopupRect = rect
	h.popupRect = popupRectInView(rect, h.viewWidth, h.viewHeight)
}

func (h *instanceHandler) OnProcessMessageReceived(_ engine.Browser, _ engine.Frame, _ engine.ProcessID, msg *engine.ProcessMessage) bool {
	if msg.Name != engine.MsgScriptResponse {
		return false
	}
	r, err := engine.ReadScriptResponse(msg)
	if err != nil {
		h.ctrl.logger().Error("webview: malformed script response", "id", h.id, "err", err)
		return true
	}
	id := h.id
	res := ScriptResult{
		RunID:       r.RunID,
		WasExecuted: r.Executed,
		IsException: r.IsException,
		Result:      r.Result,
		IsUndefined: r.IsUndefined,
	}
	h.ctrl.emit(func(l Listener) { l.OnScriptResult(id, res) })
	return true
}

// discardTarget drops uploads for instances created without a texture.
type discardTarget struct{}

func (discardTarget) Reallocate(int, int, []byte) error     { return nil }
func (discardTarget) UploadSubImage(SubImage, []byte) error { return nil }
