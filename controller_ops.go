package webview

import (
	"maps"
	"net/http"

	"github.com/gogpu/webview/engine"
)

// ClampClickCount limits a click count to [1, 3]. Zero and negative counts
// become 1.
func ClampClickCount(n int) int {
	switch {
	case n <= 0:
		return 1
	case n > 3:
		return 3
	default:
		return n
	}
}

// SendMouseMove moves the pointer, or reports it left the view.
func (c *Controller) SendMouseMove(id InstanceID, x, y int, mods Modifiers, mouseLeave bool, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		h.browser.Host().SendMouseMoveEvent(engine.MouseEvent{X: x, Y: y, Modifiers: mods}, mouseLeave)
		return struct{}{}, nil
	})
}

// SendMouseWheel scrolls by (deltaX, deltaY) at (x, y).
func (c *Controller) SendMouseWheel(id InstanceID, x, y int, mods Modifiers, deltaX, deltaY int, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		h.browser.Host().SendMouseWheelEvent(engine.MouseEvent{X: x, Y: y, Modifiers: mods}, deltaX, deltaY)
		return struct{}{}, nil
	})
}

// SendMouseClick presses or releases button at (x, y). clickCount is
// clamped with ClampClickCount.
func (c *Controller) SendMouseClick(id InstanceID, x, y int, mods Modifiers, button MouseButton, mouseUp bool, clickCount int, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		if !button.Valid() {
			return struct{}{}, NewError(CodeBadArguments, "invalid mouse button type: %d", button)
		}
		ev := engine.MouseEvent{X: x, Y: y, Modifiers: mods}
		h.browser.Host().SendMouseClickEvent(ev, button, mouseUp, ClampClickCount(clickCount))
		return struct{}{}, nil
	})
}

// SendKey delivers a keyboard event.
func (c *Controller) SendKey(id InstanceID, ev KeyEvent, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		if !ev.Type.Valid() {
			return struct{}{}, NewError(CodeBadArguments, "invalid key event type: %d", ev.Type)
		}
		h.browser.Host().SendKeyEvent(ev)
		return struct{}{}, nil
	})
}

// Resize changes the view size reported to the engine.
func (c *Controller) Resize(id InstanceID, width, height int, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		if !h.setViewRect(width, height) {
			return struct{}{}, NewError(CodeBadArguments, "width and height must be greater than 0.")
		}
		h.browser.Host().WasResized()
		return struct{}{}, nil
	})
}

// LoadURL navigates the main frame.
func (c *Controller) LoadURL(id InstanceID, url string, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		h.browser.MainFrame().LoadURL(url)
		return struct{}{}, nil
	})
}

// LoadRequest navigates the main frame with an explicit method and headers.
// The body is only attached to POST requests.
func (c *Controller) LoadRequest(id InstanceID, req Request, cb Callback[struct{}]) error {
	r := &engine.Request{
		URL:    req.URL,
		Method: req.Method,
		Header: http.Header{},
	}
	maps.Copy(r.Header, req.Header)
	if req.Method == http.MethodPost {
		r.PostData = append([]byte(nil), req.PostData...)
	}
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		h.browser.MainFrame().LoadRequest(r)
		return struct{}{}, nil
	})
}

// CurrentURL returns the main frame URL.
func (c *Controller) CurrentURL(id InstanceID, cb Callback[string]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (string, error) {
		return h.browser.MainFrame().URL(), nil
	})
}

// CanGoBack reports whether there is a history entry behind the current one.
func (c *Controller) CanGoBack(id InstanceID, cb Callback[bool]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (bool, error) {
		return h.browser.CanGoBack(), nil
	})
}

// CanGoForward reports whether there is a history entry ahead.
func (c *Controller) CanGoForward(id InstanceID, cb Callback[bool]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (bool, error) {
		return h.browser.CanGoForward(), nil
	})
}

// GoBack navigates one entry back in the instance's history.
func (c *Controller) GoBack(id InstanceID, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		h.browser.GoBack()
		return struct{}{}, nil
	})
}

// GoForward navigates one entry forward in the instance's history.
func (c *Controller) GoForward(id InstanceID, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		h.browser.GoForward()
		return struct{}{}, nil
	})
}

// Reload reloads the current page.
func (c *Controller) Reload(id InstanceID, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		h.browser.Reload()
		return struct{}{}, nil
	})
}

// GetTitle returns the title of the visible navigation entry.
func (c *Controller) GetTitle(id InstanceID, cb Callback[string]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (string, error) {
		entry := h.browser.Host().VisibleNavigationEntry()
		if entry == nil {
			return "", NewError(CodeRuntimeError, "no visible navigation entry")
		}
		return entry.Title, nil
	})
}

// RunScript asks the content side to evaluate script. cb only confirms the
// request was sent; the outcome arrives as Listener.OnScriptResult with the
// same runID.
func (c *Controller) RunScript(id InstanceID, runID int, script string, cb Callback[struct{}]) error {
	return dispatch(c, id, cb, func(h *instanceHandler) (struct{}, error) {
		h.browser.MainFrame().SendProcessMessage(engine.ProcessRenderer, engine.NewRunScriptRequest(runID, script))
		return struct{}{}, nil
	})
}

// SetCookie stores a cookie for http://<domain>. A cookie the engine fails
// to store asynchronously is logged and still reported as success; only a
// synchronous rejection is an error.
func (c *Controller) SetCookie(ck Cookie, cb Callback[struct{}]) error {
	reply := NewReply(c.host, cb)
	return c.post(func() {
		url := "http://" + ck.Domain
		ok := c.eng.CookieManager().SetCookie(url, ck, func(success bool) {
			if !success {
				c.logger().Warn("webview: cookie was not set", "domain", ck.Domain, "name", ck.Name)
			}
			reply.Resolve(struct{}{})
		})
		if !ok {
			reply.Reject(NewError(CodeRuntimeError, "CookieManager.SetCookie failed"))
		}
	})
}

// ClearCookies deletes every cookie and reports whether any existed.
func (c *Controller) ClearCookies(cb Callback[bool]) error {
	reply := NewReply(c.host, cb)
	return c.post(func() {
		ok := c.eng.CookieManager().DeleteCookies("", "", func(numDeleted int) {
			c.logger().Debug("webview: cookies deleted", "count", numDeleted)
			reply.Resolve(numDeleted > 0)
		})
		if !ok {
			reply.Reject(NewError(CodeRuntimeError, "CookieManager.DeleteCookies failed"))
		}
	})
}
