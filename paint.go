package webview

import (
	"github.com/gogpu/webview/engine"
)

// OnPaint uploads a frame into the instance's target. The sink brackets the
// work so the GPU context is bound on this thread for its duration.
func (h *instanceHandler) OnPaint(browser engine.Browser, layer engine.PaintElementType, dirty []engine.Rect, buffer []byte, width, height int) {
	if err := h.sink.PaintBegin(h.id); err != nil {
		h.ctrl.logger().Error("webview: paint begin failed", "id", h.id, "err", err)
		return
	}

	switch {
	case layer == engine.PaintView:
		h.paintView(dirty, buffer, width, height)
	case layer == engine.PaintPopup && !h.popupRect.IsEmpty():
		h.paintPopup(buffer, width, height)
	}

	if layer == engine.PaintView && !h.popupRect.IsEmpty() {
		browser.Host().Invalidate(engine.PaintPopup)
	}

	h.sink.PaintEnd(h.id)
}

// paintView adopts the buffer size as the view size, then uploads either
// the whole frame or each dirty rectangle in the order given.
func (h *instanceHandler) paintView(dirty []engine.Rect, buffer []byte, width, height int) {
	oldWidth, oldHeight := h.viewWidth, h.viewHeight
	h.viewWidth, h.viewHeight = width, height

	if needsFullUpload(oldWidth, oldHeight, width, height, dirty) {
		if err := h.target.Reallocate(width, height, buffer); err != nil {
			h.ctrl.logger().Error("webview: full upload failed", "id", h.id, "err", err)
		}
		return
	}

	for _, r := range dirty {
		sub := SubImage{
			X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
			RowLength:  width,
			SkipPixels: r.X,
			SkipRows:   r.Y,
		}
		if err := h.target.UploadSubImage(sub, buffer); err != nil {
			h.ctrl.logger().Error("webview: dirty rect upload failed", "id", h.id, "rect", r, "err", err)
		}
	}
}

// paintPopup uploads the popup buffer at the clamped popup position,
// cropping whatever falls outside the view.
func (h *instanceHandler) paintPopup(buffer []byte, width, height int) {
	sub := popupUpload(h.popupRect, width, height, h.viewWidth, h.viewHeight)
	if sub.Width <= 0 || sub.Height <= 0 {
		return
	}
	if err := h.target.UploadSubImage(sub, buffer); err != nil {
		h.ctrl.logger().Error("webview: popup upload failed", "id", h.id, "err", err)
	}
}

func needsFullUpload(oldWidth, oldHeight, width, height int, dirty []engine.Rect) bool {
	if oldWidth != width || oldHeight != height {
		return true
	}
	return len(dirty) == 1 && dirty[0] == engine.Rect{Width: width, Height: height}
}

// popupUpload computes where a popup buffer of bufWidth x bufHeight lands
// in a view of viewWidth x viewHeight when drawn at popup.
func popupUpload(popup engine.Rect, bufWidth, bufHeight, viewWidth, viewHeight int) SubImage {
	sub := SubImage{
		X: popup.X, Y: popup.Y,
		Width: bufWidth, Height: bufHeight,
		RowLength: bufWidth,
	}
	if sub.X < 0 {
		sub.SkipPixels = -sub.X
		sub.Width -= sub.SkipPixels
		sub.X = 0
	}
	if sub.Y < 0 {
		sub.SkipRows = -sub.Y
		sub.Height -= sub.SkipRows
		sub.Y = 0
	}
	if sub.X+sub.Width > viewWidth {
		sub.Width -= sub.X + sub.Width - viewWidth
	}
	if sub.Y+sub.Height > viewHeight {
		sub.Height -= sub.Y + sub.Height - viewHeight
	}
	return sub
}

// popupRectInView moves r so it lies inside a view of the given size:
// negative coordinates go to 0, overflow past the right or bottom edge is
// pulled back, and anything pushed negative again is reset to 0.
func popupRectInView(r engine.Rect, viewWidth, viewHeight int) engine.Rect {
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X+r.Width > viewWidth {
		r.X = viewWidth - r.Width
	}
	if r.Y+r.Height > viewHeight {
		r.Y = viewHeight - r.Height
	}
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	return r
}
