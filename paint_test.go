package webview

import (
	"slices"
	"testing"

	"github.com/gogpu/webview/engine"
)

type upload struct {
	full bool
	w, h int
	sub  SubImage
}

// recordingTarget is a PaintTarget that keeps every upload.
type recordingTarget struct {
	uploads []upload
}

func (r *recordingTarget) Reallocate(w, h int, _ []byte) error {
	r.uploads = append(r.uploads, upload{full: true, w: w, h: h})
	return nil
}

func (r *recordingTarget) UploadSubImage(s SubImage, _ []byte) error {
	r.uploads = append(r.uploads, upload{sub: s})
	return nil
}

type countingSink struct {
	begins, ends int
}

func (s *countingSink) PaintBegin(InstanceID) error {
	s.begins++
	return nil
}

func (s *countingSink) PaintEnd(InstanceID) { s.ends++ }

func newPaintHandler(t *testing.T, width, height int) (*instanceHandler, *recordingTarget, *countingSink) {
	t.Helper()
	target := &recordingTarget{}
	sink := &countingSink{}
	c := NewController(newFakeEngine(), NewHostLoop())
	h := newInstanceHandler(c, 1, CreationParams{Width: width, Height: height, Target: target, Sink: sink}, NewReply[struct{}](c.host, nil))
	return h, target, sink
}

func paintBrowser() *fakeBrowser {
	b := &fakeBrowser{eng: newFakeEngine()}
	b.host = &fakeHost{browser: b}
	b.frame = &fakeFrame{browser: b, main: true}
	return b
}

func TestPaintFullFrame(t *testing.T) {
	h, target, sink := newPaintHandler(t, 200, 100)
	buf := make([]byte, 200*100*4)

	h.OnPaint(paintBrowser(), engine.PaintView, []engine.Rect{{Width: 200, Height: 100}}, buf, 200, 100)

	if len(target.uploads) != 1 || !target.uploads[0].full {
		t.Fatalf("uploads = %+v, want one full upload", target.uploads)
	}
	if sink.begins != 1 || sink.ends != 1 {
		t.Errorf("sink begin/end = %d/%d, want 1/1", sink.begins, sink.ends)
	}
}

func TestPaintResizeForcesFullUpload(t *testing.T) {
	h, target, _ := newPaintHandler(t, 200, 100)
	buf := make([]byte, 300*150*4)

	h.OnPaint(paintBrowser(), engine.PaintView, []engine.Rect{{X: 10, Y: 10, Width: 5, Height: 5}}, buf, 300, 150)

	if len(target.uploads) != 1 || !target.uploads[0].full || target.uploads[0].w != 300 {
		t.Fatalf("uploads = %+v, want one full 300x150 upload", target.uploads)
	}
	if h.viewWidth != 300 || h.viewHeight != 150 {
		t.Errorf("view = %dx%d, want the buffer size 300x150", h.viewWidth, h.viewHeight)
	}
}

func TestPaintDirtyRects(t *testing.T) {
	h, target, _ := newPaintHandler(t, 200, 100)
	buf := make([]byte, 200*100*4)
	dirty := []engine.Rect{
		{X: 10, Y: 20, Width: 30, Height: 40},
		{X: 100, Y: 0, Width: 50, Height: 10},
	}

	h.OnPaint(paintBrowser(), engine.PaintView, dirty, buf, 200, 100)

	want := []upload{
		{sub: SubImage{X: 10, Y: 20, Width: 30, Height: 40, RowLength: 200, SkipPixels: 10, SkipRows: 20}},
		{sub: SubImage{X: 100, Y: 0, Width: 50, Height: 10, RowLength: 200, SkipPixels: 100, SkipRows: 0}},
	}
	if !slices.Equal(target.uploads, want) {
		t.Errorf("uploads = %+v, want %+v", target.uploads, want)
	}
}

func TestPaintPopup(t *testing.T) {
	h, target, _ := newPaintHandler(t, 200, 200)
	b := paintBrowser()

	// Hidden popups are not painted.
	h.OnPaint(b, engine.PaintPopup, nil, make([]byte, 50*50*4), 50, 50)
	if len(target.uploads) != 0 {
		t.Fatalf("popup painted while hidden: %+v", target.uploads)
	}

	h.OnPopupSize(b, engine.Rect{X: 190, Y: 190, Width: 50, Height: 50})
	if h.popupRect != (engine.Rect{X: 150, Y: 150, Width: 50, Height: 50}) {
		t.Errorf("popupRect = %+v, want clamped to (150,150)", h.popupRect)
	}
	if h.originalPopupRect.X != 190 {
		t.Errorf("originalPopupRect = %+v, want unchanged", h.originalPopupRect)
	}

	h.OnPaint(b, engine.PaintPopup, nil, make([]byte, 50*50*4), 50, 50)
	want := SubImage{X: 150, Y: 150, Width: 50, Height: 50, RowLength: 50}
	if len(target.uploads) != 1 || target.uploads[0].sub != want {
		t.Fatalf("uploads = %+v, want %+v", target.uploads, want)
	}

	// A view paint with a visible popup asks for the popup again.
	h.OnPaint(b, engine.PaintView, []engine.Rect{{Width: 200, Height: 200}}, make([]byte, 200*200*4), 200, 200)
	if !slices.Equal(b.host.invalidated, []engine.PaintElementType{engine.PaintPopup}) {
		t.Errorf("invalidated = %v, want [popup]", b.host.invalidated)
	}

	h.OnPopupShow(b, false)
	if !h.popupRect.IsEmpty() {
		t.Errorf("popupRect after hide = %+v, want empty", h.popupRect)
	}
}

func TestPopupRectInView(t *testing.T) {
	tests := []struct {
		name string
		in   engine.Rect
		want engine.Rect
	}{
		{"inside", engine.Rect{X: 10, Y: 10, Width: 50, Height: 50}, engine.Rect{X: 10, Y: 10, Width: 50, Height: 50}},
		{"negative x", engine.Rect{X: -10, Y: 5, Width: 50, Height: 50}, engine.Rect{X: 0, Y: 5, Width: 50, Height: 50}},
		{"past bottom right", engine.Rect{X: 190, Y: 190, Width: 50, Height: 50}, engine.Rect{X: 150, Y: 150, Width: 50, Height: 50}},
		{"larger than view", engine.Rect{X: 20, Y: 20, Width: 300, Height: 300}, engine.Rect{X: 0, Y: 0, Width: 300, Height: 300}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := popupRectInView(tt.in, 200, 200); got != tt.want {
				t.Errorf("popupRectInView(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPopupUpload(t *testing.T) {
	tests := []struct {
		name  string
		popup engine.Rect
		want  SubImage
	}{
		{
			"inside",
			engine.Rect{X: 10, Y: 10, Width: 50, Height: 50},
			SubImage{X: 10, Y: 10, Width: 50, Height: 50, RowLength: 50},
		},
		{
			"negative offsets skip into the buffer",
			engine.Rect{X: -10, Y: -5, Width: 50, Height: 50},
			SubImage{X: 0, Y: 0, Width: 40, Height: 45, RowLength: 50, SkipPixels: 10, SkipRows: 5},
		},
		{
			"cropped at the edge",
			engine.Rect{X: 180, Y: 170, Width: 50, Height: 50},
			SubImage{X: 180, Y: 170, Width: 20, Height: 30, RowLength: 50},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := popupUpload(tt.popup, 50, 50, 200, 200); got != tt.want {
				t.Errorf("popupUpload = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOnPopupSizeIgnoresEmpty(t *testing.T) {
	h, _, _ := newPaintHandler(t, 200, 200)
	h.OnPopupSize(paintBrowser(), engine.Rect{X: 5, Y: 5})
	if !h.popupRect.IsEmpty() {
		t.Errorf("popupRect = %+v, want empty", h.popupRect)
	}
}
