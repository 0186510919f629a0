package webview

import (
	"image/color"

	"github.com/gogpu/webview/engine"
)

// InstanceID identifies one browser instance. It is chosen by the caller
// and is unique among live instances.
type InstanceID int64

// DefaultURL is loaded when CreationParams.URL is empty.
const DefaultURL = "about:blank"

// DefaultFrameRate is the windowless frame rate of new instances.
const DefaultFrameRate = 60

// CreationParams describes a new browser instance.
type CreationParams struct {
	URL string

	// BackgroundColor is either empty or exactly four bytes: A, R, G, B.
	BackgroundColor []byte

	Width, Height int

	// Target receives frame uploads. It is usually the instance's *Texture.
	Target PaintTarget

	// Sink brackets each frame. Nil means no GPU context handling.
	Sink PaintSink
}

func (p CreationParams) backgroundColor() (color.NRGBA, error) {
	switch len(p.BackgroundColor) {
	case 0:
		return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, nil
	case 4:
		c := p.BackgroundColor
		return color.NRGBA{A: c[0], R: c[1], G: c[2], B: c[3]}, nil
	default:
		return color.NRGBA{}, NewError(CodeBadArguments,
			"backgroundColor must have 0 or 4 elements (A, R, G, B), got %d", len(p.BackgroundColor))
	}
}

// SubImage addresses a rectangle inside a texture and the matching pixels
// inside a larger source buffer. RowLength is the source stride in pixels;
// SkipPixels and SkipRows offset into the source.
type SubImage struct {
	X, Y          int
	Width, Height int

	RowLength  int
	SkipPixels int
	SkipRows   int
}

// PaintTarget is the destination of an instance's frames. Methods are
// called on the engine thread between PaintSink.PaintBegin and PaintEnd.
type PaintTarget interface {
	// Reallocate replaces the whole image with a tightly packed BGRA buffer.
	Reallocate(width, height int, bgra []byte) error

	// UploadSubImage copies one region of a BGRA buffer.
	UploadSubImage(r SubImage, bgra []byte) error
}

// PaintSink brackets GPU work for a frame. PaintBegin binds the GPU context
// on the engine thread; PaintEnd releases it and signals that a frame is
// available.
type PaintSink interface {
	PaintBegin(id InstanceID) error
	PaintEnd(id InstanceID)
}

type nopSink struct{}

func (nopSink) PaintBegin(InstanceID) error { return nil }
func (nopSink) PaintEnd(InstanceID)         {}

// ScriptResult is the outcome of RunScript, delivered as an event.
type ScriptResult struct {
	RunID       int
	WasExecuted bool
	IsException bool
	Result      string
	IsUndefined bool
}

// WebResourceError describes a failed main-frame load.
type WebResourceError struct {
	Code        int
	Description string
	FailingURL  string
}

// Cookie is the cookie accepted by SetCookie.
type Cookie = engine.Cookie

// Request describes an explicit navigation.
type Request = engine.Request

// KeyEvent is an input key event.
type KeyEvent = engine.KeyEvent

// MouseButton selects a button for SendMouseClick.
type MouseButton = engine.MouseButton

// Modifiers is a set of input modifier flags.
type Modifiers = engine.Modifiers
