package engine

import (
	"image/color"
	"net/http"

	"github.com/gogpu/gputypes"
)

// PixelFormat is the layout of paint buffers.
type PixelFormat = gputypes.TextureFormat

// FramePixelFormat is the only format engines deliver to OnPaint.
const FramePixelFormat PixelFormat = gputypes.TextureFormatBGRA8Unorm

// BytesPerPixel is the size of one pixel of a paint buffer.
const BytesPerPixel = 4

// Rect is an integer rectangle in view coordinates.
type Rect struct {
	X, Y          int
	Width, Height int
}

// IsEmpty reports whether r covers no pixels.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// PaintElementType selects the layer a paint belongs to.
type PaintElementType int

const (
	// PaintView is the main view layer.
	PaintView PaintElementType = iota
	// PaintPopup is the popup overlay (select menus, context menus).
	PaintPopup
)

// String returns the layer name.
func (t PaintElementType) String() string {
	switch t {
	case PaintView:
		return "view"
	case PaintPopup:
		return "popup"
	default:
		return "unknown"
	}
}

// MouseButton identifies a mouse button in click events.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
)

// Valid reports whether b is a known button.
func (b MouseButton) Valid() bool {
	return b >= MouseLeft && b <= MouseRight
}

// KeyEventType is the kind of a keyboard event.
type KeyEventType int

const (
	KeyRawDown KeyEventType = iota
	KeyDown
	KeyUp
	KeyChar
)

// Valid reports whether t is a known key event type.
func (t KeyEventType) Valid() bool {
	return t >= KeyRawDown && t <= KeyChar
}

// Modifiers is a bit set of input event flags.
type Modifiers uint32

const (
	ModCapsLockOn Modifiers = 1 << iota
	ModShiftDown
	ModControlDown
	ModAltDown
	ModLeftMouseButton
	ModMiddleMouseButton
	ModRightMouseButton
	ModCommandDown
	ModNumLockOn
	ModIsKeyPad
	ModIsLeft
	ModIsRight
	ModAltGrDown
	ModIsRepeat
)

// MouseEvent carries the pointer position and active modifiers.
type MouseEvent struct {
	X, Y      int
	Modifiers Modifiers
}

// KeyEvent is a keyboard event in engine terms.
type KeyEvent struct {
	Type                KeyEventType
	Modifiers           Modifiers
	WindowsKeyCode      int
	NativeKeyCode       int
	IsSystemKey         bool
	Character           uint16
	UnmodifiedCharacter uint16
}

// Request describes a navigation with an explicit method, headers and body.
type Request struct {
	URL    string
	Method string
	Header http.Header
	// PostData is sent only when Method is POST.
	PostData []byte
}

// NavigationEntry is one committed history entry.
type NavigationEntry struct {
	URL        string
	Title      string
	HTTPStatus int
}

// Cookie is a cookie as stored by the engine's cookie manager.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
	Secure bool
	// HTTPOnly hides the cookie from page scripts.
	HTTPOnly bool
}

// Settings configures an engine at Initialize time.
type Settings struct {
	// Args are command line switches forwarded by the embedder.
	Args []string
	// WindowlessRendering must be set for off-screen browsers.
	WindowlessRendering bool
	// UserAgent overrides the default user agent when non-empty.
	UserAgent string
}

// WindowInfo describes how a browser is hosted.
type WindowInfo struct {
	Windowless bool
}

// BrowserSettings configures one browser.
type BrowserSettings struct {
	// FrameRate is the maximum windowless frame rate.
	FrameRate int
	// BackgroundColor fills areas the page does not paint.
	BackgroundColor color.NRGBA
}

// ProcessID names the side of the engine a message is addressed to.
type ProcessID int

const (
	ProcessBrowser ProcessID = iota
	ProcessRenderer
)

// ErrorCode is a network error code reported by OnLoadError.
// Values follow the negative numbering used by Chromium's net stack.
type ErrorCode int

const (
	ErrNone              ErrorCode = 0
	ErrFailed            ErrorCode = -2
	ErrAborted           ErrorCode = -3
	ErrInvalidArgument   ErrorCode = -4
	ErrFileNotFound      ErrorCode = -6
	ErrTimedOut          ErrorCode = -7
	ErrConnectionRefused ErrorCode = -102
	ErrNameNotResolved   ErrorCode = -105
	ErrInvalidURL        ErrorCode = -300
	ErrUnknownURLScheme  ErrorCode = -302
	ErrInvalidResponse   ErrorCode = -320
)
