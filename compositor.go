package webview

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gpucontext"
)

// Compositor errors.
var (
	// ErrTextureRegistered is returned when a texture is registered twice.
	ErrTextureRegistered = errors.New("webview: texture already registered")

	// ErrTextureNotRegistered is returned for textures the compositor does
	// not know.
	ErrTextureNotRegistered = errors.New("webview: texture not registered")

	// ErrInvalidDrawContext is returned when Render gets a nil drawer.
	ErrInvalidDrawContext = errors.New("webview: nil gpucontext.TextureDrawer")
)

// Placement positions a texture in the host's render target.
type Placement struct {
	X, Y float32
}

// Compositor is a TextureRegistrar that presents instance textures with a
// gpucontext.TextureDrawer. It runs on the host thread.
//
// Example:
//
//	comp := webview.NewCompositor(gpu, window)
//	textures := webview.NewTextureManager(gpu, drawer.TextureCreator(), comp)
//	// in the host's draw callback:
//	if comp.Dirty() {
//	    _ = comp.Render(drawer)
//	}
type Compositor struct {
	gpu    GPUContext
	window gpucontext.WindowProvider

	textures  []*Texture
	placement map[int64]Placement
	frames    map[int64]uint64
	dirty     bool
}

var _ TextureRegistrar = (*Compositor)(nil)

// NewCompositor returns a compositor that binds gpu while drawing and asks
// window for a redraw whenever a frame becomes available. window may be
// nil.
func NewCompositor(gpu GPUContext, window gpucontext.WindowProvider) *Compositor {
	if window == nil {
		window = gpucontext.NullWindowProvider{}
	}
	return &Compositor{
		gpu:       gpu,
		window:    window,
		placement: make(map[int64]Placement),
		frames:    make(map[int64]uint64),
	}
}

func (c *Compositor) indexOf(t *Texture) int {
	return slices.IndexFunc(c.textures, func(x *Texture) bool { return x.ID() == t.ID() })
}

// RegisterTexture adds t to the set of presented textures.
func (c *Compositor) RegisterTexture(t *Texture) error {
	if c.indexOf(t) >= 0 {
		return fmt.Errorf("%w: %d", ErrTextureRegistered, t.ID())
	}
	c.textures = append(c.textures, t)
	return nil
}

// UnregisterTexture stops presenting t.
func (c *Compositor) UnregisterTexture(t *Texture) error {
	i := c.indexOf(t)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrTextureNotRegistered, t.ID())
	}
	c.textures = slices.Delete(c.textures, i, i+1)
	delete(c.placement, t.ID())
	delete(c.frames, t.ID())
	return nil
}

// MarkFrameAvailable records a new frame for t and requests a redraw.
func (c *Compositor) MarkFrameAvailable(t *Texture) error {
	if c.indexOf(t) < 0 {
		return fmt.Errorf("%w: %d", ErrTextureNotRegistered, t.ID())
	}
	c.frames[t.ID()]++
	c.dirty = true
	c.window.RequestRedraw()
	return nil
}

// Place sets where t is drawn. Textures default to (0, 0).
func (c *Compositor) Place(t *Texture, p Placement) {
	c.placement[t.ID()] = p
}

// Frames returns how many frames have been marked available for t.
func (c *Compositor) Frames(t *Texture) uint64 {
	return c.frames[t.ID()]
}

// Dirty reports whether a frame arrived since the last Render.
func (c *Compositor) Dirty() bool {
	return c.dirty
}

// Render draws every registered texture in registration order. Textures
// retired by a resize are destroyed once drawing has finished.
func (c *Compositor) Render(dc gpucontext.TextureDrawer) error {
	if dc == nil {
		return ErrInvalidDrawContext
	}
	if err := c.gpu.MakeCurrent(); err != nil {
		return fmt.Errorf("webview: cannot make the GPU context current: %w", err)
	}
	defer c.gpu.ClearCurrent()

	for _, t := range c.textures {
		native := t.Native()
		if native == nil {
			continue
		}
		p := c.placement[t.ID()]
		if err := dc.DrawTexture(native, p.X, p.Y); err != nil {
			return fmt.Errorf("webview: drawing texture %d failed: %w", t.ID(), err)
		}
		t.releaseStale()
	}
	c.dirty = false
	return nil
}

// FramePresenter is the PaintSink used with textures from a
// TextureManager. PaintBegin and PaintEnd run on the engine thread; the
// frame-available signal is posted to the host thread, where the texture
// map lives.
type FramePresenter struct {
	gpu       GPUContext
	host      *HostLoop
	textures  *TextureManager
	registrar TextureRegistrar
}

var _ PaintSink = (*FramePresenter)(nil)

// NewFramePresenter returns a sink binding gpu around each frame and
// marking frames available on registrar.
func NewFramePresenter(gpu GPUContext, host *HostLoop, textures *TextureManager, registrar TextureRegistrar) *FramePresenter {
	return &FramePresenter{gpu: gpu, host: host, textures: textures, registrar: registrar}
}

// PaintBegin binds the GPU context on the engine thread.
func (p *FramePresenter) PaintBegin(InstanceID) error {
	return p.gpu.MakeCurrent()
}

// PaintEnd releases the GPU context and signals the host.
func (p *FramePresenter) PaintEnd(id InstanceID) {
	p.gpu.ClearCurrent()
	p.host.Post(func() {
		tex, err := p.textures.GetTexture(id)
		if err != nil {
			Logger().Warn("webview: frame for unknown texture", "id", id)
			return
		}
		if err := p.registrar.MarkFrameAvailable(tex); err != nil {
			Logger().Error("webview: mark frame available failed", "id", id, "err", err)
		}
	})
}
