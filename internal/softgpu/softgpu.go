// Package softgpu is a CPU implementation of the gpucontext texture
// interfaces. It backs the daemon and the tests, where no real GPU device
// is available.
package softgpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

var (
	// ErrDestroyed is returned when using a destroyed texture.
	ErrDestroyed = errors.New("softgpu: texture destroyed")

	// ErrDataSize is returned when pixel data does not match the region.
	ErrDataSize = errors.New("softgpu: invalid data size")

	// ErrForeignTexture is returned when drawing a texture from another
	// device.
	ErrForeignTexture = errors.New("softgpu: texture was not created by this device")
)

// Format is the pixel format of every softgpu texture.
const Format = gputypes.TextureFormatRGBA8Unorm

// Context is a GPU context that one goroutine holds at a time.
type Context struct {
	mu    sync.Mutex
	binds atomic.Int64
}

// MakeCurrent blocks until the context is free, then holds it.
func (c *Context) MakeCurrent() error {
	c.mu.Lock()
	c.binds.Add(1)
	return nil
}

// ClearCurrent releases the context.
func (c *Context) ClearCurrent() {
	c.mu.Unlock()
}

// Binds returns how many times the context has been made current.
func (c *Context) Binds() int64 {
	return c.binds.Load()
}

// Device creates textures. It implements gpucontext.TextureCreator.
type Device struct {
	mu   sync.Mutex
	live map[*Texture]struct{}
}

var _ gpucontext.TextureCreator = (*Device)(nil)

// NewDevice returns an empty device.
func NewDevice() *Device {
	return &Device{live: make(map[*Texture]struct{})}
}

// NewTextureFromRGBA creates a texture holding a copy of data.
func (d *Device) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("softgpu: invalid dimensions %dx%d", width, height)
	}
	if len(data) != width*height*4 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrDataSize, len(data), width*height*4)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, data)
	t := &Texture{dev: d, img: img}

	d.mu.Lock()
	d.live[t] = struct{}{}
	d.mu.Unlock()
	return t, nil
}

// Live returns the number of textures not yet destroyed.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// Texture is a CPU texture. It implements gpucontext.Texture,
// TextureUpdater and TextureRegionUpdater.
type Texture struct {
	dev       *Device
	img       *image.RGBA
	destroyed bool

	fullUpdates   int
	regionUpdates int
}

var (
	_ gpucontext.Texture              = (*Texture)(nil)
	_ gpucontext.TextureUpdater       = (*Texture)(nil)
	_ gpucontext.TextureRegionUpdater = (*Texture)(nil)
)

func (t *Texture) Width() int  { return t.img.Rect.Dx() }
func (t *Texture) Height() int { return t.img.Rect.Dy() }

// UpdateData replaces the whole texture.
func (t *Texture) UpdateData(data []byte) error {
	if t.destroyed {
		return ErrDestroyed
	}
	if len(data) != len(t.img.Pix) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrDataSize, len(data), len(t.img.Pix))
	}
	copy(t.img.Pix, data)
	t.fullUpdates++
	return nil
}

// UpdateRegion replaces a w x h region at (x, y) with densely packed rows.
func (t *Texture) UpdateRegion(x, y, w, h int, data []byte) error {
	if t.destroyed {
		return ErrDestroyed
	}
	r := image.Rect(x, y, x+w, y+h)
	if w <= 0 || h <= 0 || !r.In(t.img.Rect) {
		return fmt.Errorf("softgpu: region %v outside %v", r, t.img.Rect)
	}
	if len(data) != w*h*4 {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrDataSize, len(data), w*h*4)
	}
	for row := range h {
		off := t.img.PixOffset(x, y+row)
		copy(t.img.Pix[off:off+w*4], data[row*w*4:(row+1)*w*4])
	}
	t.regionUpdates++
	return nil
}

// Destroy releases the texture. It is idempotent.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.dev.mu.Lock()
	delete(t.dev.live, t)
	t.dev.mu.Unlock()
}

// Destroyed reports whether Destroy has been called.
func (t *Texture) Destroyed() bool { return t.destroyed }

// Updates returns the number of full and region updates applied.
func (t *Texture) Updates() (full, region int) { return t.fullUpdates, t.regionUpdates }

// At returns the pixel at (x, y).
func (t *Texture) At(x, y int) color.RGBA { return t.img.RGBAAt(x, y) }

// Framebuffer is a render target. It implements gpucontext.TextureDrawer
// and gpucontext.WindowProvider.
type Framebuffer struct {
	dev   *Device
	img   *image.RGBA
	scale float64

	redraws atomic.Int64
	redraw  chan struct{}
}

var (
	_ gpucontext.TextureDrawer  = (*Framebuffer)(nil)
	_ gpucontext.WindowProvider = (*Framebuffer)(nil)
)

// NewFramebuffer returns a framebuffer of width x height logical points.
// scale is the HiDPI factor; values <= 0 mean 1.
func NewFramebuffer(dev *Device, width, height int, scale float64) *Framebuffer {
	if scale <= 0 {
		scale = 1
	}
	pw := int(float64(width) * scale)
	ph := int(float64(height) * scale)
	return &Framebuffer{
		dev:    dev,
		img:    image.NewRGBA(image.Rect(0, 0, pw, ph)),
		scale:  scale,
		redraw: make(chan struct{}, 1),
	}
}

// DrawTexture composites tex at (x, y) logical points, scaling by the
// framebuffer's scale factor.
func (f *Framebuffer) DrawTexture(tex gpucontext.Texture, x, y float32) error {
	t, ok := tex.(*Texture)
	if !ok || t.dev != f.dev {
		return ErrForeignTexture
	}
	if t.destroyed {
		return ErrDestroyed
	}
	px := int(float64(x) * f.scale)
	py := int(float64(y) * f.scale)
	if f.scale == 1 {
		dr := image.Rect(px, py, px+t.Width(), py+t.Height())
		draw.Draw(f.img, dr, t.img, image.Point{}, draw.Over)
		return nil
	}
	dr := image.Rect(px, py,
		px+int(float64(t.Width())*f.scale),
		py+int(float64(t.Height())*f.scale))
	draw.ApproxBiLinear.Scale(f.img, dr, t.img, t.img.Rect, draw.Over, nil)
	return nil
}

// TextureCreator returns the device the framebuffer draws from.
func (f *Framebuffer) TextureCreator() gpucontext.TextureCreator { return f.dev }

// Clear fills the framebuffer with c.
func (f *Framebuffer) Clear(c color.Color) {
	draw.Draw(f.img, f.img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// Image returns the framebuffer contents. The image is shared, not copied.
func (f *Framebuffer) Image() *image.RGBA { return f.img }

// Size returns the framebuffer size in logical points.
func (f *Framebuffer) Size() (width, height int) {
	return int(float64(f.img.Rect.Dx()) / f.scale), int(float64(f.img.Rect.Dy()) / f.scale)
}

// ScaleFactor returns the HiDPI factor.
func (f *Framebuffer) ScaleFactor() float64 { return f.scale }

// RequestRedraw records a redraw request and signals Redraw.
func (f *Framebuffer) RequestRedraw() {
	f.redraws.Add(1)
	select {
	case f.redraw <- struct{}{}:
	default:
	}
}

// Redraw is signalled after RequestRedraw.
func (f *Framebuffer) Redraw() <-chan struct{} { return f.redraw }

// Redraws returns the number of redraw requests.
func (f *Framebuffer) Redraws() int64 { return f.redraws.Load() }
