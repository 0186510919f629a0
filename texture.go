package webview

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
)

// GPUContext is the GPU context textures are created, updated and drawn
// with. MakeCurrent binds it to the calling thread and blocks while another
// thread holds it; ClearCurrent releases it.
type GPUContext interface {
	MakeCurrent() error
	ClearCurrent()
}

// TextureRegistrar is the host renderer's view of instance textures.
type TextureRegistrar interface {
	RegisterTexture(t *Texture) error
	UnregisterTexture(t *Texture) error
	// MarkFrameAvailable tells the renderer t has new content.
	MarkFrameAvailable(t *Texture) error
}

// textureDestroyer matches native textures that hold GPU memory.
type textureDestroyer interface {
	Destroy()
}

// nextTextureID numbers textures for the whole process.
var nextTextureID atomic.Int64

// Texture is an instance's frame texture. It wraps a native texture from a
// gpucontext.TextureCreator and keeps an RGBA copy of the contents.
//
// Uploads happen on the engine thread and drawing on the host thread; both
// must hold the GPU context.
type Texture struct {
	id      int64
	creator gpucontext.TextureCreator

	native gpucontext.Texture
	// stale is the native texture replaced by the last resize. It may
	// still be referenced by in-flight draws and is destroyed after the
	// next present.
	stale gpucontext.Texture

	width, height int
	pixels        []byte
	destroyed     bool
}

var _ gpucontext.Texture = (*Texture)(nil)

func newTexture(creator gpucontext.TextureCreator, width, height int) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	pixels := make([]byte, width*height*4)
	native, err := creator.NewTextureFromRGBA(width, height, pixels)
	if err != nil {
		return nil, fmt.Errorf("webview: NewTextureFromRGBA failed: %w", err)
	}
	return &Texture{
		id:      nextTextureID.Add(1),
		creator: creator,
		native:  native,
		width:   width,
		height:  height,
		pixels:  pixels,
	}, nil
}

// ID returns the identifier exposed to remote callers. It never changes
// for the lifetime of the texture, including across resizes, and is never
// shared by two textures in the same process.
func (t *Texture) ID() int64 { return t.id }

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Native returns the texture to hand to a gpucontext.TextureDrawer.
func (t *Texture) Native() gpucontext.Texture { return t.native }

// Image returns a copy of the current contents.
func (t *Texture) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	copy(img.Pix, t.pixels)
	return img
}

// Reallocate replaces the whole texture with a BGRA frame. A new size
// recreates the native texture.
func (t *Texture) Reallocate(width, height int, bgra []byte) error {
	if t.destroyed {
		return ErrTextureDestroyed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	n := width * height * 4
	if len(bgra) < n {
		return fmt.Errorf("%w: buffer has %d bytes, need %d", ErrRegionOutOfBounds, len(bgra), n)
	}

	if width == t.width && height == t.height {
		swizzleBGRA(t.pixels, bgra[:n])
		return t.pushAll()
	}

	pixels := make([]byte, n)
	swizzleBGRA(pixels, bgra[:n])
	native, err := t.creator.NewTextureFromRGBA(width, height, pixels)
	if err != nil {
		return fmt.Errorf("webview: texture resize failed: %w", err)
	}
	t.retire()
	t.native = native
	t.width, t.height = width, height
	t.pixels = pixels
	return nil
}

// UploadSubImage copies one region of a BGRA buffer into the texture.
func (t *Texture) UploadSubImage(r SubImage, bgra []byte) error {
	if t.destroyed {
		return ErrTextureDestroyed
	}
	if err := t.checkRegion(r, len(bgra)); err != nil {
		return err
	}

	rowBytes := r.Width * 4
	region := make([]byte, rowBytes*r.Height)
	for row := range r.Height {
		src := ((r.SkipRows+row)*r.RowLength + r.SkipPixels) * 4
		dst := row * rowBytes
		swizzleBGRA(region[dst:dst+rowBytes], bgra[src:src+rowBytes])

		off := ((r.Y+row)*t.width + r.X) * 4
		copy(t.pixels[off:off+rowBytes], region[dst:dst+rowBytes])
	}

	if ru, ok := t.native.(gpucontext.TextureRegionUpdater); ok {
		if err := ru.UpdateRegion(r.X, r.Y, r.Width, r.Height, region); err != nil {
			return fmt.Errorf("webview: region update failed: %w", err)
		}
		return nil
	}
	return t.pushAll()
}

func (t *Texture) checkRegion(r SubImage, bufLen int) error {
	if r.Width <= 0 || r.Height <= 0 || r.X < 0 || r.Y < 0 ||
		r.X+r.Width > t.width || r.Y+r.Height > t.height {
		return fmt.Errorf("%w: region %dx%d at (%d,%d) in %dx%d texture",
			ErrRegionOutOfBounds, r.Width, r.Height, r.X, r.Y, t.width, t.height)
	}
	if r.SkipPixels < 0 || r.SkipRows < 0 || r.RowLength < r.SkipPixels+r.Width {
		return fmt.Errorf("%w: row length %d with skip %d and width %d",
			ErrRegionOutOfBounds, r.RowLength, r.SkipPixels, r.Width)
	}
	end := ((r.SkipRows+r.Height-1)*r.RowLength + r.SkipPixels + r.Width) * 4
	if end > bufLen {
		return fmt.Errorf("%w: buffer has %d bytes, need %d", ErrRegionOutOfBounds, bufLen, end)
	}
	return nil
}

// pushAll uploads the full RGBA copy, recreating the native texture when
// it cannot be updated in place.
func (t *Texture) pushAll() error {
	if u, ok := t.native.(gpucontext.TextureUpdater); ok {
		if err := u.UpdateData(t.pixels); err != nil {
			return fmt.Errorf("webview: texture update failed: %w", err)
		}
		return nil
	}
	native, err := t.creator.NewTextureFromRGBA(t.width, t.height, t.pixels)
	if err != nil {
		return fmt.Errorf("webview: texture recreate failed: %w", err)
	}
	t.retire()
	t.native = native
	return nil
}

// retire defers destruction of the current native texture to the next
// present, destroying any texture retired earlier.
func (t *Texture) retire() {
	destroyNative(t.stale)
	t.stale = t.native
	t.native = nil
}

// releaseStale destroys the native texture replaced by the last resize.
// Called after a present, when no draw can still reference it.
func (t *Texture) releaseStale() {
	destroyNative(t.stale)
	t.stale = nil
}

func (t *Texture) destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	destroyNative(t.stale)
	destroyNative(t.native)
	t.stale, t.native = nil, nil
}

func destroyNative(tex gpucontext.Texture) {
	if tex == nil {
		return
	}
	if d, ok := tex.(textureDestroyer); ok {
		d.Destroy()
	}
}

// swizzleBGRA converts BGRA pixels in src to RGBA in dst.
func swizzleBGRA(dst, src []byte) {
	for i := 0; i+3 < len(src) && i+3 < len(dst); i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
}
