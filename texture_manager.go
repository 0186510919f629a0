package webview

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gpucontext"
)

// TextureManager owns one texture per instance. It is used only on the
// host thread.
type TextureManager struct {
	gpu       GPUContext
	creator   gpucontext.TextureCreator
	registrar TextureRegistrar
	textures  map[InstanceID]*Texture
}

// NewTextureManager returns a manager that allocates through creator with
// gpu bound and registers textures with registrar.
func NewTextureManager(gpu GPUContext, creator gpucontext.TextureCreator, registrar TextureRegistrar) *TextureManager {
	return &TextureManager{
		gpu:       gpu,
		creator:   creator,
		registrar: registrar,
		textures:  make(map[InstanceID]*Texture),
	}
}

// CreateTexture allocates and registers a texture for id. On any failure
// nothing is left behind.
func (m *TextureManager) CreateTexture(id InstanceID, width, height int) (*Texture, error) {
	if _, ok := m.textures[id]; ok {
		return nil, NewError(CodeAlreadyExists, "a texture for webview id %d already exists", id)
	}
	if width <= 0 || height <= 0 {
		return nil, WrapError(CodeBadArguments, ErrInvalidDimensions,
			fmt.Sprintf("width=%d, height=%d", width, height))
	}

	if err := m.gpu.MakeCurrent(); err != nil {
		return nil, WrapError(CodeRuntimeError, err, "cannot make the GPU context current")
	}
	tex, err := newTexture(m.creator, width, height)
	m.gpu.ClearCurrent()
	if err != nil {
		return nil, WrapError(CodeRuntimeError, err, "texture allocation failed")
	}

	if err := m.registrar.RegisterTexture(tex); err != nil {
		_ = m.destroyNative(tex)
		return nil, WrapError(CodeRegistrationFailed, err,
			fmt.Sprintf("registering the texture for webview id %d failed", id))
	}

	m.textures[id] = tex
	Logger().Debug("webview: texture created", "id", id, "texture", tex.ID(), "width", width, "height", height)
	return tex, nil
}

// GetTexture returns the texture for id.
func (m *TextureManager) GetTexture(id InstanceID) (*Texture, error) {
	tex, ok := m.textures[id]
	if !ok {
		return nil, NewError(CodeNotFound, "no texture for webview id %d", id)
	}
	return tex, nil
}

// DestroyTexture unregisters and deletes the texture for id.
// skipUnregister is for registrations the host already tore down. A failed
// unregister is logged and does not stop the destroy; failing to bind the
// GPU context leaves the record in place.
func (m *TextureManager) DestroyTexture(id InstanceID, skipUnregister bool) error {
	tex, ok := m.textures[id]
	if !ok {
		return NewError(CodeNotFound, "no texture for webview id %d", id)
	}

	if !skipUnregister {
		if err := m.registrar.UnregisterTexture(tex); err != nil {
			Logger().Warn("webview: texture unregister failed", "id", id, "err", err)
		}
	}

	if err := m.destroyNative(tex); err != nil {
		return WrapError(CodeRuntimeError, err, fmt.Sprintf("destroying the texture for webview id %d failed", id))
	}
	delete(m.textures, id)
	return nil
}

// DestroyAll destroys every texture and joins the errors.
func (m *TextureManager) DestroyAll(skipUnregister bool) error {
	ids := slices.Sorted(maps.Keys(m.textures))
	var errs []error
	for _, id := range ids {
		if err := m.DestroyTexture(id, skipUnregister); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live textures.
func (m *TextureManager) Len() int {
	return len(m.textures)
}

func (m *TextureManager) destroyNative(tex *Texture) error {
	if err := m.gpu.MakeCurrent(); err != nil {
		return err
	}
	defer m.gpu.ClearCurrent()
	tex.destroy()
	return nil
}
