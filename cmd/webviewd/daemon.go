package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/gogpu/webview"
	"github.com/gogpu/webview/channel"
	"github.com/gogpu/webview/headless"
	"github.com/gogpu/webview/internal/softgpu"
)

// daemon wires one engine, one software GPU and one channel together.
type daemon struct {
	logger   *slog.Logger
	host     *webview.HostLoop
	gpu      *softgpu.Context
	fb       *softgpu.Framebuffer
	comp     *webview.Compositor
	textures *webview.TextureManager
	ch       *channel.Channel
}

func newDaemon(logger *slog.Logger, cfg config) *daemon {
	host := webview.NewHostLoop()
	gpu := &softgpu.Context{}
	fb := softgpu.NewFramebuffer(softgpu.NewDevice(), cfg.width, cfg.height, 1)
	comp := webview.NewCompositor(gpu, fb)
	textures := webview.NewTextureManager(gpu, fb.TextureCreator(), comp)
	presenter := webview.NewFramePresenter(gpu, host, textures, comp)

	eng := headless.New(headless.WithLogger(logger.With("component", "engine")))
	ch := channel.New(eng, host, textures, presenter,
		channel.WithLogger(logger.With("component", "channel")),
		channel.WithControllerOptions(webview.WithFrameRate(cfg.fps)),
	)
	return &daemon{
		logger:   logger,
		host:     host,
		gpu:      gpu,
		fb:       fb,
		comp:     comp,
		textures: textures,
		ch:       ch,
	}
}

func (d *daemon) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channel", d.serveChannel)
	mux.HandleFunc("GET /frame.png", d.serveFrame)
	mux.HandleFunc("GET /snapshot/{id}", d.serveSnapshot)
	return mux
}

// close runs on the host thread after the host loop has stopped.
func (d *daemon) close() error {
	err := d.ch.Close()
	d.host.Drain()
	d.host.Close()
	return err
}

func (d *daemon) serveChannel(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		d.logger.Warn("webviewd: websocket accept failed", "err", err)
		return
	}
	session := uuid.NewString()
	log := d.logger.With("session", session, "remote", r.RemoteAddr)
	log.Info("webviewd: session opened")

	err = d.ch.Serve(r.Context(), ws)
	switch {
	case err == nil:
		log.Info("webviewd: session closed")
	case errors.Is(err, channel.ErrHostClosed):
		log.Info("webviewd: session closed by shutdown")
	default:
		log.Warn("webviewd: session failed", "err", err)
	}
	ws.CloseNow()
}

// serveFrame composites every texture onto the framebuffer and returns it.
func (d *daemon) serveFrame(w http.ResponseWriter, r *http.Request) {
	var img *image.RGBA
	var renderErr error
	err := d.host.Invoke(r.Context(), func() {
		d.fb.Clear(color.White)
		if renderErr = d.comp.Render(d.fb); renderErr == nil {
			src := d.fb.Image()
			img = image.NewRGBA(src.Rect)
			copy(img.Pix, src.Pix)
		}
	})
	if err == nil {
		err = renderErr
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writePNG(w, img, d.logger)
}

// serveSnapshot returns the texture of one instance.
func (d *daemon) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid webview id", http.StatusBadRequest)
		return
	}
	var img *image.RGBA
	var lookupErr error
	err = d.host.Invoke(r.Context(), func() {
		var tex *webview.Texture
		tex, lookupErr = d.textures.GetTexture(webview.InstanceID(id))
		if lookupErr != nil {
			return
		}
		// The engine thread writes texture pixels with the context held.
		if lookupErr = d.gpu.MakeCurrent(); lookupErr != nil {
			return
		}
		img = tex.Image()
		d.gpu.ClearCurrent()
	})
	switch {
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(lookupErr, webview.ErrNotFound):
		http.Error(w, webview.MessageOf(lookupErr), http.StatusNotFound)
	case lookupErr != nil:
		http.Error(w, lookupErr.Error(), http.StatusInternalServerError)
	default:
		writePNG(w, img, d.logger)
	}
}

func writePNG(w http.ResponseWriter, img image.Image, logger *slog.Logger) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("webviewd: writing png failed", "err", err)
	}
}
