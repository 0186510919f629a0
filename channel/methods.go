package channel

import (
	"github.com/gogpu/webview"
	"github.com/gogpu/webview/engine"
)

// method decodes its arguments, starts the operation and arranges exactly
// one reply through r. A returned error is sent as the reply instead.
type method func(ch *Channel, a *decoder, r responder) error

var methods = map[string]method{
	"sendMouseMove":        sendMouseMove,
	"sendMouseWheel":       sendMouseWheel,
	"sendMouseClick":       sendMouseClick,
	"sendKey":              sendKey,
	"resize":               resize,
	"loadUrl":              loadURL,
	"loadRequest":          loadRequest,
	"currentUrl":           currentURL,
	"canGoBack":            canGoBack,
	"canGoForward":         canGoForward,
	"goBack":               goBack,
	"goForward":            goForward,
	"reload":               reload,
	"getTitle":             getTitle,
	"requestRunJavascript": runJavascript,
	"setCookie":            setCookie,
	"clearCookies":         clearCookies,
	"createBrowser":        createBrowser,
	"disposeBrowser":       disposeBrowser,
	"startCef":             startEngine,
	"shutdownCef":          shutdownEngine,
}

func sendMouseMove(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	x, y := a.int32("x"), a.int32("y")
	mods := engine.Modifiers(a.uint32("modifiers"))
	leave := a.bool("mouseLeave")
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.SendMouseMove(id, x, y, mods, leave, void(r))
}

func sendMouseWheel(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	x, y := a.int32("x"), a.int32("y")
	dx, dy := a.int32("deltaX"), a.int32("deltaY")
	mods := engine.Modifiers(a.uint32("modifiers"))
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.SendMouseWheel(id, x, y, mods, dx, dy, void(r))
}

func sendMouseClick(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	x, y := a.int32("x"), a.int32("y")
	mods := engine.Modifiers(a.uint32("modifiers"))
	button := engine.MouseButton(a.int32("mouseButtonType"))
	up := a.bool("mouseUp")
	clicks := a.int32("clickCount")
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.SendMouseClick(id, x, y, mods, button, up, clicks, void(r))
}

func sendKey(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	ev := webview.KeyEvent{
		Type:                engine.KeyEventType(a.int32("keyEventType")),
		Modifiers:           engine.Modifiers(a.uint32("modifiers")),
		WindowsKeyCode:      a.int32("windowsKeyCode"),
		NativeKeyCode:       a.int32("nativeKeyCode"),
		IsSystemKey:         a.bool("isSystemKey"),
		Character:           a.char16("character"),
		UnmodifiedCharacter: a.char16("unmodifiedCharacter"),
	}
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.SendKey(id, ev, void(r))
}

func resize(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	w, h := a.int32("width"), a.int32("height")
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.Resize(id, w, h, void(r))
}

func loadURL(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	url := a.string("url")
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.LoadURL(id, url, void(r))
}

func loadRequest(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	req := webview.Request{
		URL:      a.string("uri"),
		Method:   a.string("method"),
		Header:   a.header("headers"),
		PostData: a.bytes("body"),
	}
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.LoadRequest(id, req, void(r))
}

func currentURL(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.CurrentURL(id, value[string](r))
}

func canGoBack(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.CanGoBack(id, value[bool](r))
}

func canGoForward(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.CanGoForward(id, value[bool](r))
}

func goBack(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.GoBack(id, void(r))
}

func goForward(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.GoForward(id, void(r))
}

func reload(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.Reload(id, void(r))
}

func getTitle(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.GetTitle(id, value[string](r))
}

// runJavascript replies once the script was sent; the outcome arrives as a
// javascriptResult event carrying the same jsRunId.
func runJavascript(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	runID := a.int32("jsRunId")
	script := a.string("javascript")
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.RunScript(id, runID, script, void(r))
}

func setCookie(ch *Channel, a *decoder, r responder) error {
	ck := webview.Cookie{
		Domain: a.string("domain"),
		Path:   a.string("path"),
		Name:   a.string("name"),
		Value:  a.string("value"),
	}
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.SetCookie(ck, void(r))
}

// clearCookies takes no arguments.
func clearCookies(ch *Channel, _ *decoder, r responder) error {
	return ch.ctrl.ClearCookies(value[bool](r))
}

// createBrowser allocates the instance's texture before asking the engine
// for a browser, and replies with the texture id. The texture is released
// again if the browser cannot be created.
func createBrowser(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	url := a.string("initialUrl")
	bg := a.bytes("backgroundColor")
	w, h := a.int32("initialWidth"), a.int32("initialHeight")
	if a.err != nil {
		return a.err
	}

	tex, err := ch.textures.CreateTexture(id, w, h)
	if err != nil {
		return webview.WrapError(webview.CodePluginError, err, "TextureManager.CreateTexture failed")
	}
	params := webview.CreationParams{
		URL:             url,
		BackgroundColor: bg,
		Width:           w,
		Height:          h,
		Target:          tex,
		Sink:            ch.sink,
	}
	err = ch.ctrl.CreateInstance(id, params, func(res webview.Result[struct{}]) {
		if res.Err != nil {
			ch.releaseTexture(id)
			r.fail(res.Err)
			return
		}
		r.ok(tex.ID())
	})
	if err != nil {
		ch.releaseTexture(id)
	}
	return err
}

// disposeBrowser closes the instance, then unregisters and destroys its
// texture.
func disposeBrowser(ch *Channel, a *decoder, r responder) error {
	id := a.instance()
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.CloseInstance(id, func(res webview.Result[struct{}]) {
		if res.Err != nil {
			r.fail(res.Err)
			return
		}
		if err := ch.textures.DestroyTexture(id, false); err != nil {
			r.fail(webview.WrapError(webview.CodePluginError, err, "TextureManager.DestroyTexture failed"))
			return
		}
		r.ok(nil)
	})
}

func startEngine(ch *Channel, a *decoder, r responder) error {
	args := a.strings("commandLineArgs")
	if a.err != nil {
		return a.err
	}
	return ch.ctrl.StartEngine(args, void(r))
}

// shutdownEngine blocks the host thread until the engine has stopped, then
// destroys every texture. Texture failures are logged only.
func shutdownEngine(ch *Channel, _ *decoder, r responder) error {
	if err := ch.ctrl.ShutdownEngine(); err != nil {
		return err
	}
	if err := ch.textures.DestroyAll(false); err != nil {
		ch.logger().Warn("channel: destroying textures after shutdown failed", "err", err)
	}
	r.ok(nil)
	return nil
}

func (ch *Channel) releaseTexture(id webview.InstanceID) {
	if err := ch.textures.DestroyTexture(id, false); err != nil {
		ch.logger().Warn("channel: releasing texture failed", "id", id, "err", err)
	}
}
