package channel

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/gogpu/webview"
	"github.com/gogpu/webview/engine"
)

// CodeNotImplemented is the error code for calls to unknown methods.
const CodeNotImplemented webview.Code = "Not Implemented"

var (
	// ErrMalformedCall is returned by Handle for frames that are not a
	// call object with a numeric id and a method name. No reply is sent.
	ErrMalformedCall = errors.New("channel: malformed call")

	// ErrHostClosed is returned when the host loop no longer accepts tasks.
	ErrHostClosed = errors.New("channel: host loop closed")
)

// Sender delivers encoded frames to one peer. Send is called on the host
// thread and must not block.
type Sender interface {
	Send(frame []byte) error
}

// Channel exposes a Controller and a TextureManager as named method calls
// with JSON arguments, and forwards controller events to attached peers.
//
// Handle and Close run on the host thread. Post and Attach may be called
// from any goroutine.
type Channel struct {
	ctrl     *webview.Controller
	host     *webview.HostLoop
	textures *webview.TextureManager
	sink     webview.PaintSink
	opts     options

	mu    sync.Mutex
	peers map[Sender]struct{}
}

var _ webview.Listener = (*Channel)(nil)

// New returns a channel driving eng. textures allocates one texture per
// instance; sink brackets every frame painted into those textures, usually
// a *webview.FramePresenter over the same TextureManager.
func New(eng engine.Engine, host *webview.HostLoop, textures *webview.TextureManager, sink webview.PaintSink, opts ...Option) *Channel {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ch := &Channel{
		host:     host,
		textures: textures,
		sink:     sink,
		opts:     o,
		peers:    make(map[Sender]struct{}),
	}
	ctrlOpts := append(o.ctrlOpts[:len(o.ctrlOpts):len(o.ctrlOpts)], webview.WithListener(ch))
	if o.logger != nil {
		ctrlOpts = append(ctrlOpts, webview.WithLogger(o.logger))
	}
	ch.ctrl = webview.NewController(eng, host, ctrlOpts...)
	return ch
}

func (ch *Channel) logger() *slog.Logger {
	if ch.opts.logger != nil {
		return ch.opts.logger
	}
	return webview.Logger()
}

// Controller returns the controller behind the channel.
func (ch *Channel) Controller() *webview.Controller {
	return ch.ctrl
}

// Attach adds s to the peers receiving events. The returned func detaches
// it.
func (ch *Channel) Attach(s Sender) (detach func()) {
	ch.mu.Lock()
	ch.peers[s] = struct{}{}
	ch.mu.Unlock()
	return func() {
		ch.mu.Lock()
		delete(ch.peers, s)
		ch.mu.Unlock()
	}
}

// Post queues a call frame for Handle on the host thread. It reports false
// when the host loop is closed.
func (ch *Channel) Post(call []byte, from Sender) bool {
	return ch.host.Post(func() {
		if err := ch.Handle(call, from); err != nil {
			ch.logger().Warn("channel: dropped call", "err", err)
		}
	})
}

// Handle decodes and runs one call. The reply, sent to from, may be
// immediate or arrive after a later HostLoop drain. Handle returns an error
// only for frames it cannot reply to.
func (ch *Channel) Handle(call []byte, from Sender) error {
	if !gjson.ValidBytes(call) {
		return fmt.Errorf("%w: invalid JSON", ErrMalformedCall)
	}
	root := gjson.ParseBytes(call)
	if !root.IsObject() {
		return fmt.Errorf("%w: not an object", ErrMalformedCall)
	}
	id, ok := parseInt(root.Get("id"))
	if !ok {
		return fmt.Errorf("%w: id must be an integer", ErrMalformedCall)
	}
	name := root.Get("method")
	if name.Type != gjson.String {
		return fmt.Errorf("%w: method must be a string", ErrMalformedCall)
	}

	r := responder{ch: ch, to: from, id: id, method: name.Str}
	m, ok := methods[name.Str]
	if !ok {
		r.fail(webview.NewError(CodeNotImplemented, "unknown method %q", name.Str))
		return nil
	}
	ch.logger().Debug("channel: call", "id", id, "method", name.Str)
	if err := m(ch, newDecoder(root.Get("args")), r); err != nil {
		r.fail(err)
	}
	return nil
}

// Close tears the channel down. It shuts the engine down if it was started
// and destroys every texture without unregistering it, since the host has
// dropped its registrations by the time the facade goes away.
func (ch *Channel) Close() error {
	var errs []error
	if err := ch.ctrl.ShutdownEngine(); err != nil && !errors.Is(err, webview.ErrNotStarted) {
		errs = append(errs, err)
	}
	if err := ch.textures.DestroyAll(true); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (ch *Channel) send(to Sender, b []byte, err error) {
	if err != nil {
		ch.logger().Error("channel: encoding failed", "err", err)
		return
	}
	if to == nil {
		return
	}
	if err := to.Send(b); err != nil {
		ch.logger().Warn("channel: send failed", "err", err)
	}
}

func (ch *Channel) broadcast(f *frame) {
	b, err := f.bytes()
	if err != nil {
		ch.logger().Error("channel: encoding failed", "err", err)
		return
	}
	ch.mu.Lock()
	peers := make([]Sender, 0, len(ch.peers))
	for p := range ch.peers {
		peers = append(peers, p)
	}
	ch.mu.Unlock()

	for _, p := range peers {
		if err := p.Send(b); err != nil {
			ch.logger().Warn("channel: event not delivered", "err", err)
		}
	}
}

func (ch *Channel) OnPageStarted(id webview.InstanceID, url string) {
	ch.broadcast(eventFrame("onPageStarted", id).set("args.url", url))
}

func (ch *Channel) OnPageFinished(id webview.InstanceID, url string) {
	ch.broadcast(eventFrame("onPageFinished", id).set("args.url", url))
}

func (ch *Channel) OnProgress(id webview.InstanceID, progress int) {
	ch.broadcast(eventFrame("onProgress", id).set("args.progress", progress))
}

func (ch *Channel) OnWebResourceError(id webview.InstanceID, e webview.WebResourceError) {
	ch.broadcast(eventFrame("onWebResourceError", id).
		set("args.errorCode", e.Code).
		set("args.description", e.Description).
		set("args.failingUrl", e.FailingURL))
}

func (ch *Channel) OnScriptResult(id webview.InstanceID, res webview.ScriptResult) {
	ch.broadcast(eventFrame("javascriptResult", id).
		set("args.jsRunId", res.RunID).
		set("args.wasExecuted", res.WasExecuted).
		set("args.isException", res.IsException).
		set("args.result", res.Result).
		set("args.isUndefined", res.IsUndefined))
}

// responder sends the single reply to one call.
type responder struct {
	ch     *Channel
	to     Sender
	id     int64
	method string
}

func (r responder) ok(v any) {
	b, err := resultFrame(r.id, v)
	r.ch.send(r.to, b, err)
}

func (r responder) fail(err error) {
	r.ch.logger().Debug("channel: call failed", "id", r.id, "method", r.method, "err", err)
	b, encErr := errorFrame(r.id, err)
	r.ch.send(r.to, b, encErr)
}

// void adapts r to a callback replying null on success.
func void(r responder) webview.Callback[struct{}] {
	return func(res webview.Result[struct{}]) {
		if res.Err != nil {
			r.fail(res.Err)
			return
		}
		r.ok(nil)
	}
}

// value adapts r to a callback replying with the result value.
func value[T any](r responder) webview.Callback[T] {
	return func(res webview.Result[T]) {
		if res.Err != nil {
			r.fail(res.Err)
			return
		}
		r.ok(res.Value)
	}
}
