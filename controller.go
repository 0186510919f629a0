package webview

import (
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/gogpu/webview/engine"
)

// Controller coordinates engine startup and shutdown and owns the registry
// of live browser instances.
//
// Public methods are called from the host thread. Their work runs on the
// engine thread, and their callbacks are delivered back on the host thread
// through the HostLoop. Only StartEngine's AlreadyStarted check and
// ShutdownEngine block or fail synchronously; every other method returns an
// error only when the task could not be posted.
//
// A Controller is the process-wide context for one engine. Create it once
// and pass it to whatever needs it.
type Controller struct {
	eng  engine.Engine
	host *HostLoop
	opts controllerOptions

	// Host thread only.
	startCalled  bool
	shutdownDone bool
	engineDone   chan struct{}

	// Engine thread only.
	instances       map[InstanceID]*instanceHandler
	creating        map[InstanceID]*instanceHandler
	startReply      *PendingReply[struct{}]
	teardownPending bool

	state atomic.Int32
}

// NewController returns a controller driving eng. Callbacks and events are
// delivered through host.
func NewController(eng engine.Engine, host *HostLoop, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller{
		eng:       eng,
		host:      host,
		opts:      o,
		instances: make(map[InstanceID]*instanceHandler),
		creating:  make(map[InstanceID]*instanceHandler),
	}
}

func (c *Controller) logger() *slog.Logger {
	if c.opts.logger != nil {
		return c.opts.logger
	}
	return Logger()
}

// State returns a snapshot of the engine state.
func (c *Controller) State() EngineState {
	return EngineState(c.state.Load())
}

// setState advances the engine state. Backward transitions are refused.
func (c *Controller) setState(next EngineState) bool {
	for {
		cur := c.state.Load()
		if EngineState(cur) >= next {
			c.logger().Warn("webview: refusing engine state transition",
				"from", EngineState(cur), "to", next)
			return false
		}
		if c.state.CompareAndSwap(cur, int32(next)) {
			c.logger().Info("webview: engine state", "from", EngineState(cur), "to", next)
			return true
		}
	}
}

// StartEngine spawns the engine thread. It may be called once; later calls
// fail with CodeAlreadyStarted. done runs on the host thread once the
// engine has finished initializing, or with an error if initialization
// failed.
func (c *Controller) StartEngine(args []string, done Callback[struct{}]) error {
	if c.startCalled {
		return NewError(CodeAlreadyStarted, "StartEngine has already been called")
	}
	c.startCalled = true
	c.startReply = NewReply(c.host, done)
	c.engineDone = make(chan struct{})
	c.setState(EngineInitializing)

	settings := engine.Settings{
		Args:                slices.Clone(args),
		WindowlessRendering: true,
		UserAgent:           c.opts.userAgent,
	}
	go c.runEngine(settings)
	return nil
}

func (c *Controller) runEngine(settings engine.Settings) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.engineDone)

	if err := c.eng.Initialize(settings, engineApp{c}); err != nil {
		c.logger().Error("webview: engine initialization failed", "err", err)
		c.setState(EngineShutdown)
		c.startReply.Reject(WrapError(CodeRuntimeError, err, "engine initialization failed"))
		return
	}

	c.eng.RunMessageLoop()
	c.eng.Shutdown()
	c.setState(EngineShutdown)
	c.logger().Info("webview: engine thread exited")
}

// engineApp adapts the controller to engine.App without exporting the
// callback on Controller.
type engineApp struct{ c *Controller }

func (a engineApp) OnContextInitialized() {
	c := a.c
	c.setState(EngineInitialized)
	c.startReply.Resolve(struct{}{})
	if c.teardownPending {
		c.teardownPending = false
		c.closeAllAndQuit()
	}
}

// ShutdownEngine closes every instance, stops the engine and blocks until
// the engine thread has exited. Calling it again afterwards is a no-op.
//
// It must not be called while holding a lock that engine callbacks need.
func (c *Controller) ShutdownEngine() error {
	if !c.startCalled {
		return NewError(CodeNotStarted, "StartEngine has not been called")
	}
	if c.shutdownDone {
		c.logger().Warn("webview: ShutdownEngine has already completed")
		return nil
	}
	if !c.eng.PostTask(c.closeAllAndQuit) {
		return NewError(CodePostFailed, "failed to post the shutdown task to the engine thread")
	}

	<-c.engineDone
	c.shutdownDone = true
	return nil
}

// closeAllAndQuit runs on the engine thread.
func (c *Controller) closeAllAndQuit() {
	switch st := c.State(); st {
	case EngineInitialized:
	case EngineInitializing:
		c.logger().Info("webview: shutdown requested during initialization, deferring")
		c.teardownPending = true
		return
	default:
		c.logger().Warn("webview: shutdown ignored", "state", st)
		return
	}

	c.setState(EngineShuttingDown)
	if len(c.instances) == 0 && len(c.creating) == 0 {
		c.eng.QuitMessageLoop()
		return
	}

	// Closing mutates the registry, so iterate over a snapshot.
	ids := make([]InstanceID, 0, len(c.instances))
	for id := range c.instances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		c.instances[id].close(nil)
	}
}

// onInstanceCreated runs on the engine thread at after-created.
func (c *Controller) onInstanceCreated(h *instanceHandler) {
	delete(c.creating, h.id)
	c.instances[h.id] = h
	c.logger().Info("webview: instance created", "id", h.id)

	if c.State() == EngineShuttingDown {
		h.close(nil)
	}
}

// onInstanceClosed runs on the engine thread at before-close.
func (c *Controller) onInstanceClosed(h *instanceHandler) {
	delete(c.instances, h.id)
	delete(c.creating, h.id)
	c.logger().Info("webview: instance closed", "id", h.id)

	if c.State() == EngineShuttingDown && len(c.instances) == 0 && len(c.creating) == 0 {
		c.eng.QuitMessageLoop()
	}
}

// post queues task on the engine thread.
func (c *Controller) post(task func()) error {
	if !c.eng.PostTask(task) {
		return NewError(CodePostFailed, "failed to post a task to the engine thread")
	}
	return nil
}

// emit delivers an event to the listener on the host thread.
func (c *Controller) emit(fn func(Listener)) {
	l := c.opts.listener
	if !c.host.Post(func() { fn(l) }) {
		c.logger().Debug("webview: host loop closed, event dropped")
	}
}

// CreateInstance creates a browser instance. The instance is registered
// once the engine reports it created, not when this call returns; done runs
// when the instance becomes ready.
func (c *Controller) CreateInstance(id InstanceID, params CreationParams, done Callback[struct{}]) error {
	reply := NewReply(c.host, done)
	return c.post(func() { c.createInstance(id, params, reply) })
}

func (c *Controller) createInstance(id InstanceID, params CreationParams, reply *PendingReply[struct{}]) {
	if st := c.State(); st != EngineInitialized {
		reply.Reject(NewError(CodeRuntimeError, "cannot create a browser while the engine is %s", st))
		return
	}
	if _, ok := c.instances[id]; ok {
		reply.Reject(NewError(CodeAlreadyExists, "webview id %d is already in use", id))
		return
	}
	if _, ok := c.creating[id]; ok {
		reply.Reject(NewError(CodeAlreadyExists, "webview id %d is already being created", id))
		return
	}
	if params.Width <= 0 || params.Height <= 0 {
		reply.Reject(NewError(CodeBadArguments, "width and height must be greater than 0."))
		return
	}
	bg, err := params.backgroundColor()
	if err != nil {
		reply.Reject(err)
		return
	}
	url := params.URL
	if url == "" {
		url = DefaultURL
	}

	h := newInstanceHandler(c, id, params, reply)
	c.creating[id] = h

	settings := engine.BrowserSettings{FrameRate: c.opts.frameRate, BackgroundColor: bg}
	if !c.eng.CreateBrowser(engine.WindowInfo{Windowless: true}, h, url, settings) {
		delete(c.creating, id)
		reply.Reject(NewError(CodeRuntimeError, "CreateBrowser failed for webview id %d", id))
	}
}

// CloseInstance requests the instance to close. done runs once the engine
// has released the browser.
func (c *Controller) CloseInstance(id InstanceID, done Callback[struct{}]) error {
	reply := NewReply(c.host, done)
	return c.post(func() {
		h, ok := c.instances[id]
		if !ok {
			reply.Reject(errInvalidInstance())
			return
		}
		h.close(reply)
	})
}

// dispatch runs op on the engine thread against the instance for id.
func dispatch[T any](c *Controller, id InstanceID, cb Callback[T], op func(h *instanceHandler) (T, error)) error {
	reply := NewReply(c.host, cb)
	return c.post(func() {
		h, ok := c.instances[id]
		if !ok || h.browser == nil {
			reply.Reject(errInvalidInstance())
			return
		}
		v, err := op(h)
		if err != nil {
			reply.Reject(err)
			return
		}
		reply.Resolve(v)
	})
}
