package webview

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// HostLoop is the host thread's task queue. Any goroutine may Post; the
// host drains the queue from its own event loop, either by calling Run or
// by calling Drain whenever Ready fires.
//
// The queue is unbounded. Posting never blocks, which keeps the engine
// thread free to finish teardown while the host is blocked in
// Controller.ShutdownEngine.
type HostLoop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	ready  chan struct{}
}

// NewHostLoop returns an empty host loop.
func NewHostLoop() *HostLoop {
	return &HostLoop{ready: make(chan struct{}, 1)}
}

// Post appends task to the queue. It reports false after Close.
func (l *HostLoop) Post(task func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready is signalled after Post. A host with its own event loop selects on
// it and calls Drain.
func (l *HostLoop) Ready() <-chan struct{} {
	return l.ready
}

// Drain runs queued tasks on the calling goroutine until the queue is
// empty, including tasks posted by the tasks themselves. It returns the
// number of tasks run.
func (l *HostLoop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, task := range batch {
			task()
			n++
		}
	}
}

// Pending returns the number of queued tasks.
func (l *HostLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run makes the calling goroutine the host thread: it locks the OS thread
// and drains the queue until ctx is done or Close is called. Tasks still
// queued at Close are run before Run returns.
func (l *HostLoop) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.ready:
			l.Drain()
			if l.isClosed() {
				l.Drain()
				return ErrHostLoopClosed
			}
		}
	}
}

// Invoke posts fn and waits for it to run on the host thread.
func (l *HostLoop) Invoke(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrHostLoopClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and wakes Run.
func (l *HostLoop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *HostLoop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// PendingReply is a single-use completion token for an asynchronous
// operation. It can be completed from any goroutine; the callback always
// runs on the host thread.
type PendingReply[T any] struct {
	host *HostLoop
	cb   Callback[T]
	done atomic.Bool
}

// NewReply returns a reply that delivers to cb through host. A nil cb is
// allowed; the reply is then only tracked for double completion.
func NewReply[T any](host *HostLoop, cb Callback[T]) *PendingReply[T] {
	return &PendingReply[T]{host: host, cb: cb}
}

// Resolve completes the reply with v. It reports false if the reply was
// already completed.
func (r *PendingReply[T]) Resolve(v T) bool {
	return r.complete(Ok(v))
}

// Reject completes the reply with err.
func (r *PendingReply[T]) Reject(err error) bool {
	return r.complete(Fail[T](err))
}

// Done reports whether the reply has been completed.
func (r *PendingReply[T]) Done() bool {
	return r.done.Load()
}

func (r *PendingReply[T]) complete(res Result[T]) bool {
	if !r.done.CompareAndSwap(false, true) {
		Logger().Warn("webview: reply already completed", "err", res.Err)
		return false
	}
	if r.cb == nil {
		return true
	}
	cb := r.cb
	if !r.host.Post(func() { cb(res) }) {
		Logger().Warn("webview: host loop closed, reply dropped", "err", res.Err)
	}
	return true
}
