package headless

import "sync"

// taskQueue is an unbounded FIFO drained by a single goroutine. Pushing
// never blocks.
type taskQueue struct {
	mu    sync.Mutex
	tasks []func()
	open  bool
	wake  chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{wake: make(chan struct{}, 1)}
}

// start makes the queue accept tasks. Tasks given here run before anything
// pushed later.
func (q *taskQueue) start(first ...func()) {
	q.mu.Lock()
	q.open = true
	q.tasks = append(first, q.tasks...)
	q.mu.Unlock()
	q.signal()
}

// push appends task. It reports false when the queue is not accepting.
func (q *taskQueue) push(task func()) bool {
	q.mu.Lock()
	if !q.open {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	q.signal()
	return true
}

// stop rejects further pushes and drops queued tasks.
func (q *taskQueue) stop() {
	q.mu.Lock()
	q.open = false
	q.tasks = nil
	q.mu.Unlock()
	q.signal()
}

// take removes and returns the queued tasks. It blocks until there is at
// least one task or the queue is stopped, in which case it returns nil.
func (q *taskQueue) take() []func() {
	for {
		q.mu.Lock()
		batch, open := q.tasks, q.open
		q.tasks = nil
		q.mu.Unlock()
		if len(batch) > 0 {
			return batch
		}
		if !open {
			return nil
		}
		<-q.wake
	}
}

// requeue puts unrun tasks back at the front.
func (q *taskQueue) requeue(rest []func()) {
	if len(rest) == 0 {
		return
	}
	q.mu.Lock()
	if q.open {
		q.tasks = append(rest, q.tasks...)
	}
	q.mu.Unlock()
}

func (q *taskQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
