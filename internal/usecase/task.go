package usecase

import (
	"context"
	"sync"
)

// Task is the pending result of an engine operation. Synchronous operations
// return a Task that is already done.
type Task[T any] struct {
	done   chan struct{}
	async  bool
	result T
	err    error
}

func newTask[T any](async bool) *Task[T] {
	return &Task[T]{done: make(chan struct{}), async: async}
}

func completedTask[T any](v T, err error) *Task[T] {
	t := newTask[T](false)
	t.complete(v, err)
	return t
}

func (t *Task[T]) complete(v T, err error) {
	t.result, t.err = v, err
	close(t.done)
}

// Done is closed when the result is available.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Async reports whether the operation was handed to the background worker.
func (t *Task[T]) Async() bool {
	return t.async
}

// Wait blocks until the task finishes or ctx is done. Giving up on the wait
// does not stop the task.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, interruptedError(ctx)
	}
}

// worker runs queued jobs one at a time in submission order.
type worker struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan func()
	wg     sync.WaitGroup
}

func newWorker(queue int) *worker {
	w := &worker{jobs: make(chan func(), queue)}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for job := range w.jobs {
			job()
		}
	}()
	return w
}

func (w *worker) submit(job func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	w.jobs <- job
	return true
}

// close stops accepting jobs and waits for queued ones to finish.
func (w *worker) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

var errEngineClosed = IOError.New("engine is closed")

func submitTask[T any](w *worker, run func() (T, error)) *Task[T] {
	t := newTask[T](true)
	if !w.submit(func() { t.complete(run()) }) {
		var zero T
		t.complete(zero, errEngineClosed)
	}
	return t
}
