package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/nimasrn/inquiry-desk/pkg/logger"
)

var ErrClosed = errors.New("worker manager is closed")

type WorkerHandler[T any] func(ctx context.Context, workerIndex int, job T)

// WorkerManager
// is a job manager based on go routines. Define the number of internal
// workers and start publishing jobs with Enqueue. Jobs are distributed
// among the pool. Workers run until Close is called and the buffer drains,
// or until the context given to Start is cancelled.
type WorkerManager[T any] struct {
	numberOfWorker int
	jobChannel     chan T
	do             WorkerHandler[T]
	waiter         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorkerManager[T any](bufferSize, numberOfWorkers int, do WorkerHandler[T]) *WorkerManager[T] {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &WorkerManager[T]{
		numberOfWorker: numberOfWorkers,
		jobChannel:     make(chan T, bufferSize),
		do:             do,
	}
}

func (w *WorkerManager[T]) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

// Start
// starts off the workers as many as defined
// by w.numberOfWorker. It does not block.
func (w *WorkerManager[T]) Start(ctx context.Context) {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job, ok := <-w.jobChannel:
					if !ok {
						return
					}
					w.do(ctx, index, job)
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}
}

// Enqueue
// publishes a job onto the channel, blocking while the buffer is full.
func (w *WorkerManager[T]) Enqueue(ctx context.Context, job T) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.jobChannel <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs. Workers finish what is already buffered.
func (w *WorkerManager[T]) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.jobChannel)
	logger.Debug("worker manager closed", "workers", w.numberOfWorker, "pending", len(w.jobChannel))
}

// Wait blocks until every worker has returned.
func (w *WorkerManager[T]) Wait() {
	w.waiter.Wait()
}
