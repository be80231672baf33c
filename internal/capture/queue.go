package capture

import (
	"context"
	"sync/atomic"
)

// DefaultQueueSize is the frame queue capacity used when none is configured.
// Small on purpose: a stale frame is worth less than a fresh one.
const DefaultQueueSize = 10

// FrameQueue is a bounded FIFO between the capture loop and the processing
// loop. Push never blocks: when the queue is full the incoming frame is
// rejected and the producer keeps ownership of it. Pop blocks until a frame
// arrives or the context ends. One producer and one consumer may use the
// queue concurrently.
type FrameQueue struct {
	frames  chan Frame
	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// NewFrameQueue creates a queue holding at most capacity frames.
// Non-positive capacities use DefaultQueueSize.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &FrameQueue{frames: make(chan Frame, capacity)}
}

// Push enqueues f. It returns false, leaving the queued frames untouched,
// when the queue is full. On false the caller still owns f.
func (q *FrameQueue) Push(f Frame) bool {
	select {
	case q.frames <- f:
		q.pushed.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop removes the oldest frame, waiting for one if the queue is empty.
// It returns ctx.Err() when the context is done first.
func (q *FrameQueue) Pop(ctx context.Context) (Frame, error) {
	select {
	case f := <-q.frames:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// TryPop removes the oldest frame without waiting.
func (q *FrameQueue) TryPop() (Frame, bool) {
	select {
	case f := <-q.frames:
		return f, true
	default:
		return Frame{}, false
	}
}

// Drain closes and discards every queued frame and returns how many there
// were.
func (q *FrameQueue) Drain() int {
	n := 0
	for {
		f, ok := q.TryPop()
		if !ok {
			return n
		}
		f.Close()
		n++
	}
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int { return len(q.frames) }

// Cap returns the queue capacity.
func (q *FrameQueue) Cap() int { return cap(q.frames) }

// Pushed returns the number of frames accepted since creation.
func (q *FrameQueue) Pushed() uint64 { return q.pushed.Load() }

// Dropped returns the number of frames rejected because the queue was full.
func (q *FrameQueue) Dropped() uint64 { return q.dropped.Load() }
