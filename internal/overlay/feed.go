package overlay

import (
	"context"
	"sync"
)

// Feed holds the most recent annotated JPEG. One writer sets frames; any
// number of stream clients wait for the next one.
type Feed struct {
	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	changed chan struct{}
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{changed: make(chan struct{})}
}

// Set stores jpeg as the latest frame and wakes every waiter. Feed keeps the
// slice; callers must not modify it afterwards.
func (f *Feed) Set(jpeg []byte) {
	f.mu.Lock()
	f.jpeg = jpeg
	f.seq++
	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()
}

// Latest returns the current frame and its sequence number. seq is 0 before
// the first Set.
func (f *Feed) Latest() (jpeg []byte, seq uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jpeg, f.seq
}

// Next blocks until a frame newer than after is available or ctx is done.
func (f *Feed) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		f.mu.Lock()
		if f.seq > after {
			jpeg, seq := f.jpeg, f.seq
			f.mu.Unlock()
			return jpeg, seq, nil
		}
		changed := f.changed
		f.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, after, ctx.Err()
		}
	}
}
