package pipeline

// DefaultWindowSize is the number of frames a dynamic sign is classified
// over.
const DefaultWindowSize = 30

// Window is a fixed-capacity sliding window. Appending to a full window
// evicts the oldest element.
type Window[T any] struct {
	buf     []T
	start   int
	n       int
	onEvict func(T)
}

// NewWindow creates a window holding at most size elements. Non-positive
// sizes use DefaultWindowSize. onEvict, when not nil, is called for every
// element that leaves the window through eviction or Reset.
func NewWindow[T any](size int, onEvict func(T)) *Window[T] {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window[T]{buf: make([]T, size), onEvict: onEvict}
}

// Append adds v as the newest element.
func (w *Window[T]) Append(v T) {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = v
		w.n++
		return
	}

	old := w.buf[w.start]
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
	w.evict(old)
}

// IsFull reports whether the window holds Cap elements.
func (w *Window[T]) IsFull() bool { return w.n == len(w.buf) }

// Len returns the number of elements held.
func (w *Window[T]) Len() int { return w.n }

// Cap returns the window capacity.
func (w *Window[T]) Cap() int { return len(w.buf) }

// Snapshot returns the elements oldest first. The slice is a copy; later
// appends don't change it. Elements are shared, so an element released by
// eviction must not be used through an old snapshot.
func (w *Window[T]) Snapshot() []T {
	out := make([]T, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Reset empties the window, evicting every element.
func (w *Window[T]) Reset() {
	var zero T
	for i := 0; i < w.n; i++ {
		idx := (w.start + i) % len(w.buf)
		old := w.buf[idx]
		w.buf[idx] = zero
		w.evict(old)
	}
	w.start = 0
	w.n = 0
}

func (w *Window[T]) evict(v T) {
	if w.onEvict != nil {
		w.onEvict(v)
	}
}
