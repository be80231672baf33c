package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind says which classifier produced a Record.
type Kind int

const (
	KindNone Kind = iota
	KindStatic
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	default:
		return "none"
	}
}

// NoSign is the label of the initial record.
const NoSign = "No sign detected"

// Record is one published prediction. Records are immutable once published.
type Record struct {
	Kind       Kind
	Label      string
	Confidence float64
	ProducedAt time.Time
}

// Snapshot is the reader view of a Record. Kind is nil before the first
// prediction.
type Snapshot struct {
	Kind       *string   `json:"kind"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	ProducedAt time.Time `json:"-"`
}

// Snapshot converts r to its reader view.
func (r Record) Snapshot() Snapshot {
	s := Snapshot{Text: r.Label, Confidence: r.Confidence, ProducedAt: r.ProducedAt}
	if r.Kind != KindNone {
		kind := r.Kind.String()
		s.Kind = &kind
	}
	return s
}

// State holds the most recent Record. One writer publishes; any number of
// readers may read concurrently and always see a whole record.
type State struct {
	current atomic.Pointer[Record]

	mu     sync.Mutex
	subs   map[int]chan Record
	nextID int
}

// NewState creates a State holding the "No sign detected" record.
func NewState() *State {
	s := &State{subs: make(map[int]chan Record)}
	s.current.Store(&Record{Kind: KindNone, Label: NoSign})
	return s
}

// Publish replaces the current record and notifies subscribers. A subscriber
// whose buffer is full misses the record; the writer never blocks.
func (s *State) Publish(r Record) {
	rec := r
	s.current.Store(&rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Current returns the current record.
func (s *State) Current() Record {
	return *s.current.Load()
}

// Snapshot returns the reader view of the current record.
func (s *State) Snapshot() Snapshot {
	return s.Current().Snapshot()
}

// Subscribe returns a channel receiving every record published from now on
// and a function that unsubscribes and closes the channel.
func (s *State) Subscribe(buffer int) (<-chan Record, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Record, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}
