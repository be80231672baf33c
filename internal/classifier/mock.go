package classifier

import (
	"sync"

	"github.com/ayusman/mudra/internal/capture"
)

// Mock is a scripted Static and Dynamic classifier for tests. Each call
// consumes the next queued result; once the queue is empty the last result
// repeats.
type Mock struct {
	mu           sync.Mutex
	static       []Result
	dynamic      []Result
	err          error
	staticCalls  int
	dynamicCalls int
	lastLen      int
}

// NewMock creates an empty Mock that returns zero Results.
func NewMock() *Mock {
	return &Mock{}
}

// QueueStatic appends results for ClassifyStatic.
func (m *Mock) QueueStatic(results ...Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.static = append(m.static, results...)
}

// QueueDynamic appends results for ClassifyDynamic.
func (m *Mock) QueueDynamic(results ...Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dynamic = append(m.dynamic, results...)
}

// SetError makes every call fail with err until cleared with nil.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// ClassifyStatic implements Static.
func (m *Mock) ClassifyStatic(capture.Region) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staticCalls++
	if m.err != nil {
		return Result{}, m.err
	}
	return next(&m.static), nil
}

// ClassifyDynamic implements Dynamic.
func (m *Mock) ClassifyDynamic(regions []capture.Region) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dynamicCalls++
	m.lastLen = len(regions)
	if m.err != nil {
		return Result{}, m.err
	}
	return next(&m.dynamic), nil
}

// StaticCalls returns how many times ClassifyStatic ran.
func (m *Mock) StaticCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staticCalls
}

// DynamicCalls returns how many times ClassifyDynamic ran.
func (m *Mock) DynamicCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dynamicCalls
}

// LastSequenceLen returns the length of the last sequence passed to
// ClassifyDynamic.
func (m *Mock) LastSequenceLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLen
}

func next(queue *[]Result) Result {
	q := *queue
	switch len(q) {
	case 0:
		return Result{}
	case 1:
		return q[0]
	default:
		*queue = q[1:]
		return q[0]
	}
}
