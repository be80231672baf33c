package pipeline

// DefaultSmootherSize is the number of recent static labels voted over.
const DefaultSmootherSize = 5

// Smoother stabilises static predictions with a majority vote over the last
// few accepted labels.
type Smoother struct {
	labels *Window[string]
}

// NewSmoother creates a Smoother over the last size labels. Non-positive
// sizes use DefaultSmootherSize.
func NewSmoother(size int) *Smoother {
	if size <= 0 {
		size = DefaultSmootherSize
	}
	return &Smoother{labels: NewWindow[string](size, nil)}
}

// Observe records label and returns the most frequent label among the
// recent ones. Ties go to the label seen most recently.
func (s *Smoother) Observe(label string) string {
	s.labels.Append(label)
	recent := s.labels.Snapshot()

	counts := make(map[string]int, len(recent))
	best := 0
	for _, l := range recent {
		counts[l]++
		best = max(best, counts[l])
	}

	for i := len(recent) - 1; i >= 0; i-- {
		if counts[recent[i]] == best {
			return recent[i]
		}
	}
	return label
}

// Len returns the number of labels held.
func (s *Smoother) Len() int { return s.labels.Len() }

// Reset forgets every label.
func (s *Smoother) Reset() { s.labels.Reset() }
