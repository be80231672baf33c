// Package gesture classifies hand poses and hand paths against recorded sign
// templates.
package gesture

import (
	"cmp"
	"slices"
	"sync"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
)

// Type is the kind of sign a template describes.
type Type string

const (
	// TypeStatic is a single-frame hand pose (a letter).
	TypeStatic Type = "static"
	// TypeDynamic is a hand movement over the window (a word).
	TypeDynamic Type = "dynamic"
)

// DefaultTolerance is the template tolerance used when none is set.
const DefaultTolerance = 0.15

// Template is a trained sign.
type Template struct {
	ID        string
	Name      string
	Type      Type
	Landmarks []detector.Point3D // normalised pose, static signs
	Path      []PathPoint        // index fingertip path, dynamic signs
	Tolerance float64            // maximum distance for a match
}

// PathPoint is one point of a dynamic sign path.
type PathPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"` // milliseconds
}

// Match pairs a template with how close the input came to it.
type Match struct {
	Template *Template
	Score    float64 // 1 / (1 + Distance)
	Distance float64
}

// templateSet is a concurrency-safe list of templates of one type. The HTTP
// API reloads it while the processing loop reads it.
type templateSet struct {
	kind      Type
	mu        sync.RWMutex
	templates []*Template
}

func (s *templateSet) add(t *Template) {
	if t == nil || t.Type != s.kind {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates = append(s.templates, t)
}

func (s *templateSet) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.templates {
		if t.ID == id {
			s.templates = append(s.templates[:i:i], s.templates[i+1:]...)
			return
		}
	}
}

// replace swaps in every template of the set's type from ts.
func (s *templateSet) replace(ts []*Template) {
	kept := make([]*Template, 0, len(ts))
	for _, t := range ts {
		if t != nil && t.Type == s.kind {
			kept = append(kept, t)
		}
	}
	s.mu.Lock()
	s.templates = kept
	s.mu.Unlock()
}

func (s *templateSet) snapshot() []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templates
}

func (s *templateSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

func score(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

// rank scores every template by distance, drops those past their tolerance
// and returns the rest best first. Templates distance reports as unusable
// are skipped.
func (s *templateSet) rank(distance func(*Template) (float64, bool)) []Match {
	var matches []Match
	for _, t := range s.snapshot() {
		d, ok := distance(t)
		if !ok || d > t.Tolerance {
			continue
		}
		matches = append(matches, Match{Template: t, Score: score(d), Distance: d})
	}
	slices.SortStableFunc(matches, func(a, b Match) int { return cmp.Compare(b.Score, a.Score) })
	return matches
}

// top converts the best match into a classifier result.
func top(matches []Match) classifier.Result {
	if len(matches) == 0 {
		return classifier.Result{}
	}
	return classifier.Result{Label: matches[0].Template.Name, Confidence: matches[0].Score}
}
