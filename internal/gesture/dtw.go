package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
)

// DTWDistance is the dynamic time warping cost of aligning a with b, divided
// by the longer length. Empty input gives +Inf.
func DTWDistance(a, b []PathPoint) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}

	// Two rows of the (len(a)+1) x (len(b)+1) cost matrix.
	prev := make([]float64, len(b)+1)
	curr := make([]float64, len(b)+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := range a {
		curr[0] = math.Inf(1)
		for j := range b {
			step := math.Hypot(a[i].X-b[j].X, a[i].Y-b[j].Y)
			curr[j+1] = step + min(prev[j+1], curr[j], prev[j])
		}
		prev, curr = curr, prev
	}

	return prev[len(b)] / float64(max(len(a), len(b)))
}

// DynamicMatcher matches hand paths against dynamic templates with DTW. It
// implements classifier.Dynamic.
type DynamicMatcher struct {
	set templateSet
}

// NewDynamicMatcher creates an empty DynamicMatcher.
func NewDynamicMatcher() *DynamicMatcher {
	return &DynamicMatcher{set: templateSet{kind: TypeDynamic}}
}

// AddTemplate registers t. Non-dynamic templates are ignored.
func (m *DynamicMatcher) AddTemplate(t *Template) { m.set.add(t) }

// RemoveTemplate drops the template with the given ID.
func (m *DynamicMatcher) RemoveTemplate(id string) { m.set.remove(id) }

// SetTemplates replaces every registered template.
func (m *DynamicMatcher) SetTemplates(ts []*Template) { m.set.replace(ts) }

// Len returns the number of registered templates.
func (m *DynamicMatcher) Len() int { return m.set.len() }

// Match returns the templates within tolerance of path, best first.
func (m *DynamicMatcher) Match(path []PathPoint) []Match {
	input := normalizePath(path)
	if len(input) == 0 {
		return nil
	}
	return m.set.rank(func(t *Template) (float64, bool) {
		d := DTWDistance(input, normalizePath(t.Path))
		return d, !math.IsInf(d, 1)
	})
}

// ClassifyDynamic labels the movement of the index fingertip across regions.
// Regions without landmarks are skipped; fewer than two usable points yield a
// zero-confidence result.
func (m *DynamicMatcher) ClassifyDynamic(regions []capture.Region) (classifier.Result, error) {
	if m.set.len() == 0 {
		return classifier.Result{}, classifier.ErrNoTemplates
	}
	path := PathFromRegions(regions)
	if len(path) < 2 {
		return classifier.Result{}, nil
	}
	return top(m.Match(path)), nil
}

// PathFromRegions traces the index fingertip through regions, oldest first.
func PathFromRegions(regions []capture.Region) []PathPoint {
	path := make([]PathPoint, 0, len(regions))
	for _, r := range regions {
		if r.Landmarks == nil {
			continue
		}
		tip := r.Landmarks.Points[detector.IndexTip]
		path = append(path, PathPoint{
			X:         tip.X,
			Y:         tip.Y,
			Timestamp: r.Timestamp.UnixMilli(),
		})
	}
	return path
}

// normalizePath rescales each axis of path onto [0, 1], keeping timestamps.
// A flat axis maps to 0.
func normalizePath(path []PathPoint) []PathPoint {
	if len(path) == 0 {
		return nil
	}

	lo, hi := path[0], path[0]
	for _, p := range path[1:] {
		lo.X, hi.X = min(lo.X, p.X), max(hi.X, p.X)
		lo.Y, hi.Y = min(lo.Y, p.Y), max(hi.Y, p.Y)
	}
	unit := func(v, lo, hi float64) float64 {
		if hi == lo {
			return 0
		}
		return (v - lo) / (hi - lo)
	}

	out := make([]PathPoint, len(path))
	for i, p := range path {
		out[i] = PathPoint{X: unit(p.X, lo.X, hi.X), Y: unit(p.Y, lo.Y, hi.Y), Timestamp: p.Timestamp}
	}
	return out
}
