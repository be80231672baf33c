package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
)

// StaticMatcher matches single hand poses against static templates. It
// implements classifier.Static.
type StaticMatcher struct {
	set templateSet
}

// NewStaticMatcher creates an empty StaticMatcher.
func NewStaticMatcher() *StaticMatcher {
	return &StaticMatcher{set: templateSet{kind: TypeStatic}}
}

// AddTemplate registers t. Non-static templates are ignored.
func (m *StaticMatcher) AddTemplate(t *Template) { m.set.add(t) }

// RemoveTemplate drops the template with the given ID.
func (m *StaticMatcher) RemoveTemplate(id string) { m.set.remove(id) }

// SetTemplates replaces every registered template.
func (m *StaticMatcher) SetTemplates(ts []*Template) { m.set.replace(ts) }

// Len returns the number of registered templates.
func (m *StaticMatcher) Len() int { return m.set.len() }

// Match returns the templates within tolerance of hand, best first.
func (m *StaticMatcher) Match(hand *detector.HandLandmarks) []Match {
	if hand == nil {
		return nil
	}
	input := hand.Normalize().Points[:]
	return m.set.rank(func(t *Template) (float64, bool) {
		d := poseDistance(input, t.Landmarks)
		return d, !math.IsInf(d, 1)
	})
}

// ClassifyStatic labels the hand pose carried by region. A region without
// landmarks, or one that matches nothing, yields a zero-confidence result.
func (m *StaticMatcher) ClassifyStatic(region capture.Region) (classifier.Result, error) {
	if m.set.len() == 0 {
		return classifier.Result{}, classifier.ErrNoTemplates
	}
	return top(m.Match(region.Landmarks)), nil
}

// poseDistance sums the point-to-point distances of a and b over their
// common length. Either side empty gives +Inf.
func poseDistance(a, b []detector.Point3D) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	var total float64
	for i := range min(len(a), len(b)) {
		dx, dy, dz := a[i].X-b[i].X, a[i].Y-b[i].Y, a[i].Z-b[i].Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}
