package gesture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// ErrNoSamples is returned when training is asked to work from nothing.
var ErrNoSamples = errors.New("no samples provided")

// Trainer turns recorded samples into template data.
type Trainer struct{}

// NewTrainer creates a new Trainer.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// StaticSample is one recorded hand pose.
type StaticSample struct {
	Type      string             `json:"type"`
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

// DynamicSample is one recorded fingertip path.
type DynamicSample struct {
	Type      string      `json:"type"`
	Path      []PathPoint `json:"path"`
	Timestamp int64       `json:"timestamp"`
}

// Train builds a template of the given type from raw samples.
func (t *Trainer) Train(id, name string, kind Type, tolerance float64, samples []json.RawMessage) (*Template, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	tmpl := &Template{ID: id, Name: name, Type: kind, Tolerance: tolerance}

	var err error
	switch kind {
	case TypeStatic:
		tmpl.Landmarks, err = t.TrainStatic(samples)
	case TypeDynamic:
		tmpl.Path, err = t.TrainDynamic(samples)
	default:
		return nil, fmt.Errorf("unknown sign type %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

// decode parses every raw sample into T and runs check on it.
func decode[T any](samples []json.RawMessage, check func(T) error) ([]T, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	out := make([]T, len(samples))
	for i, raw := range samples {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if err := check(out[i]); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return out, nil
}

// TrainStatic averages static samples point by point. Full 21-point hands are
// normalized first so the result lines up with what StaticMatcher compares.
func (t *Trainer) TrainStatic(samples []json.RawMessage) ([]detector.Point3D, error) {
	decoded, err := decode(samples, func(s StaticSample) error {
		if len(s.Landmarks) == 0 {
			return errors.New("no landmarks")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	want := len(decoded[0].Landmarks)
	sum := make([]detector.Point3D, want)
	for i, s := range decoded {
		if len(s.Landmarks) != want {
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(s.Landmarks), want)
		}
		for j, p := range normalizePose(s.Landmarks) {
			sum[j].X += p.X
			sum[j].Y += p.Y
			sum[j].Z += p.Z
		}
	}

	n := float64(len(decoded))
	for j := range sum {
		sum[j] = detector.Point3D{X: sum[j].X / n, Y: sum[j].Y / n, Z: sum[j].Z / n}
	}
	return sum, nil
}

func normalizePose(points []detector.Point3D) []detector.Point3D {
	if len(points) != detector.NumLandmarks {
		return points
	}
	var hand detector.HandLandmarks
	copy(hand.Points[:], points)
	return hand.Normalize().Points[:]
}

// TrainDynamic averages path samples after resampling each to the length of
// the first. Timestamps come from the first sample.
func (t *Trainer) TrainDynamic(samples []json.RawMessage) ([]PathPoint, error) {
	decoded, err := decode(samples, func(s DynamicSample) error {
		if len(s.Path) < 2 {
			return fmt.Errorf("path has %d points, need at least 2", len(s.Path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	target := len(decoded[0].Path)
	out := make([]PathPoint, target)
	copy(out, decoded[0].Path)
	for _, s := range decoded[1:] {
		for j, p := range resamplePath(s.Path, target) {
			out[j].X += p.X
			out[j].Y += p.Y
		}
	}

	n := float64(len(decoded))
	for j := range out {
		out[j].X /= n
		out[j].Y /= n
	}
	return out, nil
}

// resamplePath linearly interpolates path to exactly n points. Paths of fewer
// than two points, or n below two, collapse to the first point.
func resamplePath(path []PathPoint, n int) []PathPoint {
	switch {
	case len(path) == 0:
		return nil
	case len(path) == 1 || n <= 1:
		return []PathPoint{path[0]}
	}

	last := len(path) - 1
	out := make([]PathPoint, n)
	for i := range out {
		pos := float64(i*last) / float64(n-1)
		k := min(int(pos), last-1)
		frac := pos - float64(k)
		a, b := path[k], path[k+1]
		out[i] = PathPoint{
			X:         a.X + frac*(b.X-a.X),
			Y:         a.Y + frac*(b.Y-a.Y),
			Timestamp: a.Timestamp + int64(frac*float64(b.Timestamp-a.Timestamp)),
		}
	}
	return out
}
