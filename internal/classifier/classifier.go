// Package classifier defines the contracts the pipeline uses to turn hand
// regions into sign labels.
package classifier

import (
	"errors"

	"github.com/ayusman/mudra/internal/capture"
)

// ErrNoTemplates is returned by template-backed classifiers with nothing
// registered.
var ErrNoTemplates = errors.New("no sign templates registered")

// Result is one classification outcome. Confidence is in [0, 1].
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Static classifies a single hand region as a letter.
type Static interface {
	ClassifyStatic(region capture.Region) (Result, error)
}

// Dynamic classifies a fixed-length, oldest-first sequence of hand regions
// as a word.
type Dynamic interface {
	ClassifyDynamic(regions []capture.Region) (Result, error)
}

// StaticFunc adapts a function to Static.
type StaticFunc func(region capture.Region) (Result, error)

// ClassifyStatic calls f.
func (f StaticFunc) ClassifyStatic(region capture.Region) (Result, error) { return f(region) }

// DynamicFunc adapts a function to Dynamic.
type DynamicFunc func(regions []capture.Region) (Result, error)

// ClassifyDynamic calls f.
func (f DynamicFunc) ClassifyDynamic(regions []capture.Region) (Result, error) { return f(regions) }
