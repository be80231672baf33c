package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Detector produces hand landmarks for a frame.
type Detector interface {
	// Detect returns the hands found in frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Locator decides where, if anywhere, the signing hand is in a frame.
// A nil Hand with a nil error means no hand is visible.
type Locator interface {
	Locate(frame *gocv.Mat) (*Hand, error)
}

// Hand is the result of a successful Locate. Box is nil when the whole frame
// should be treated as the region. Landmarks is nil for locators that do not
// produce them.
type Hand struct {
	Box       *BoundingBox
	Landmarks *HandLandmarks
}

// BoundingBox is a rectangle in source frame pixel coordinates.
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top
}

// Clamp limits the box to a width x height frame.
func (b BoundingBox) Clamp(width, height int) BoundingBox {
	return BoundingBox{
		Left:   clamp(b.Left, 0, width),
		Top:    clamp(b.Top, 0, height),
		Right:  clamp(b.Right, 0, width),
		Bottom: clamp(b.Bottom, 0, height),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// BoxPadding grows the landmark bounding box by this fraction per side.
	BoxPadding float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:      1,
		MinConfidence: 0.5,
		BoxPadding:    0.15,
	}
}

// LandmarkLocator locates the hand with the highest score reported by a
// Detector and boxes it.
type LandmarkLocator struct {
	detector Detector
	config   Config
}

// NewLandmarkLocator wraps d as a Locator.
func NewLandmarkLocator(d Detector, config Config) *LandmarkLocator {
	return &LandmarkLocator{detector: d, config: config}
}

// Locate implements Locator.
func (l *LandmarkLocator) Locate(frame *gocv.Mat) (*Hand, error) {
	hands, err := l.detector.Detect(frame)
	if err != nil {
		return nil, err
	}

	best := -1
	for i := range hands {
		if hands[i].Score < l.config.MinConfidence {
			continue
		}
		if best < 0 || hands[i].Score > hands[best].Score {
			best = i
		}
	}
	if best < 0 {
		return nil, nil
	}

	landmarks := hands[best]
	hand := &Hand{Landmarks: &landmarks}
	if frame != nil {
		if box, ok := landmarks.Bounds(frame.Cols(), frame.Rows(), l.config.BoxPadding); ok {
			hand.Box = &box
		}
	}
	return hand, nil
}

// Close closes the underlying detector.
func (l *LandmarkLocator) Close() error {
	return l.detector.Close()
}

// FullFrameLocator reports every frame as containing a hand that fills it.
// Useful when the camera is framed on the signer.
type FullFrameLocator struct{}

// Locate implements Locator.
func (FullFrameLocator) Locate(frame *gocv.Mat) (*Hand, error) {
	return &Hand{}, nil
}
