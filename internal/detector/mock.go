package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector replays a fixed detection result. Safe for concurrent use.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

func NewMockDetector() *MockDetector { return &MockDetector{} }

// SetHands makes every following Detect report hands.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	m.hands = hands
	m.mu.Unlock()
}

// SetError makes every following Detect fail with err. Nil clears it.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) Detect(*gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

func (m *MockDetector) Close() error { return nil }

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(frame *gocv.Mat) (*Hand, error)

// Locate calls f.
func (f LocatorFunc) Locate(frame *gocv.Mat) (*Hand, error) {
	return f(frame)
}

// pose lays out a right hand from its wrist and the four joints of each finger,
// thumb first, base to tip. Coordinates are frame-normalized with Y growing
// downward.
func pose(wrist Point3D, fingers [5][4]Point3D) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	h.Points[Wrist] = wrist
	for f, joints := range fingers {
		copy(h.Points[1+4*f:], joints[:])
	}
	return h
}

// ThumbsUpLandmarks returns a fist with the thumb raised.
func ThumbsUpLandmarks() HandLandmarks {
	return pose(Point3D{X: 0.5, Y: 0.8}, [5][4]Point3D{
		{{X: 0.55, Y: 0.75}, {X: 0.58, Y: 0.65}, {X: 0.58, Y: 0.50}, {X: 0.58, Y: 0.35}},
		{{X: 0.55, Y: 0.70, Z: -0.02}, {X: 0.55, Y: 0.68, Z: -0.05}, {X: 0.52, Y: 0.70, Z: -0.04}, {X: 0.50, Y: 0.72, Z: -0.02}},
		{{X: 0.50, Y: 0.68, Z: -0.02}, {X: 0.50, Y: 0.66, Z: -0.05}, {X: 0.47, Y: 0.68, Z: -0.04}, {X: 0.45, Y: 0.70, Z: -0.02}},
		{{X: 0.45, Y: 0.70, Z: -0.02}, {X: 0.45, Y: 0.68, Z: -0.05}, {X: 0.42, Y: 0.70, Z: -0.04}, {X: 0.40, Y: 0.72, Z: -0.02}},
		{{X: 0.40, Y: 0.72, Z: -0.02}, {X: 0.40, Y: 0.70, Z: -0.05}, {X: 0.37, Y: 0.72, Z: -0.04}, {X: 0.35, Y: 0.74, Z: -0.02}},
	})
}

// OpenPalmLandmarks returns a flat hand with every finger extended, the
// fingerspelled letter B.
func OpenPalmLandmarks() HandLandmarks {
	return pose(Point3D{X: 0.5, Y: 0.8}, [5][4]Point3D{
		{{X: 0.55, Y: 0.75, Z: 0.02}, {X: 0.62, Y: 0.70, Z: 0.03}, {X: 0.68, Y: 0.65, Z: 0.03}, {X: 0.73, Y: 0.60, Z: 0.03}},
		{{X: 0.55, Y: 0.68}, {X: 0.57, Y: 0.55}, {X: 0.58, Y: 0.45}, {X: 0.58, Y: 0.35}},
		{{X: 0.50, Y: 0.66}, {X: 0.50, Y: 0.52}, {X: 0.50, Y: 0.40}, {X: 0.50, Y: 0.28}},
		{{X: 0.45, Y: 0.68}, {X: 0.43, Y: 0.55}, {X: 0.42, Y: 0.45}, {X: 0.42, Y: 0.35}},
		{{X: 0.40, Y: 0.70}, {X: 0.37, Y: 0.60}, {X: 0.35, Y: 0.50}, {X: 0.34, Y: 0.42}},
	})
}
