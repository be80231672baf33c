package capture

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// Frame is a captured image and the time it was read. A Frame owns its Mat:
// whoever holds it last must call Close.
type Frame struct {
	Mat       gocv.Mat
	Timestamp time.Time
}

// Close releases the frame's image memory.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// Clone returns an independent copy of the frame.
func (f *Frame) Clone() Frame {
	return Frame{Mat: f.Mat.Clone(), Timestamp: f.Timestamp}
}

// Region is the part of a Frame believed to contain the signing hand. Box is
// nil when the region is the whole frame.
type Region struct {
	Mat       gocv.Mat
	Box       *detector.BoundingBox
	Landmarks *detector.HandLandmarks
	Timestamp time.Time
}

// Close releases the region's image memory.
func (r *Region) Close() error {
	return r.Mat.Close()
}

// Crop cuts the located hand out of frame. The returned Region owns a copy of
// the pixels so it survives the frame being closed.
func Crop(frame *Frame, hand *detector.Hand) Region {
	region := Region{Timestamp: frame.Timestamp}
	if hand == nil {
		region.Mat = frame.Mat.Clone()
		return region
	}

	region.Landmarks = hand.Landmarks
	if hand.Box == nil {
		region.Mat = frame.Mat.Clone()
		return region
	}

	box := hand.Box.Clamp(frame.Mat.Cols(), frame.Mat.Rows())
	if box.Empty() {
		region.Mat = frame.Mat.Clone()
		return region
	}

	view := frame.Mat.Region(box.Rect())
	region.Mat = view.Clone()
	view.Close()
	region.Box = &box
	return region
}
