package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Motion detection defaults
const (
	// DefaultPixelThreshold is the per-pixel intensity change (0-255) that
	// counts a pixel as changed.
	DefaultPixelThreshold = 25
	// DefaultRatioThreshold is the fraction of changed pixels above which a
	// frame pair counts as motion.
	DefaultRatioThreshold = 0.02
)

// MotionDetector compares two frames by frame differencing. It holds only
// configuration; callers supply the previous frame, so Detect is a pure
// function of its inputs.
type MotionDetector struct {
	pixelThreshold float64
	ratioThreshold float64
	blurSize       int
}

// NewMotionDetector creates a MotionDetector. Non-positive thresholds fall
// back to the defaults. blurSize is the Gaussian kernel applied before
// differencing to suppress sensor noise; 0 disables it and even sizes are
// rounded up to the next odd size.
func NewMotionDetector(pixelThreshold, ratioThreshold float64, blurSize int) *MotionDetector {
	if pixelThreshold <= 0 {
		pixelThreshold = DefaultPixelThreshold
	}
	if ratioThreshold <= 0 {
		ratioThreshold = DefaultRatioThreshold
	}
	if blurSize > 0 && blurSize%2 == 0 {
		blurSize++
	}
	if blurSize < 0 {
		blurSize = 0
	}

	return &MotionDetector{
		pixelThreshold: pixelThreshold,
		ratioThreshold: ratioThreshold,
		blurSize:       blurSize,
	}
}

// Detect reports whether curr differs significantly from prev, along with the
// fraction of pixels that changed.
//
// Algorithm:
//  1. Convert both frames to grayscale (optionally blurred)
//  2. Absolute per-pixel difference
//  3. Binary threshold at the pixel threshold
//  4. changed pixels / total pixels = change ratio
//  5. motion = change ratio > ratio threshold
//
// A nil or empty prev means there is nothing to compare against and yields
// false. Frames of different size are an error.
func (m *MotionDetector) Detect(prev, curr *gocv.Mat) (bool, float64, error) {
	if prev == nil || prev.Empty() || curr == nil || curr.Empty() {
		return false, 0, nil
	}
	if prev.Rows() != curr.Rows() || prev.Cols() != curr.Cols() {
		return false, 0, fmt.Errorf("frame size changed from %dx%d to %dx%d",
			prev.Cols(), prev.Rows(), curr.Cols(), curr.Rows())
	}

	prevGray := m.intensity(prev)
	defer prevGray.Close()
	currGray := m.intensity(curr)
	defer currGray.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(prevGray, currGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, float32(m.pixelThreshold), 255, gocv.ThresholdBinary)

	total := thresh.Rows() * thresh.Cols()
	if total == 0 {
		return false, 0, nil
	}

	ratio := float64(gocv.CountNonZero(thresh)) / float64(total)
	return ratio > m.ratioThreshold, ratio, nil
}

// intensity returns a single channel copy of frame.
func (m *MotionDetector) intensity(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch frame.Channels() {
	case 1:
		frame.CopyTo(&gray)
	case 4:
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	}

	if m.blurSize == 0 {
		return gray
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: m.blurSize, Y: m.blurSize}, 0, 0, gocv.BorderDefault)
	gray.Close()
	return blurred
}
