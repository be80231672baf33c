// Package overlay draws the current prediction onto video frames and keeps
// the latest annotated JPEG for the MJPEG stream.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pipeline"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 80

var (
	textColor = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	boxColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	textOrg   = image.Pt(10, 30)
)

// Caption returns the text drawn for snap, or "" when nothing has been
// recognised yet.
func Caption(snap pipeline.Snapshot) string {
	if snap.Kind == nil {
		return ""
	}
	prefix := "Letter"
	if *snap.Kind == pipeline.KindDynamic.String() {
		prefix = "Word"
	}
	return fmt.Sprintf("%s: %s (%.2f)", prefix, snap.Text, snap.Confidence)
}

// Annotate draws box and the caption for snap onto img in place.
func Annotate(img *gocv.Mat, snap pipeline.Snapshot, box *detector.BoundingBox) {
	if box != nil && !box.Empty() {
		gocv.Rectangle(img, box.Rect(), boxColor, 2)
	}
	if text := Caption(snap); text != "" {
		gocv.PutText(img, text, textOrg, gocv.FontHersheySimplex, 1, textColor, 2)
	}
}

// Renderer turns frames into annotated JPEGs.
type Renderer struct {
	quality int
	scratch gocv.Mat
}

// NewRenderer creates a Renderer. A quality outside 1..100 uses
// DefaultQuality.
func NewRenderer(quality int) *Renderer {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Renderer{quality: quality, scratch: gocv.NewMat()}
}

// Quality returns the JPEG quality.
func (r *Renderer) Quality() int { return r.quality }

// Render annotates a copy of frame and encodes it. frame is not modified.
func (r *Renderer) Render(frame *capture.Frame, snap pipeline.Snapshot, box *detector.BoundingBox) ([]byte, error) {
	if frame.Mat.Empty() {
		return nil, fmt.Errorf("render: empty frame")
	}
	frame.Mat.CopyTo(&r.scratch)
	Annotate(&r.scratch, snap, box)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, r.scratch, []int{int(gocv.IMWriteJpegQuality), r.quality})
	if err != nil {
		return nil, fmt.Errorf("render: encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the scratch image.
func (r *Renderer) Close() error {
	return r.scratch.Close()
}
