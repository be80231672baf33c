// Package detector locates the signing hand in a video frame.
package detector

import "math"

// Landmark indices in MediaPipe hand order: the wrist, then four joints per
// finger from the base (CMC or MCP) out to the tip.
const (
	Wrist = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
	NumLandmarks
)

// Point3D is a landmark position. X and Y are normalized to the frame
// (0..1), Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks holds the 21 landmarks of one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

func (p Point3D) sub(q Point3D) Point3D { return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z} }

func (p Point3D) scale(f float64) Point3D { return Point3D{X: p.X * f, Y: p.Y * f, Z: p.Z * f} }

func (p Point3D) norm() float64 { return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z) }

// Normalize returns a copy with the wrist moved to the origin and the
// wrist to middle-MCP span scaled to 1, so poses from any hand size or
// position compare directly. A degenerate span is left unscaled.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	out := &HandLandmarks{Handedness: h.Handedness, Score: h.Score}
	origin := h.Points[Wrist]
	span := h.Points[MiddleMCP].sub(origin).norm()

	f := 1.0
	if span >= 1e-10 {
		f = 1 / span
	}
	for i, p := range h.Points {
		out.Points[i] = p.sub(origin).scale(f)
	}
	return out
}

// Bounds returns the pixel bounding box enclosing all landmarks in a frame of
// the given size, grown by pad (a fraction of the box size) on every side and
// clamped to the frame. The second return is false when the box is empty.
func (h *HandLandmarks) Bounds(width, height int, pad float64) (BoundingBox, bool) {
	if h == nil || width <= 0 || height <= 0 {
		return BoundingBox{}, false
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range h.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	padX := (maxX - minX) * pad
	padY := (maxY - minY) * pad

	box := BoundingBox{
		Left:   int((minX - padX) * float64(width)),
		Top:    int((minY - padY) * float64(height)),
		Right:  int(math.Ceil((maxX + padX) * float64(width))),
		Bottom: int(math.Ceil((maxY + padY) * float64(height))),
	}.Clamp(width, height)

	return box, !box.Empty()
}
