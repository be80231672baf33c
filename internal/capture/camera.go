// Package capture reads frames from a video source and hands them from the
// capture loop to the processing loop.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraUnavailable is returned by Open when the device or file
	// cannot be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrEndOfStream is returned by Next once the source has no more frames.
	ErrEndOfStream = errors.New("end of stream")

	// ErrCameraNotOpen is returned when reading from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
)

// Source supplies frames in capture order.
type Source interface {
	// Open prepares the source. Failures wrap ErrCameraUnavailable.
	Open() error
	// Next blocks until the next frame is read. The caller owns the frame.
	// Returns ErrEndOfStream when the source is exhausted.
	Next() (Frame, error)
	Close() error
}

// Camera reads from a camera device or video file through GoCV.
type Camera struct {
	device  string
	width   int
	height  int
	mu      sync.Mutex
	capture *gocv.VideoCapture
	fps     int
	misses  int
}

// maxConsecutiveMisses is how many failed reads in a row are treated as the
// device having gone away.
const maxConsecutiveMisses = 30

// NewCamera creates a Camera for device, which is either a numeric device
// index ("0") or a file path or URL understood by OpenCV.
func NewCamera(device string) *Camera {
	return &Camera{
		device: device,
		width:  DefaultWidth,
		height: DefaultHeight,
		fps:    DefaultFPS,
	}
}

// Open opens the device at 640x480.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrCameraUnavailable, c.device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: %q did not open", ErrCameraUnavailable, c.device)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.misses = 0
	return nil
}

// Close closes the camera and releases resources.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	return err
}

// Next reads a single frame. A run of failed reads means the device was
// unplugged or the file ended and is reported as ErrEndOfStream.
func (c *Camera) Next() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return Frame{}, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		c.misses++
		if c.misses >= maxConsecutiveMisses {
			return Frame{}, ErrEndOfStream
		}
		return Frame{}, errors.New("failed to read frame from camera")
	}
	c.misses = 0

	return Frame{Mat: mat, Timestamp: time.Now()}, nil
}

// SetFPS sets the requested capture rate.
// Values less than or equal to 0 are ignored.
func (c *Camera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *Camera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen returns true if the camera is currently open.
func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
