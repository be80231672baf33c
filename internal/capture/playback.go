package capture

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Playback is a Source that replays preloaded frames. It backs tests and the
// demo mode where a recorded clip stands in for a camera.
type Playback struct {
	frames   []gocv.Mat
	loop     bool
	interval time.Duration
	openErr  error

	mu      sync.Mutex
	index   int
	running bool
}

// NewPlayback replays frames in order. With loop set it starts over at the
// end instead of returning ErrEndOfStream. Playback does not take ownership
// of frames; every Next returns a clone.
func NewPlayback(frames []gocv.Mat, loop bool) *Playback {
	return &Playback{
		frames: frames,
		loop:   loop,
	}
}

// SetInterval paces Next so frames are delivered at most once per d.
func (p *Playback) SetInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
}

// FailOpen makes the next Open return err, simulating a missing device.
func (p *Playback) FailOpen(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.openErr = err
}

// Open implements Source.
func (p *Playback) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.openErr != nil {
		return p.openErr
	}
	p.running = true
	p.index = 0
	return nil
}

// Close implements Source.
func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return nil
}

// Next implements Source.
func (p *Playback) Next() (Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return Frame{}, ErrCameraNotOpen
	}

	if p.index >= len(p.frames) {
		if !p.loop || len(p.frames) == 0 {
			return Frame{}, ErrEndOfStream
		}
		p.index = 0
	}

	if p.interval > 0 {
		// Sleep while holding the lock; Next has a single caller.
		time.Sleep(p.interval)
	}

	frame := Frame{
		Mat:       p.frames[p.index].Clone(),
		Timestamp: time.Now(),
	}
	p.index++
	return frame, nil
}

// Reset restarts playback from the beginning.
func (p *Playback) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = 0
}
