package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrServiceNotFound is returned when the MediaPipe helper script cannot be
// located on disk.
var ErrServiceNotFound = errors.New("mediapipe_service.py not found")

// mediaPipeIdleTimeout stops the helper process after a period without
// requests so an idle camera does not keep a Python interpreter busy.
const mediaPipeIdleTimeout = 30 * time.Second

// MediaPipeDetector implements Detector with a Python MediaPipe helper
// process. Frames are written to its stdin as length-prefixed JPEG and one
// JSON line is read back per frame.
type MediaPipeDetector struct {
	config     Config
	scriptPath string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	conn      *helperConn
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The helper process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := findHelper("scripts", "mediapipe_service.py")
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect implements Detector. A failed exchange stops the helper; the next
// call starts a fresh one.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}
	hands, err := d.conn.exchange(buf.GetBytes())
	if err != nil {
		_ = d.shutdown()
		return nil, err
	}
	d.resetIdleTimer()
	return hands, nil
}

// helperConn speaks the helper's framing: a big-endian uint32 length and the
// JPEG bytes out, one JSON line back.
type helperConn struct {
	w io.Writer
	r *bufio.Reader
}

type helperReply struct {
	Hands []jsonHand `json:"hands"`
	Error string     `json:"error"`
}

func (c *helperConn) exchange(jpeg []byte) ([]HandLandmarks, error) {
	msg := binary.BigEndian.AppendUint32(make([]byte, 0, 4+len(jpeg)), uint32(len(jpeg)))
	if _, err := c.w.Write(append(msg, jpeg...)); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	var reply helperReply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("mediapipe: %s", reply.Error)
	}

	hands := make([]HandLandmarks, len(reply.Hands))
	for i, h := range reply.Hands {
		hands[i] = h.toHandLandmarks()
	}
	return hands, nil
}

// Close shuts down the helper process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.cmd != nil {
		return nil
	}

	python := findHelper("venv/bin", "python")
	if python == "" {
		python = "python3"
	}

	maxHands := d.config.MaxHands
	if maxHands <= 0 {
		maxHands = 1
	}

	cmd := exec.Command(python, d.scriptPath,
		"--max-hands", strconv.Itoa(maxHands),
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
	)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.conn = &helperConn{w: stdin, r: bufio.NewReader(stdout)}
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if d.cmd == nil {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	_ = d.stdin.Close()
	err := d.cmd.Wait()

	d.cmd, d.stdin, d.conn = nil, nil, nil
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(mediaPipeIdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		_ = d.shutdown()
	})
}

// findHelper looks for dir/name relative to the working directory, the
// executable and ~/.mudra and returns the first absolute match.
func findHelper(dir, name string) string {
	var roots []string
	roots = append(roots, ".", "..", "../..")
	if execPath, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(execPath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".mudra"))
	}

	for _, root := range roots {
		path := filepath.Join(root, dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// jsonHand is the wire form written by the helper script.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	copy(lm.Points[:], h.Points)
	return lm
}
