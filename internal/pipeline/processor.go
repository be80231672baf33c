package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
)

// Discard reasons reported to metrics.
const (
	ReasonUnsure        = "unsure"
	ReasonLowConfidence = "low_confidence"
	ReasonNoTemplates   = "no_templates"
)

// Config holds the processor thresholds and sizes.
type Config struct {
	WindowSize     int
	SmootherSize   int
	CooldownFrames int

	// Static predictions below StaticUnsure are dropped as unsure, below
	// StaticPublish as low confidence. The rest are smoothed and published.
	StaticUnsure  float64
	StaticPublish float64
	// Dynamic predictions are published only strictly above DynamicPublish.
	DynamicPublish float64

	// ResetWindowOnDynamic empties the window after each published dynamic
	// prediction so the next word is built from fresh frames.
	ResetWindowOnDynamic bool
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		WindowSize:           DefaultWindowSize,
		SmootherSize:         DefaultSmootherSize,
		CooldownFrames:       DefaultCooldownFrames,
		StaticUnsure:         0.5,
		StaticPublish:        0.7,
		DynamicPublish:       0.6,
		ResetWindowOnDynamic: true,
	}
}

// Override forces a dispatch path regardless of motion.
type Override int32

const (
	// OverrideAuto lets the mode controller decide.
	OverrideAuto Override = iota
	// OverrideStatic classifies every frame as a letter.
	OverrideStatic
	// OverrideDynamic feeds every frame to the window.
	OverrideDynamic
)

// ErrUnknownOverride is returned by ParseOverride.
var ErrUnknownOverride = errors.New("unknown recognition mode")

func (o Override) String() string {
	switch o {
	case OverrideStatic:
		return "static"
	case OverrideDynamic:
		return "dynamic"
	default:
		return "auto"
	}
}

// ParseOverride maps "auto", "static" or "dynamic" to an Override.
func ParseOverride(s string) (Override, error) {
	switch s {
	case "auto", "":
		return OverrideAuto, nil
	case "static":
		return OverrideStatic, nil
	case "dynamic":
		return OverrideDynamic, nil
	default:
		return OverrideAuto, fmt.Errorf("%w: %q", ErrUnknownOverride, s)
	}
}

// StageError is a per-frame failure in one pipeline stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Observation is one located hand ready for classification.
type Observation struct {
	Region capture.Region
	Motion bool
}

// Processor runs every processed frame through locate, motion, mode
// dispatch, classification and publication.
//
// Process and Observe must only be called from the processing loop.
// SetOverride, Override, LastBox and State are safe from any goroutine.
type Processor struct {
	cfg      Config
	locator  detector.Locator
	motion   *capture.MotionDetector
	static   classifier.Static
	dynamic  classifier.Dynamic
	state    *State
	metrics  *metrics.Pipeline
	logger   *slog.Logger
	mode     *ModeController
	window   *Window[capture.Region]
	smoother *Smoother

	prev     gocv.Mat
	hasPrev  bool
	applied  Override
	override atomic.Int32
	lastBox  atomic.Pointer[detector.BoundingBox]
}

// Deps are the collaborators a Processor calls.
type Deps struct {
	Locator detector.Locator
	Motion  *capture.MotionDetector
	Static  classifier.Static
	Dynamic classifier.Dynamic
	State   *State
	Metrics *metrics.Pipeline
	Logger  *slog.Logger
}

// NewProcessor creates a Processor. Missing Motion, State and Logger get
// defaults; Locator and the classifiers are required.
func NewProcessor(cfg Config, deps Deps) (*Processor, error) {
	if deps.Locator == nil || deps.Static == nil || deps.Dynamic == nil {
		return nil, errors.New("processor needs a locator and both classifiers")
	}
	if deps.Motion == nil {
		deps.Motion = capture.NewMotionDetector(0, 0, 0)
	}
	if deps.State == nil {
		deps.State = NewState()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	p := &Processor{
		cfg:      cfg,
		locator:  deps.Locator,
		motion:   deps.Motion,
		static:   deps.Static,
		dynamic:  deps.Dynamic,
		state:    deps.State,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		mode:     NewModeController(cfg.CooldownFrames),
		window:   NewWindow(cfg.WindowSize, func(r capture.Region) { r.Close() }),
		smoother: NewSmoother(cfg.SmootherSize),
	}
	p.mode.OnChange(func(from, to ModeState) {
		p.metrics.ModeTransition(from.String(), to.String())
		p.logger.Debug("mode changed", "from", from, "to", to)
	})
	return p, nil
}

// Process handles one frame. The caller keeps ownership of frame.
//
// A frame whose locate fails contributes nothing: it is not kept as the motion
// baseline, so the next frame is compared against the last frame that was
// located successfully.
func (p *Processor) Process(frame *capture.Frame) error {
	hand, err := p.locator.Locate(&frame.Mat)
	if err != nil {
		p.lastBox.Store(nil)
		return p.fail(metrics.StageLocate, err)
	}

	var prev *gocv.Mat
	if p.hasPrev {
		prev = &p.prev
	}
	var moved bool
	var motionErr error
	if hand != nil {
		moved, _, motionErr = p.motion.Detect(prev, &frame.Mat)
	}
	p.remember(frame)

	if hand == nil {
		p.lastBox.Store(nil)
		return nil
	}
	if motionErr != nil {
		return p.fail(metrics.StageMotion, motionErr)
	}

	region := capture.Crop(frame, hand)
	p.lastBox.Store(region.Box)

	return p.Observe(Observation{Region: region, Motion: moved})
}

// remember keeps a copy of frame for the next motion comparison.
func (p *Processor) remember(frame *capture.Frame) {
	if p.hasPrev {
		p.prev.Close()
	}
	p.prev = frame.Mat.Clone()
	p.hasPrev = true
}

// Observe dispatches a located hand. It takes ownership of obs.Region.
func (p *Processor) Observe(obs Observation) error {
	p.applyOverride()

	var d Dispatch
	switch p.applied {
	case OverrideStatic:
		d = DispatchStatic
	case OverrideDynamic:
		d = DispatchDynamic
	default:
		d = p.mode.Step(obs.Motion)
	}

	switch d {
	case DispatchStatic:
		defer obs.Region.Close()
		return p.classifyStatic(obs.Region)
	case DispatchDynamic:
		p.window.Append(obs.Region)
		if !p.window.IsFull() {
			return nil
		}
		return p.classifyDynamic(p.window.Snapshot())
	default:
		obs.Region.Close()
		return nil
	}
}

// applyOverride picks up a mode change requested from another goroutine and
// starts the new mode from a clean slate.
func (p *Processor) applyOverride() {
	want := Override(p.override.Load())
	if want == p.applied {
		return
	}
	p.logger.Info("recognition mode changed", "from", p.applied, "to", want)
	p.applied = want
	p.mode.Reset()
	p.window.Reset()
	p.smoother.Reset()
}

func (p *Processor) classifyStatic(region capture.Region) error {
	start := time.Now()
	res, err := p.static.ClassifyStatic(region)
	p.metrics.ObserveClassify(KindStatic.String(), time.Since(start))
	if err != nil {
		return p.classifyFailed(KindStatic, err)
	}

	switch {
	case res.Confidence < p.cfg.StaticUnsure:
		p.discard(KindStatic, ReasonUnsure, res)
		return nil
	case res.Confidence < p.cfg.StaticPublish:
		p.discard(KindStatic, ReasonLowConfidence, res)
		return nil
	}

	label := p.smoother.Observe(res.Label)
	p.publish(Record{
		Kind:       KindStatic,
		Label:      label,
		Confidence: res.Confidence,
		ProducedAt: region.Timestamp,
	})
	return nil
}

// classifyDynamic runs the dynamic classifier over the full window. Regions
// stay owned by the window.
func (p *Processor) classifyDynamic(regions []capture.Region) error {
	start := time.Now()
	res, err := p.dynamic.ClassifyDynamic(regions)
	p.metrics.ObserveClassify(KindDynamic.String(), time.Since(start))
	if err != nil {
		return p.classifyFailed(KindDynamic, err)
	}

	if res.Confidence <= p.cfg.DynamicPublish {
		p.discard(KindDynamic, ReasonLowConfidence, res)
		return nil
	}

	p.publish(Record{
		Kind:       KindDynamic,
		Label:      res.Label,
		Confidence: res.Confidence,
		ProducedAt: regions[len(regions)-1].Timestamp,
	})
	if p.cfg.ResetWindowOnDynamic {
		p.window.Reset()
	}
	return nil
}

func (p *Processor) classifyFailed(kind Kind, err error) error {
	if errors.Is(err, classifier.ErrNoTemplates) {
		p.metrics.Discarded(kind.String(), ReasonNoTemplates)
		return nil
	}
	return p.fail(metrics.StageClassify, fmt.Errorf("%s: %w", kind, err))
}

func (p *Processor) publish(r Record) {
	if r.ProducedAt.IsZero() {
		r.ProducedAt = time.Now()
	}
	p.state.Publish(r)
	p.metrics.Published(r.Kind.String())
	p.logger.Debug("prediction published", "kind", r.Kind, "label", r.Label, "confidence", r.Confidence)
}

func (p *Processor) discard(kind Kind, reason string, res classifier.Result) {
	p.metrics.Discarded(kind.String(), reason)
	p.logger.Debug("prediction discarded", "kind", kind, "reason", reason,
		"label", res.Label, "confidence", res.Confidence)
}

func (p *Processor) fail(stage string, err error) error {
	p.metrics.FrameError(stage)
	return &StageError{Stage: stage, Err: err}
}

// SetOverride changes the recognition mode. It takes effect on the next
// located hand.
func (p *Processor) SetOverride(o Override) { p.override.Store(int32(o)) }

// Override returns the requested recognition mode.
func (p *Processor) Override() Override { return Override(p.override.Load()) }

// LastBox returns the bounding box of the most recent processed frame, or
// nil when it had no hand or no box.
func (p *Processor) LastBox() *detector.BoundingBox { return p.lastBox.Load() }

// State returns the published state.
func (p *Processor) State() *State { return p.state }

// Mode returns the mode controller state. Processing loop only.
func (p *Processor) Mode() ModeState { return p.mode.State() }

// WindowLen returns how many regions the window holds. Processing loop only.
func (p *Processor) WindowLen() int { return p.window.Len() }

// Close releases every held frame and region and returns the mode controller
// and smoother to their initial state.
func (p *Processor) Close() {
	p.window.Reset()
	p.mode.Reset()
	p.smoother.Reset()
	if p.hasPrev {
		p.prev.Close()
		p.hasPrev = false
	}
}
