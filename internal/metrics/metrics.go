// Package metrics provides Prometheus metrics for the recognition pipeline.
//
// Every method is safe on a nil *Pipeline so components can be built without
// metrics in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame stages reported with FrameError.
const (
	StageCapture  = "capture"
	StageLocate   = "locate"
	StageMotion   = "motion"
	StageClassify = "classify"
	StageRender   = "render"
	StagePanic    = "panic"
)

// Pipeline holds the pipeline collectors.
type Pipeline struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	framesCaptured  prometheus.Counter
	framesDropped   prometheus.Counter
	framesProcessed prometheus.Counter
	framesSkipped   prometheus.Counter
	frameErrors     *prometheus.CounterVec
	published       *prometheus.CounterVec
	discarded       *prometheus.CounterVec
	modeTransitions *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	classifyLatency *prometheus.HistogramVec
}

// Option configures New.
type Option func(*Pipeline)

// WithNamespace sets the metric namespace (default "mudra").
func WithNamespace(namespace string) Option {
	return func(p *Pipeline) {
		if namespace != "" {
			p.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets the latency buckets, in seconds.
func WithHistogramBuckets(buckets []float64) Option {
	return func(p *Pipeline) {
		if len(buckets) > 0 {
			p.buckets = buckets
		}
	}
}

// WithRegistry registers the collectors on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.registry = r
		}
	}
}

// New creates and registers the pipeline collectors.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		namespace: "mudra",
		buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(p.registry)

	p.framesCaptured = auto.NewCounter(prometheus.CounterOpts{
		Namespace: p.namespace, Subsystem: "frames", Name: "captured_total",
		Help: "Frames read from the video source.",
	})
	p.framesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: p.namespace, Subsystem: "frames", Name: "dropped_total",
		Help: "Frames rejected because the frame queue was full.",
	})
	p.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: p.namespace, Subsystem: "frames", Name: "processed_total",
		Help: "Frames taken off the queue by the processing loop.",
	})
	p.framesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: p.namespace, Subsystem: "frames", Name: "skipped_total",
		Help: "Frames discarded while recognition was disabled.",
	})
	p.frameErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace, Subsystem: "frames", Name: "errors_total",
		Help: "Per-frame failures by pipeline stage.",
	}, []string{"stage"})
	p.published = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace, Subsystem: "predictions", Name: "published_total",
		Help: "Classifications published to readers.",
	}, []string{"kind"})
	p.discarded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace, Subsystem: "predictions", Name: "discarded_total",
		Help: "Classifications discarded by confidence policy.",
	}, []string{"kind", "reason"})
	p.modeTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace, Subsystem: "mode", Name: "transitions_total",
		Help: "Mode controller state changes.",
	}, []string{"from", "to"})
	p.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: p.namespace, Subsystem: "queue", Name: "depth",
		Help: "Frames waiting in the frame queue.",
	})
	p.classifyLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: p.namespace, Subsystem: "classifier", Name: "latency_seconds",
		Help:    "Classifier call latency.",
		Buckets: p.buckets,
	}, []string{"kind"})

	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Pipeline) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *Pipeline) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *Pipeline) FrameCaptured() {
	if p != nil {
		p.framesCaptured.Inc()
	}
}

func (p *Pipeline) FrameDropped() {
	if p != nil {
		p.framesDropped.Inc()
	}
}

func (p *Pipeline) FrameProcessed() {
	if p != nil {
		p.framesProcessed.Inc()
	}
}

func (p *Pipeline) FrameSkipped() {
	if p != nil {
		p.framesSkipped.Inc()
	}
}

// FrameError counts a per-frame failure at stage.
func (p *Pipeline) FrameError(stage string) {
	if p != nil {
		p.frameErrors.WithLabelValues(stage).Inc()
	}
}

// Published counts a classification that reached readers.
func (p *Pipeline) Published(kind string) {
	if p != nil {
		p.published.WithLabelValues(kind).Inc()
	}
}

// Discarded counts a classification dropped by policy.
func (p *Pipeline) Discarded(kind, reason string) {
	if p != nil {
		p.discarded.WithLabelValues(kind, reason).Inc()
	}
}

// ModeTransition counts a mode controller state change.
func (p *Pipeline) ModeTransition(from, to string) {
	if p != nil {
		p.modeTransitions.WithLabelValues(from, to).Inc()
	}
}

// QueueDepth records the current queue length.
func (p *Pipeline) QueueDepth(n int) {
	if p != nil {
		p.queueDepth.Set(float64(n))
	}
}

// ObserveClassify records how long a classifier call took.
func (p *Pipeline) ObserveClassify(kind string, d time.Duration) {
	if p != nil {
		p.classifyLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}
