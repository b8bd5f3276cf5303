package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	TargetForeground = "foreground"
	TargetBackground = "background"
	TargetIgnore     = "ignore"
)

// Metrics holds the encoder and decoder collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	EncodeTotal      prometheus.Counter
	AnchorTargets    *prometheus.CounterVec
	DecodeTotal      prometheus.Counter
	DecodeCandidates prometheus.Histogram
	DecodeDetections prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EncodeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retinanet_encode_total",
			Help: "Total encode calls",
		}),
		AnchorTargets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retinanet_anchor_targets_total",
			Help: "Anchors assigned per classification target kind",
		}, []string{"target"}),
		DecodeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retinanet_decode_total",
			Help: "Total decode calls",
		}),
		DecodeCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retinanet_decode_candidates",
			Help:    "Anchors passing the confidence threshold per decode",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		DecodeDetections: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retinanet_decode_detections",
			Help:    "Detections surviving NMS per decode",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	m.registry.MustRegister(
		m.EncodeTotal,
		m.AnchorTargets,
		m.DecodeTotal,
		m.DecodeCandidates,
		m.DecodeDetections,
	)
	return m
}

// Registry exposes the underlying registry for scraping or gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveEncode(foreground, background, ignored int) {
	if m == nil {
		return
	}
	m.EncodeTotal.Inc()
	m.AnchorTargets.WithLabelValues(TargetForeground).Add(float64(foreground))
	m.AnchorTargets.WithLabelValues(TargetBackground).Add(float64(background))
	m.AnchorTargets.WithLabelValues(TargetIgnore).Add(float64(ignored))
}

func (m *Metrics) ObserveDecode(candidates, detections int) {
	if m == nil {
		return
	}
	m.DecodeTotal.Inc()
	m.DecodeCandidates.Observe(float64(candidates))
	m.DecodeDetections.Observe(float64(detections))
}
