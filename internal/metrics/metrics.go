// Package metrics registers the Prometheus instruments toolguard exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScannerEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "toolguard_scanner_enabled",
			Help: "1 when tool-call scanning is enabled for the last analysed batch",
		},
	)

	ScannerBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolguard_scanner_builds_total",
			Help: "Scanner constructions by mode",
		},
		[]string{"mode"}, // pattern | ml
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolguard_analyses_total",
			Help: "Evaluated texts by verdict",
		},
		[]string{"verdict"}, // malicious | benign
	)

	FindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolguard_findings_total",
			Help: "Malicious verdicts on tool calls, split by whether they exceeded the threshold",
		},
		[]string{"above_threshold"},
	)

	ConfidenceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toolguard_confidence_score",
			Help:    "Fused confidence of evaluated texts",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	ClassifierRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolguard_classifier_requests_total",
			Help: "Classifier backend calls by outcome",
		},
		[]string{"outcome"}, // ok | error
	)

	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toolguard_classifier_duration_seconds",
			Help:    "Classifier backend latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolguard_http_requests_total",
			Help: "API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// BoolLabel renders a boolean as a stable label value.
func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
