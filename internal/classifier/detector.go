package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gzhole/toolguard/internal/config"
	"github.com/gzhole/toolguard/internal/metrics"
)

const (
	tracerName = "github.com/gzhole/toolguard/internal/classifier"

	// previewRunes bounds the text excerpt written to debug logs.
	previewRunes = 100
)

// Detector estimates the probability that a text is a prompt-injection
// attempt using a two-class model (index 0 safe, index 1 malicious).
type Detector struct {
	client *Client
	model  config.Model
	logger *slog.Logger
	tracer trace.Tracer
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

func WithLogger(l *slog.Logger) DetectorOption {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) DetectorOption {
	return func(d *Detector) {
		if t != nil {
			d.tracer = t
		}
	}
}

// NewDetector binds client to model. The tracer defaults to the global
// OpenTelemetry provider, which is a no-op unless one is installed.
func NewDetector(client *Client, model config.Model, opts ...DetectorOption) *Detector {
	d := &Detector{
		client: client,
		model:  model,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Model returns the model the detector queries.
func (d *Detector) Model() config.Model { return d.model }

// Estimate scores text and returns the malicious-class probability in [0,1].
func (d *Detector) Estimate(ctx context.Context, text string) (float64, error) {
	ctx, span := d.tracer.Start(ctx, "classifier.estimate", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("classifier.model", d.model.ID),
			attribute.String("classifier.version", d.model.Version),
			attribute.Int("classifier.input_len", len(text)),
		))
	defer span.End()

	d.logger.Debug("classifying text", "model", d.model.ID, "preview", preview(text, previewRunes))

	start := time.Now()
	p, err := d.estimate(ctx, text)
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierRequests.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	metrics.ClassifierRequests.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Float64("classifier.probability", p))
	return p, nil
}

func (d *Detector) estimate(ctx context.Context, text string) (float64, error) {
	resp, err := d.client.BatchInfer(ctx, d.model.ID, d.model.Version, d.model.InputName, []string{text})
	if err != nil {
		return 0, err
	}
	if len(resp.ResponseItems) == 0 {
		return 0, &Error{Op: "response", Err: ErrNoResponseItems}
	}
	item := resp.ResponseItems[0]
	if item.DoubleListValue == nil {
		return 0, &Error{Op: "response", Err: ErrMissingScores}
	}
	scores := item.DoubleListValue.DoubleValues
	if len(scores) < 2 {
		return 0, &Error{Op: "response", Err: fmt.Errorf("%w: expected 2 scores (safe, malicious), got %d", ErrMissingScores, len(scores))}
	}

	p := MaliciousProbability(scores[0], scores[1])
	d.logger.Info("classifier scores",
		"model", d.model.ID,
		"safe_score", scores[0],
		"malicious_score", scores[1],
		"safe_prob", 1-p,
		"malicious_prob", p,
	)
	return p, nil
}

// MaliciousProbability is the two-class softmax of the malicious score,
// shifted by the larger score so large inputs do not overflow.
func MaliciousProbability(safe, malicious float64) float64 {
	m := math.Max(safe, malicious)
	es := math.Exp(safe - m)
	em := math.Exp(malicious - m)
	return em / (es + em)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
