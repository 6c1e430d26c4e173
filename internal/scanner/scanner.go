// Package scanner fuses signature matches and the optional classifier score
// into a single verdict for a piece of text.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gzhole/toolguard/internal/metrics"
	"github.com/gzhole/toolguard/internal/signature"
)

// BenignExplanation is reported for every non-malicious verdict.
const BenignExplanation = "No security threats detected"

// foundPreviewRunes bounds the matched excerpt quoted in explanations.
const foundPreviewRunes = 50

// Estimator scores text with a probabilistic model.
type Estimator interface {
	Estimate(ctx context.Context, text string) (float64, error)
}

// Verdict is the outcome of evaluating one text.
type Verdict struct {
	Malicious   bool
	Confidence  float64
	Explanation string

	PatternConfidence float64
	MLConfidence      float64
	MLPresent         bool // MLConfidence is meaningful only when true
	Matches           []signature.Match
}

// mlSignal is the optional second opinion. ok is false when no score is
// available, whether because no classifier is configured or because it failed.
type mlSignal interface {
	confidence(ctx context.Context, text string) (float64, bool)
}

type absent struct{}

func (absent) confidence(context.Context, string) (float64, bool) { return 0, false }

type present struct {
	est    Estimator
	logger *slog.Logger
}

func (p present) confidence(ctx context.Context, text string) (float64, bool) {
	c, err := p.est.Estimate(ctx, text)
	if err != nil {
		p.logger.Warn("classifier failed, using pattern-only result", "error", err)
		return 0, false
	}
	return c, true
}

// Scanner is immutable after construction and safe for concurrent use.
type Scanner struct {
	matcher *signature.Matcher
	ml      mlSignal
	logger  *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClassifier adds a classifier score to every evaluation.
func WithClassifier(e Estimator) Option {
	return func(s *Scanner) {
		if e != nil {
			s.ml = present{est: e}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a pattern-only scanner unless WithClassifier is given.
func New(m *signature.Matcher, opts ...Option) *Scanner {
	if m == nil {
		m = signature.NewMatcher()
	}
	s := &Scanner{matcher: m, ml: absent{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if p, ok := s.ml.(present); ok {
		p.logger = s.logger
		s.ml = p
	}
	return s
}

// MLEnabled reports whether a classifier is configured.
func (s *Scanner) MLEnabled() bool {
	_, ok := s.ml.(present)
	return ok
}

// Evaluate scores text against threshold. The fused confidence is the larger
// of the pattern and classifier confidences; the text is malicious when the
// fused value reaches threshold. Classifier failures are absorbed.
func (s *Scanner) Evaluate(ctx context.Context, text string, threshold float64) Verdict {
	matches := s.matcher.Scan(text)
	v := Verdict{
		PatternConfidence: signature.Confidence(matches),
		Matches:           matches,
	}
	v.MLConfidence, v.MLPresent = s.ml.confidence(ctx, text)

	v.Confidence = v.PatternConfidence
	if v.MLPresent && v.MLConfidence > v.Confidence {
		v.Confidence = v.MLConfidence
	}
	v.Malicious = v.Confidence >= threshold
	v.Explanation = explain(v, threshold)

	metrics.ConfidenceScore.Observe(v.Confidence)
	if v.Malicious {
		metrics.AnalysesTotal.WithLabelValues("malicious").Inc()
	} else {
		metrics.AnalysesTotal.WithLabelValues("benign").Inc()
	}
	return v
}

func explain(v Verdict, threshold float64) string {
	if !v.Malicious {
		return BenignExplanation
	}
	mlFired := v.MLPresent && v.MLConfidence >= threshold
	if v.PatternConfidence < threshold || len(v.Matches) == 0 {
		if mlFired {
			return fmt.Sprintf("Security threat detected by ML classifier (confidence: %.2f)", v.MLConfidence)
		}
		return "Security threat detected"
	}

	var b strings.Builder
	for i, m := range distinctBySignature(v.Matches) {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Security threat: %s (Risk: %s) - Found: '%s'",
			m.Signature.Description, m.Signature.Tier, truncateRunes(m.Text, foundPreviewRunes))
	}
	if mlFired {
		fmt.Fprintf(&b, "\nML classifier confidence: %.2f", v.MLConfidence)
	}
	return b.String()
}

// distinctBySignature keeps the first match of each signature, ordered by
// tier (highest first) and then by catalogue position.
func distinctBySignature(matches []signature.Match) []signature.Match {
	seen := make(map[*signature.Signature]bool, len(matches))
	var out []signature.Match
	for _, m := range matches {
		if seen[m.Signature] {
			continue
		}
		seen[m.Signature] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Signature.Tier > out[j].Signature.Tier
	})
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
