// Package security decides, per batch of proposed tool calls, which calls
// should be held for user confirmation.
package security

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gzhole/toolguard/internal/classifier"
	"github.com/gzhole/toolguard/internal/config"
	"github.com/gzhole/toolguard/internal/extract"
	"github.com/gzhole/toolguard/internal/logger"
	"github.com/gzhole/toolguard/internal/metrics"
	"github.com/gzhole/toolguard/internal/scanner"
	"github.com/gzhole/toolguard/internal/signature"
	"github.com/gzhole/toolguard/internal/toolcall"
)

// FindingIDPrefix starts every finding identifier.
const FindingIDPrefix = "SEC-"

// Finding is reported for a tool call whose confidence exceeds the threshold.
type Finding struct {
	IsMalicious   bool    `json:"is_malicious"`
	Confidence    float64 `json:"confidence"`
	Explanation   string  `json:"explanation"`
	ShouldAskUser bool    `json:"should_ask_user"`
	FindingID     string  `json:"finding_id"`
	ToolRequestID string  `json:"tool_request_id"`
	ToolName      string  `json:"tool_name,omitempty"`
}

// SettingsSource supplies the current settings. It is consulted on every
// call so flags can change at runtime.
type SettingsSource interface {
	Settings() config.Settings
}

// SettingsFunc adapts a function to SettingsSource.
type SettingsFunc func() config.Settings

func (f SettingsFunc) Settings() config.Settings { return f() }

// Auditor records malicious verdicts.
type Auditor interface {
	Log(event logger.FindingEvent) error
}

// EstimatorFactory builds the classifier for the given settings.
type EstimatorFactory func(s config.Settings, log *slog.Logger) (scanner.Estimator, error)

// Manager owns the lazily built scanner. The scanner is constructed at most
// once, from the settings in effect at first use; later changes to the
// classifier flag or model do not rebuild it.
type Manager struct {
	src          SettingsSource
	logger       *slog.Logger
	audit        Auditor
	matcher      *signature.Matcher
	newEstimator EstimatorFactory
	now          func() time.Time

	scanner func() *scanner.Scanner
}

type ManagerOption func(*Manager)

func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithAuditor records every malicious verdict, reported or not.
func WithAuditor(a Auditor) ManagerOption {
	return func(m *Manager) { m.audit = a }
}

func WithMatcher(sm *signature.Matcher) ManagerOption {
	return func(m *Manager) {
		if sm != nil {
			m.matcher = sm
		}
	}
}

// WithEstimatorFactory replaces the remote classifier constructor.
func WithEstimatorFactory(f EstimatorFactory) ManagerOption {
	return func(m *Manager) {
		if f != nil {
			m.newEstimator = f
		}
	}
}

func NewManager(src SettingsSource, opts ...ManagerOption) *Manager {
	m := &Manager{
		src:          src,
		logger:       slog.Default(),
		matcher:      signature.NewMatcher(),
		newEstimator: RemoteEstimator,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.scanner = sync.OnceValue(m.buildScanner)
	return m
}

// RemoteEstimator resolves the configured model and returns a detector
// backed by the batch-inference service.
func RemoteEstimator(s config.Settings, log *slog.Logger) (scanner.Estimator, error) {
	model, err := config.LookupModel(s.Model)
	if err != nil {
		return nil, err
	}
	client := classifier.NewClient(s.Endpoint,
		classifier.WithTimeout(s.Timeout),
		classifier.WithSource(s.Source),
	)
	return classifier.NewDetector(client, model, classifier.WithLogger(log)), nil
}

func (m *Manager) buildScanner() *scanner.Scanner {
	s := m.src.Settings()
	opts := []scanner.Option{scanner.WithLogger(m.logger)}

	mode := "pattern"
	if s.MLEnabled {
		est, err := m.newEstimator(s, m.logger)
		if err != nil {
			m.logger.Warn("classifier unavailable, falling back to pattern-only scanning",
				"model", s.Model, "error", err)
		} else {
			opts = append(opts, scanner.WithClassifier(est))
			mode = "ml"
		}
	}
	metrics.ScannerBuilds.WithLabelValues(mode).Inc()
	m.logger.Info("security scanner initialized", "mode", mode, "signatures", m.matcher.Len())
	return scanner.New(m.matcher, opts...)
}

// AnalyzeToolRequests scans each parsed request in order and returns one
// Finding per request whose confidence exceeds the threshold. Requests that
// failed to parse are skipped. messages is accepted for context-aware checks
// and is not analysed. When scanning is disabled the result is empty and no
// scanner is built.
func (m *Manager) AnalyzeToolRequests(ctx context.Context, requests []toolcall.Request, messages []toolcall.Message) []Finding {
	s := m.src.Settings()
	findings := []Finding{}
	if !s.Enabled {
		metrics.ScannerEnabled.Set(0)
		return findings
	}
	metrics.ScannerEnabled.Set(1)

	sc := m.scanner()
	m.logger.Debug("analyzing tool requests", "requests", len(requests), "messages", len(messages), "threshold", s.Threshold)

	for _, req := range requests {
		call, ok := req.Parsed()
		if !ok {
			m.logger.Debug("skipping unparsed tool request", "tool_request_id", req.ID, "error", req.ParseError)
			continue
		}
		if f, ok := m.analyze(ctx, sc, req.ID, call, s.Threshold); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// FilterToolCalls scans the approved requests followed by those already
// awaiting approval.
func (m *Manager) FilterToolCalls(ctx context.Context, messages []toolcall.Message, approved, needsApproval []toolcall.Request) []Finding {
	all := make([]toolcall.Request, 0, len(approved)+len(needsApproval))
	all = append(all, approved...)
	all = append(all, needsApproval...)
	return m.AnalyzeToolRequests(ctx, all, messages)
}

// Evaluate scans free text at the configured threshold, whether or not
// tool-call scanning is enabled.
func (m *Manager) Evaluate(ctx context.Context, text string) scanner.Verdict {
	return m.scanner().Evaluate(ctx, text, m.src.Settings().Threshold)
}

// Threshold returns the threshold currently in effect.
func (m *Manager) Threshold() float64 { return m.src.Settings().Threshold }

func (m *Manager) analyze(ctx context.Context, sc *scanner.Scanner, requestID string, call *toolcall.Call, threshold float64) (Finding, bool) {
	content := extract.Content(*call)
	v := sc.Evaluate(ctx, content, threshold)

	if !v.Malicious {
		m.logger.Info("tool call passed security scan",
			"tool_name", call.Name,
			"tool_request_id", requestID,
			"confidence", v.Confidence,
		)
		return Finding{}, false
	}

	above := v.Confidence > threshold
	metrics.FindingsTotal.WithLabelValues(metrics.BoolLabel(above)).Inc()

	var findingID string
	if above {
		findingID = NewFindingID()
	}
	m.record(requestID, call.Name, findingID, content, v, threshold, above)

	if !above {
		m.logger.Warn("malicious verdict at threshold, not reported",
			"tool_name", call.Name,
			"tool_request_id", requestID,
			"confidence", v.Confidence,
			"threshold", threshold,
			"above_threshold", false,
		)
		return Finding{}, false
	}

	m.logger.Warn("security finding",
		"tool_name", call.Name,
		"tool_request_id", requestID,
		"finding_id", findingID,
		"confidence", v.Confidence,
		"threshold", threshold,
		"above_threshold", true,
	)
	return Finding{
		IsMalicious:   true,
		Confidence:    v.Confidence,
		Explanation:   v.Explanation,
		ShouldAskUser: true,
		FindingID:     findingID,
		ToolRequestID: requestID,
		ToolName:      call.Name,
	}, true
}

func (m *Manager) record(requestID, toolName, findingID, content string, v scanner.Verdict, threshold float64, above bool) {
	if m.audit == nil {
		return
	}
	ev := logger.FindingEvent{
		Timestamp:      m.now().UTC().Format(time.RFC3339),
		FindingID:      findingID,
		ToolRequestID:  requestID,
		ToolName:       toolName,
		Confidence:     v.Confidence,
		Threshold:      threshold,
		AboveThreshold: above,
		Explanation:    v.Explanation,
		Signatures:     signatureIDs(v.Matches),
		ContentPreview: content,
	}
	if v.MLPresent {
		ml := v.MLConfidence
		ev.MLConfidence = &ml
	}
	if err := m.audit.Log(ev); err != nil {
		m.logger.Error("failed to write audit record", "tool_request_id", requestID, "error", err)
	}
}

// NewFindingID returns "SEC-" followed by 32 lowercase hex digits.
func NewFindingID() string {
	return FindingIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func signatureIDs(matches []signature.Match) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, mt := range matches {
		if !seen[mt.Signature.ID] {
			seen[mt.Signature.ID] = true
			ids = append(ids, mt.Signature.ID)
		}
	}
	return ids
}
