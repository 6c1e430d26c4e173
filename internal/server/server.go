// Package server exposes the security manager over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gzhole/toolguard/internal/metrics"
	"github.com/gzhole/toolguard/internal/scanner"
	"github.com/gzhole/toolguard/internal/security"
	"github.com/gzhole/toolguard/internal/toolcall"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Analyzer is the part of security.Manager the server needs.
type Analyzer interface {
	AnalyzeToolRequests(ctx context.Context, requests []toolcall.Request, messages []toolcall.Message) []security.Finding
	Evaluate(ctx context.Context, text string) scanner.Verdict
	Threshold() float64
}

type Server struct {
	analyzer Analyzer
	logger   *slog.Logger
	router   *mux.Router
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(a Analyzer, opts ...Option) *Server {
	s := &Server{analyzer: a, logger: slog.Default(), router: mux.NewRouter()}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.countRequests)
	s.router.HandleFunc("/v1/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/scan", s.handleScan).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) Router() http.Handler { return s.router }

// MetricsHandler serves the Prometheus registry.
func MetricsHandler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves the API on addr and, when metricsAddr is not empty,
// the metrics endpoint on metricsAddr, until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr, metricsAddr string) error {
	servers := []*http.Server{{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}}
	if metricsAddr != "" {
		servers = append(servers, &http.Server{Addr: metricsAddr, Handler: MetricsHandler(), ReadHeaderTimeout: 10 * time.Second})
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			s.logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}(srv)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			s.logger.Error("shutdown", "addr", srv.Addr, "error", serr)
		}
	}
	return err
}

type analyzeRequest struct {
	ToolRequests []toolcall.Request `json:"tool_requests"`
	Messages     []toolcall.Message `json:"messages,omitempty"`
}

type analyzeResponse struct {
	Findings []security.Finding `json:"findings"`
}

type scanRequest struct {
	Text string `json:"text"`
}

type scanResponse struct {
	Malicious         bool     `json:"malicious"`
	Confidence        float64  `json:"confidence"`
	Explanation       string   `json:"explanation"`
	Threshold         float64  `json:"threshold"`
	PatternConfidence float64  `json:"pattern_confidence"`
	MLConfidence      *float64 `json:"ml_confidence,omitempty"`
	Signatures        []string `json:"signatures,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	findings := s.analyzer.AnalyzeToolRequests(r.Context(), req.ToolRequests, req.Messages)
	if findings == nil {
		findings = []security.Finding{}
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Findings: findings})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	v := s.analyzer.Evaluate(r.Context(), req.Text)
	resp := scanResponse{
		Malicious:         v.Malicious,
		Confidence:        v.Confidence,
		Explanation:       v.Explanation,
		Threshold:         s.analyzer.Threshold(),
		PatternConfidence: v.PatternConfidence,
	}
	if v.MLPresent {
		ml := v.MLConfidence
		resp.MLConfidence = &ml
	}
	seen := make(map[string]bool)
	for _, m := range v.Matches {
		if !seen[m.Signature.ID] {
			seen[m.Signature.ID] = true
			resp.Signatures = append(resp.Signatures, m.Signature.ID)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Debug("rejecting request body", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
