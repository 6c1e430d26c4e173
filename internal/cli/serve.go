package cli

import (
	"github.com/spf13/cobra"

	"github.com/gzhole/toolguard/internal/server"
)

var (
	serveAddr        string
	serveMetricsAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Start the HTTP API:

  POST /v1/analyze  {"tool_requests": [...], "messages": [...]} -> {"findings": [...]}
  POST /v1/scan     {"text": "..."}                              -> verdict
  GET  /healthz

Prometheus metrics are served on a separate listener at /metrics.
Scanning honours security.prompt_enabled on every request.`,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "API listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Metrics listen address (default from config, :9090)")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command, args []string) error {
	s, err := newSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	addr := s.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	metricsAddr := s.cfg.Server.MetricsAddr
	if serveMetricsAddr != "" {
		metricsAddr = serveMetricsAddr
	}

	st := s.cfg.Settings()
	s.log.Info("starting toolguard",
		"scanning_enabled", st.Enabled,
		"ml_enabled", st.MLEnabled,
		"threshold", st.Threshold,
		"audit_log", s.cfg.Audit.LogPath,
	)
	srv := server.New(s.manager, server.WithLogger(s.log))
	return srv.ListenAndServe(cmd.Context(), addr, metricsAddr)
}
