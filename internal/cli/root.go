package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gzhole/toolguard/internal/config"
	"github.com/gzhole/toolguard/internal/logger"
	"github.com/gzhole/toolguard/internal/security"
)

var (
	configPath string
	logLevel   string
	noAudit    bool
)

var rootCmd = &cobra.Command{
	Use:   "toolguard",
	Short: "ToolGuard - Security scanner for AI agent tool calls",
	Long: `ToolGuard inspects the tool calls an AI agent proposes before they run.
Each call is matched against a catalogue of dangerous-command signatures and,
optionally, scored by a remote prompt-injection classifier. Calls whose
confidence exceeds the configured threshold are reported so the user can
confirm or deny them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (default: ~/.toolguard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noAudit, "no-audit", false, "Do not write findings to the audit log")
}

func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to subcommands.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	l := logger.NewSlog(os.Stderr, cfg.Logging.Level)
	slog.SetDefault(l)
	return l
}

// session bundles what a command needs to run the pipeline.
type session struct {
	cfg     *config.Config
	log     *slog.Logger
	manager *security.Manager
	audit   *logger.AuditLogger
}

func (s *session) Close() {
	if s.audit != nil {
		_ = s.audit.Close()
	}
}

// newSession loads configuration and builds a manager. forceEnable scans
// regardless of security.prompt_enabled, for commands the user runs
// explicitly.
func newSession(forceEnable bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: newLogger(cfg)}

	opts := []security.ManagerOption{security.WithLogger(s.log)}
	if !noAudit && cfg.Audit.LogPath != "" {
		if err := config.EnsureDir(filepath.Dir(cfg.Audit.LogPath)); err != nil {
			s.log.Warn("audit log disabled", "path", cfg.Audit.LogPath, "error", err)
		} else if audit, err := logger.New(cfg.Audit.LogPath); err != nil {
			s.log.Warn("audit log disabled", "path", cfg.Audit.LogPath, "error", err)
		} else {
			s.audit = audit
			opts = append(opts, security.WithAuditor(audit))
		}
	}

	var src security.SettingsSource = cfg
	if forceEnable {
		src = security.SettingsFunc(func() config.Settings {
			st := cfg.Settings()
			st.Enabled = true
			return st
		})
	}
	s.manager = security.NewManager(src, opts...)
	return s, nil
}
