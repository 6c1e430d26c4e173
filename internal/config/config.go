package config

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".toolguard"
	DefaultConfigFile = "config.yaml"
	DefaultAuditFile  = "findings.jsonl"

	DefaultThreshold = 0.7
	DefaultEndpoint  = "http://localhost:8500/services/ModelService/BatchInfer"
	DefaultTimeout   = 30 * time.Second
	DefaultSource    = "toolguard-security"
)

type Config struct {
	ConfigDir  string           `yaml:"-"`
	Security   SecurityConfig   `yaml:"security"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Server     ServerConfig     `yaml:"server"`
	Audit      AuditConfig      `yaml:"audit"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SecurityConfig holds the flags the scanning pipeline reads on every batch.
type SecurityConfig struct {
	// PromptEnabled turns tool-call scanning on. Default: false.
	PromptEnabled bool `yaml:"prompt_enabled"`
	// PromptMLEnabled adds the remote classifier to signature matching. Default: false.
	PromptMLEnabled bool `yaml:"prompt_ml_enabled"`
	// PromptThreshold is the malicious cutoff in [0,1]. Default: 0.7.
	PromptThreshold float64 `yaml:"prompt_threshold"`
	// PromptModel selects an entry of the model registry.
	PromptModel string `yaml:"prompt_model"`
}

// ClassifierConfig points at the batch-inference backend.
type ClassifierConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Source   string        `yaml:"source"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type AuditConfig struct {
	LogPath string `yaml:"log_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Security: SecurityConfig{
			PromptThreshold: DefaultThreshold,
			PromptModel:     DefaultModel,
		},
		Classifier: ClassifierConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  DefaultTimeout,
			Source:   DefaultSource,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.toolguard/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, DefaultConfigDir, DefaultConfigFile), nil
}

// Load reads the YAML file at path (or the default path when empty), then
// applies TOOLGUARD_* environment overrides and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	cfg.ConfigDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Field: path, Msg: err.Error()}
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Audit.LogPath == "" {
		cfg.Audit.LogPath = filepath.Join(cfg.ConfigDir, DefaultAuditFile)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the pipeline cannot recover from.
func (c *Config) Validate() error {
	t := c.Security.PromptThreshold
	if math.IsNaN(t) || t < 0 || t > 1 {
		return &Error{Field: "security.prompt_threshold", Msg: "must be within [0, 1]"}
	}
	if c.Security.PromptModel == "" {
		return &Error{Field: "security.prompt_model", Msg: "must not be empty"}
	}
	if c.Classifier.Timeout <= 0 {
		return &Error{Field: "classifier.timeout", Msg: "must be positive"}
	}
	return nil
}

// Settings is the snapshot of values the scanning pipeline consumes.
type Settings struct {
	Enabled   bool
	MLEnabled bool
	Threshold float64
	Model     string
	Endpoint  string
	Timeout   time.Duration
	Source    string
}

// Settings returns the current pipeline settings.
func (c *Config) Settings() Settings {
	return Settings{
		Enabled:   c.Security.PromptEnabled,
		MLEnabled: c.Security.PromptMLEnabled,
		Threshold: c.Security.PromptThreshold,
		Model:     c.Security.PromptModel,
		Endpoint:  c.Classifier.Endpoint,
		Timeout:   c.Classifier.Timeout,
		Source:    c.Classifier.Source,
	}
}

// EnsureDir creates path with owner-only permissions if it does not exist.
func EnsureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
