package config

import (
	"os"
	"strconv"
	"time"
)

const envPrefix = "TOOLGUARD_"

// applyEnv overrides file values with TOOLGUARD_* environment variables.
// Malformed values are configuration errors rather than silently ignored.
func applyEnv(cfg *Config) error {
	if err := envBool("SECURITY_PROMPT_ENABLED", &cfg.Security.PromptEnabled); err != nil {
		return err
	}
	if err := envBool("SECURITY_PROMPT_ML_ENABLED", &cfg.Security.PromptMLEnabled); err != nil {
		return err
	}
	if err := envFloat("SECURITY_PROMPT_THRESHOLD", &cfg.Security.PromptThreshold); err != nil {
		return err
	}
	envString("SECURITY_PROMPT_MODEL", &cfg.Security.PromptModel)
	envString("CLASSIFIER_ENDPOINT", &cfg.Classifier.Endpoint)
	if err := envDuration("CLASSIFIER_TIMEOUT", &cfg.Classifier.Timeout); err != nil {
		return err
	}
	envString("HTTP_ADDR", &cfg.Server.Addr)
	envString("METRICS_ADDR", &cfg.Server.MetricsAddr)
	envString("AUDIT_LOG", &cfg.Audit.LogPath)
	envString("LOG_LEVEL", &cfg.Logging.Level)
	return nil
}

func getEnv(k string) (string, bool) {
	v := os.Getenv(envPrefix + k)
	return v, v != ""
}

func envString(k string, dst *string) {
	if v, ok := getEnv(k); ok {
		*dst = v
	}
}

func envBool(k string, dst *bool) error {
	v, ok := getEnv(k)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return &Error{Field: envPrefix + k, Msg: "invalid boolean " + strconv.Quote(v)}
	}
	*dst = b
	return nil
}

func envFloat(k string, dst *float64) error {
	v, ok := getEnv(k)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return &Error{Field: envPrefix + k, Msg: "invalid number " + strconv.Quote(v)}
	}
	*dst = f
	return nil
}

func envDuration(k string, dst *time.Duration) error {
	v, ok := getEnv(k)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return &Error{Field: envPrefix + k, Msg: "invalid duration " + strconv.Quote(v)}
	}
	*dst = d
	return nil
}
