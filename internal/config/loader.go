package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.Model.Provider == "" {
		errs = append(errs, errors.New("model.provider is required"))
	}
	if cfg.Model.Name == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if cfg.Model.APIKey == "" {
		slog.Warn("model.api_key is empty; the backend will likely reject completions")
	}
	if cfg.Model.RateLimit.Requests < 0 || cfg.Model.RateLimit.WindowSeconds < 0 {
		errs = append(errs, errors.New("model.rate_limit values must not be negative"))
	}
	if (cfg.Model.RateLimit.Requests == 0) != (cfg.Model.RateLimit.WindowSeconds == 0) {
		errs = append(errs, errors.New("model.rate_limit.requests and window_seconds must be set together"))
	}

	if cfg.Agent.Mode != "" && !cfg.Agent.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("agent.mode %q is invalid; valid values: flat, gated", cfg.Agent.Mode))
	}
	if cfg.Agent.MaxTurns < 0 {
		errs = append(errs, errors.New("agent.max_turns must not be negative"))
	}

	if cfg.Gitlab.BaseURL != "" {
		if cfg.Gitlab.Token == "" {
			errs = append(errs, errors.New("gitlab.token is required when gitlab.base_url is set"))
		}
		if cfg.Gitlab.ProjectID <= 0 {
			errs = append(errs, errors.New("gitlab.project_id is required when gitlab.base_url is set"))
		}
		if cfg.Gitlab.TargetBranch == "" {
			errs = append(errs, errors.New("gitlab.target_branch is required when gitlab.base_url is set"))
		}
	}
	if cfg.Grafana.BaseURL != "" && cfg.Grafana.Token == "" {
		errs = append(errs, errors.New("grafana.token is required when grafana.base_url is set"))
	}

	if cfg.Prompts.Alert == "" && cfg.Prompts.MergeRequest == "" {
		slog.Warn("no prompt templates configured; webhook sessions will use built-in defaults")
	}

	return errors.Join(errs...)
}
