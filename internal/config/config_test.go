package config_test

import (
	"strings"
	"testing"

	"github.com/sretools/remedian/internal/config"
)

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

model:
  provider: openai
  api_key: sk-test
  name: gpt-4o
  rate_limit:
    requests: 12
    window_seconds: 60

agent:
  mode: gated
  max_turns: 20
  legacy_text_close: false
  redact_prefix: secret_

kubernetes:
  kubeconfig: /etc/remedian/kubeconfig
  excluded_label_prefixes:
    - kubernetes.io/
    - topology.kubernetes.io/

gitlab:
  base_url: https://gitlab.example.com
  token: glpat-test
  project_id: 42
  target_branch: main

grafana:
  base_url: https://grafana.example.com
  token: glsa-test
  datasource: prometheus

prompts:
  system: "You remediate infrastructure alerts. Close with {finish_function_name}."
  alert: "Alerts fired: {alerts}"
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Model.Name != "gpt-4o" {
		t.Errorf("model.name: got %q, want %q", cfg.Model.Name, "gpt-4o")
	}
	if cfg.Model.RateLimit.Requests != 12 || cfg.Model.RateLimit.WindowSeconds != 60 {
		t.Errorf("model.rate_limit: got %+v", cfg.Model.RateLimit)
	}
	if cfg.Agent.Mode != config.ToolModeGated {
		t.Errorf("agent.mode: got %q, want gated", cfg.Agent.Mode)
	}
	if cfg.Agent.LegacyTextCloseEnabled() {
		t.Error("agent.legacy_text_close: expected disabled")
	}
	if len(cfg.Kubernetes.ExcludedLabelPrefixes) != 2 {
		t.Errorf("kubernetes.excluded_label_prefixes: got %v", cfg.Kubernetes.ExcludedLabelPrefixes)
	}
	if cfg.Gitlab.ProjectID != 42 {
		t.Errorf("gitlab.project_id: got %d, want 42", cfg.Gitlab.ProjectID)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := sampleYAML + "\nunknown_section:\n  foo: bar\n"
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLegacyTextClose_DefaultsToEnabled(t *testing.T) {
	var agent config.AgentConfig
	if !agent.LegacyTextCloseEnabled() {
		t.Error("legacy_text_close should default to enabled")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	yaml := `
server:
  log_level: verbose
model:
  provider: openai
  name: gpt-4o
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_MissingModel(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	if err == nil {
		t.Fatal("expected error for missing model section, got nil")
	}
	if !strings.Contains(err.Error(), "model.provider") || !strings.Contains(err.Error(), "model.name") {
		t.Errorf("error should list both missing model fields, got: %v", err)
	}
}

func TestValidate_InvalidToolMode(t *testing.T) {
	yaml := `
model:
  provider: openai
  name: gpt-4o
agent:
  mode: cascaded
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid agent.mode, got nil")
	}
	if !strings.Contains(err.Error(), "agent.mode") {
		t.Errorf("error should mention agent.mode, got: %v", err)
	}
}

func TestValidate_HalfConfiguredRateLimit(t *testing.T) {
	yaml := `
model:
  provider: openai
  name: gpt-4o
  rate_limit:
    requests: 12
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for half-configured rate limit, got nil")
	}
}

func TestValidate_GitlabRequiresToken(t *testing.T) {
	yaml := `
model:
  provider: openai
  name: gpt-4o
gitlab:
  base_url: https://gitlab.example.com
  project_id: 42
  target_branch: main
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for gitlab without token, got nil")
	}
	if !strings.Contains(err.Error(), "gitlab.token") {
		t.Errorf("error should mention gitlab.token, got: %v", err)
	}
}
