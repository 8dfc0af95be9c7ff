// Package config provides the configuration schema and loader for the
// remedian server.
package config

// LogLevel controls log verbosity for the remedian server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ToolMode selects how tools are exposed to the model.
type ToolMode string

const (
	// ToolModeFlat advertises every tool from the first turn on.
	ToolModeFlat ToolMode = "flat"

	// ToolModeGated starts with only the router and closer tools; the
	// model unlocks tool categories on demand.
	ToolModeGated ToolMode = "gated"
)

// IsValid reports whether m is a recognised tool mode.
func (m ToolMode) IsValid() bool {
	return m == ToolModeFlat || m == ToolModeGated
}

// Config is the root configuration structure for remedian.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Agent      AgentConfig      `yaml:"agent"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Gitlab     GitlabConfig     `yaml:"gitlab"`
	Grafana    GrafanaConfig    `yaml:"grafana"`
	Prompts    PromptsConfig    `yaml:"prompts"`
}

// ServerConfig holds network and logging settings for the webhook server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`

	// Debug enables the /debug endpoints for inspecting prompt rendering.
	Debug bool `yaml:"debug"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ModelConfig selects and authenticates the LLM backend.
type ModelConfig struct {
	// Provider selects the completion backend implementation. "openai"
	// talks to an OpenAI-compatible API; any other value is passed to the
	// any-llm gateway (e.g., "anthropic", "mistral", "ollama").
	Provider string `yaml:"provider"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Name is the model identifier sent with every completion
	// (e.g., "gpt-4o", "gemini-2.5-flash").
	Name string `yaml:"name"`

	// RateLimit paces completions across all concurrent sessions.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a fixed window: at most Requests completions per
// WindowSeconds. Zero values disable pacing.
type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// AgentConfig tunes the session loop.
type AgentConfig struct {
	// Mode selects flat or gated tool exposure. Default: flat.
	Mode ToolMode `yaml:"mode"`

	// MaxTurns bounds model completions per session. Default: 25.
	MaxTurns int `yaml:"max_turns"`

	// LegacyTextClose accepts a closer-shaped JSON object in plain
	// assistant content as a session close. Default: true.
	LegacyTextClose *bool `yaml:"legacy_text_close"`

	// RedactPrefix marks argument and result keys whose values must never
	// reach the model or the logs. Default: "secret_".
	RedactPrefix string `yaml:"redact_prefix"`
}

// LegacyTextCloseEnabled resolves the tri-state yaml field.
func (a AgentConfig) LegacyTextCloseEnabled() bool {
	return a.LegacyTextClose == nil || *a.LegacyTextClose
}

// KubernetesConfig selects how the cluster client is built.
type KubernetesConfig struct {
	// Kubeconfig is the path to a kubeconfig file. Empty means in-cluster
	// configuration.
	Kubeconfig string `yaml:"kubeconfig"`

	// ExcludedLabelPrefixes drops node label keys with one of these
	// prefixes before they are reported to the model. Empty uses a
	// built-in list of well-known system prefixes.
	ExcludedLabelPrefixes []string `yaml:"excluded_label_prefixes"`
}

// GitlabConfig connects the merge request tools to a GitLab project.
// Leaving BaseURL empty disables the gitlab tool group.
type GitlabConfig struct {
	// BaseURL is the GitLab instance address (e.g., "https://gitlab.example.com").
	BaseURL string `yaml:"base_url"`

	// Token is a project or personal access token with api scope.
	Token string `yaml:"token"`

	// ProjectID identifies the project merge requests are opened against.
	ProjectID int `yaml:"project_id"`

	// TargetBranch is the branch merge requests target (e.g., "main").
	TargetBranch string `yaml:"target_branch"`
}

// GrafanaConfig connects the usage tools to a Grafana instance with a
// Prometheus datasource. Leaving BaseURL empty disables the grafana group.
type GrafanaConfig struct {
	// BaseURL is the Grafana instance address.
	BaseURL string `yaml:"base_url"`

	// Token is a Grafana service account token.
	Token string `yaml:"token"`

	// Datasource is the name of the Prometheus datasource to proxy
	// queries through. Empty picks the first Prometheus datasource.
	Datasource string `yaml:"datasource"`
}

// PromptsConfig holds the prompt templates. Templates use {name}
// placeholders; {finish_function_name} is always available.
type PromptsConfig struct {
	// System is the developer message template seeded at session start.
	System string `yaml:"system"`

	// Alert is the user message template for Grafana alert sessions.
	Alert string `yaml:"alert"`

	// MergeRequest is the user message template for GitLab webhook sessions.
	MergeRequest string `yaml:"merge_request"`

	// FollowUp overrides the corrective message sent when the model stops
	// calling tools.
	FollowUp string `yaml:"follow_up"`
}
