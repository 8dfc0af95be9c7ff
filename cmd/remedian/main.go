// Command remedian is the autonomous infrastructure remediation agent. It
// listens for Grafana alert and GitLab merge request webhooks and runs one
// tool-calling model session per notification.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/sretools/remedian/internal/config"
	"github.com/sretools/remedian/internal/gateway"
	"github.com/sretools/remedian/internal/health"
	"github.com/sretools/remedian/internal/observe"
	"github.com/sretools/remedian/internal/redact"
	"github.com/sretools/remedian/internal/resilience"
	"github.com/sretools/remedian/internal/server"
	"github.com/sretools/remedian/internal/session"
	"github.com/sretools/remedian/internal/toolbox"
	gitlabtools "github.com/sretools/remedian/internal/tools/gitlab"
	grafanatools "github.com/sretools/remedian/internal/tools/grafana"
	k8stools "github.com/sretools/remedian/internal/tools/kubernetes"
	"github.com/sretools/remedian/pkg/provider/llm"
	"github.com/sretools/remedian/pkg/provider/llm/anyllm"
	"github.com/sretools/remedian/pkg/provider/llm/openai"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "remedian: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "remedian: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("remedian starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "remedian",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Model provider and gateway ────────────────────────────────────────────
	provider, err := buildProvider(cfg.Model)
	if err != nil {
		slog.Error("failed to create model provider", "err", err)
		return 1
	}
	gatewayOpts := []gateway.Option{gateway.WithRecorder(metrics)}
	if rl := cfg.Model.RateLimit; rl.Requests > 0 {
		limiter := resilience.NewWindowLimiter(rl.Requests, time.Duration(rl.WindowSeconds)*time.Second)
		gatewayOpts = append(gatewayOpts, gateway.WithLimiter(limiter))
		slog.Info("model rate limit active", "requests", rl.Requests, "window_seconds", rl.WindowSeconds)
	}
	gw := gateway.New(provider, cfg.Model.Name, gatewayOpts...)

	// ── Tool registry and health checks ───────────────────────────────────────
	registry := toolbox.NewRegistry(toolbox.Mode(cfg.Agent.Mode))
	var checkers []health.Checker

	k8s, err := k8stools.NewFromKubeconfig(cfg.Kubernetes.Kubeconfig,
		k8sOptions(cfg.Kubernetes)...)
	if err != nil {
		slog.Error("failed to create kubernetes client", "err", err)
		return 1
	}
	registry.AddGroup(toolbox.StaticGroup(k8s.Group()))
	checkers = append(checkers, health.Checker{Name: "kubernetes", Check: k8s.Ping})

	if cfg.Gitlab.BaseURL != "" {
		gl, err := gitlabtools.NewClient(gitlabtools.Config{
			BaseURL:      cfg.Gitlab.BaseURL,
			Token:        cfg.Gitlab.Token,
			ProjectID:    cfg.Gitlab.ProjectID,
			TargetBranch: cfg.Gitlab.TargetBranch,
		})
		if err != nil {
			slog.Error("failed to create gitlab client", "err", err)
			return 1
		}
		registry.AddGroup(gitlabtools.GroupFactory(gl, cfg.Gitlab.TargetBranch))
		checkers = append(checkers, health.Checker{Name: "gitlab", Check: gl.Ping})
		slog.Info("gitlab tools enabled", "base_url", cfg.Gitlab.BaseURL, "project_id", cfg.Gitlab.ProjectID)
	}

	if cfg.Grafana.BaseURL != "" {
		grafanaClient := grafanatools.NewClient(grafanatools.Config{
			BaseURL:    cfg.Grafana.BaseURL,
			Token:      cfg.Grafana.Token,
			Datasource: cfg.Grafana.Datasource,
		})
		registry.AddGroup(toolbox.StaticGroup(grafanatools.New(grafanaClient).Group()))
		checkers = append(checkers, health.Checker{Name: "grafana", Check: grafanaClient.Ping})
		slog.Info("grafana tools enabled", "base_url", cfg.Grafana.BaseURL)
	}

	// ── Session runner ────────────────────────────────────────────────────────
	redactPrefix := cfg.Agent.RedactPrefix
	if redactPrefix == "" {
		redactPrefix = "secret_"
	}
	runnerOpts := []session.Option{
		session.WithRecorder(metrics),
		session.WithLegacyTextClose(cfg.Agent.LegacyTextCloseEnabled()),
		session.WithDispatcherOptions(
			toolbox.WithRedactor(redact.New(redactPrefix)),
			toolbox.WithRecorder(metrics),
		),
	}
	if cfg.Agent.MaxTurns > 0 {
		runnerOpts = append(runnerOpts, session.WithMaxTurns(cfg.Agent.MaxTurns))
	}
	runner := session.NewRunner(gw, registry, runnerOpts...)

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := server.New(cfg.Server, cfg.Prompts, runner,
		server.WithMetrics(metrics),
		server.WithHealth(health.New(checkers...)),
	)

	slog.Info("server ready", "addr", cfg.Server.ListenAddr, "mode", cfg.Agent.Mode)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildProvider creates the configured completion backend. "openai" uses the
// native client; every other name goes through any-llm-go.
func buildProvider(cfg config.ModelConfig) (llm.Provider, error) {
	if cfg.Provider == "openai" {
		var opts []openai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(cfg.APIKey, opts...)
	}

	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	return anyllm.New(cfg.Provider, opts...)
}

func k8sOptions(cfg config.KubernetesConfig) []k8stools.Option {
	var opts []k8stools.Option
	if len(cfg.ExcludedLabelPrefixes) > 0 {
		opts = append(opts, k8stools.WithExcludedLabelPrefixes(cfg.ExcludedLabelPrefixes))
	}
	return opts
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
