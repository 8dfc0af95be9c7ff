// Package server exposes the webhook endpoints that trigger remediation
// sessions, plus the operational surface (health probes, Prometheus metrics,
// optional debug echo).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sretools/remedian/internal/config"
	"github.com/sretools/remedian/internal/health"
	"github.com/sretools/remedian/internal/observe"
	"github.com/sretools/remedian/internal/session"
)

// shutdownGrace bounds how long in-flight requests may finish after the
// context is cancelled.
const shutdownGrace = 10 * time.Second

// Runner starts a remediation session for a webhook trigger.
type Runner interface {
	Run(ctx context.Context, req session.Request) (*session.Result, error)
}

// Server handles incoming webhooks and runs one session per notification.
type Server struct {
	cfg     config.ServerConfig
	prompts config.PromptsConfig
	runner  Runner
	metrics *observe.Metrics
	health  *health.Handler
	logger  *slog.Logger
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metrics instance used for request instrumentation and
// the active-session gauge.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealth registers the given health handler on the server's mux.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds a webhook server around the given session runner.
func New(cfg config.ServerConfig, prompts config.PromptsConfig, runner Runner, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		prompts: prompts,
		runner:  runner,
		health:  health.New(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler builds the full route table wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/grafana", s.handleGrafanaWebhook)
	mux.HandleFunc("POST /webhooks/gitlab", s.handleGitlabWebhook)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)
	if s.cfg.Debug {
		mux.HandleFunc("POST /debug", s.handleDebug)
	}
	return observe.Middleware(s.metrics)(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.ListenAddr,
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", s.cfg.ListenAddr, "tls", s.cfg.TLS != nil)
		var err error
		if s.cfg.TLS != nil {
			err = srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleGrafanaWebhook(w http.ResponseWriter, r *http.Request) {
	var payload GrafanaWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid webhook payload: %v", err), http.StatusBadRequest)
		return
	}

	summaries := payload.Summaries()
	s.logger.Info("received alert notification",
		"receiver", payload.Receiver, "status", payload.Status, "alerts", len(payload.Alerts))

	summaryJSON, err := json.Marshal(summaries)
	if err != nil {
		http.Error(w, "could not encode alert summaries", http.StatusInternalServerError)
		return
	}

	s.runSession(w, r, "grafana_alert", session.Request{
		SystemTemplate:   s.systemPrompt(),
		UserTemplate:     orDefault(s.prompts.Alert, defaultAlertPrompt),
		FollowUpTemplate: s.prompts.FollowUp,
		Values:           map[string]any{"alert_summaries": string(summaryJSON)},
	})
}

func (s *Server) handleGitlabWebhook(w http.ResponseWriter, r *http.Request) {
	var payload GitlabWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid webhook payload: %v", err), http.StatusBadRequest)
		return
	}
	if payload.ObjectKind != "merge_request" {
		http.Error(w, fmt.Sprintf("unsupported event kind %q", payload.ObjectKind), http.StatusBadRequest)
		return
	}

	s.logger.Info("received merge request notification",
		"project", payload.Project.PathWithNamespace,
		"merge_request", payload.ObjectAttributes.IID,
		"action", payload.ObjectAttributes.Action)

	s.runSession(w, r, "merge_request", session.Request{
		SystemTemplate:   s.systemPrompt(),
		UserTemplate:     orDefault(s.prompts.MergeRequest, defaultMergeRequestPrompt),
		FollowUpTemplate: s.prompts.FollowUp,
		Values: map[string]any{
			"project":       payload.Project.PathWithNamespace,
			"title":         payload.ObjectAttributes.Title,
			"state":         payload.ObjectAttributes.State,
			"source_branch": payload.ObjectAttributes.SourceBranch,
			"target_branch": payload.ObjectAttributes.TargetBranch,
			"url":           payload.ObjectAttributes.URL,
			"description":   payload.ObjectAttributes.Description,
		},
	})
}

// runSession executes one remediation session and writes its outcome as the
// webhook response. The trigger names the entry point ("grafana_alert" or
// "merge_request") and is recorded on the session span.
func (s *Server) runSession(w http.ResponseWriter, r *http.Request, trigger string, req session.Request) {
	ctx, span := observe.StartSessionSpan(r.Context(), trigger)
	defer span.End()
	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(ctx, -1)

	result, err := s.runner.Run(ctx, req)
	if err != nil {
		s.logger.Error("session could not start", "error", err)
		http.Error(w, "session could not start", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("writing webhook response", "error", err)
	}
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Info("debug request", "body", string(body))
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("{}"))
}

func (s *Server) systemPrompt() string {
	return orDefault(s.prompts.System, defaultSystemPrompt)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
