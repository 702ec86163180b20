// Package api exposes the HTTP surface: the text2sql endpoint plus
// health, readiness, and metrics probes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sqlpilot/sqlpilot/internal/config"
	"github.com/sqlpilot/sqlpilot/internal/observability"
	"github.com/sqlpilot/sqlpilot/internal/workflow"
)

type ReadinessCheck func(ctx context.Context) error

// WorkflowRunner is the piece of the workflow service the handlers
// need.
type WorkflowRunner interface {
	Run(ctx context.Context, inputText string, maxIterations int, metadataName string) (workflow.State, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Workflow          WorkflowRunner
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	DefaultIterations int
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/text2sql", func(w http.ResponseWriter, r *http.Request) {
		handleText2SQL(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/text2sql", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckExecutor probes the SQL backend for readiness.
func CheckExecutor(pinger interface{ Ping(ctx context.Context) error }) ReadinessCheck {
	return func(ctx context.Context) error {
		if pinger == nil {
			return errors.New("sql executor is not configured")
		}
		return pinger.Ping(ctx)
	}
}

func CheckAIConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.AI.APIKey == "" {
			return errors.New("ai api key is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
