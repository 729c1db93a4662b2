package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/winstonhome/winston/internal/group"
)

// throttleBacklogTimeout bounds how long a request waits for a worker.
const throttleBacklogTimeout = 30 * time.Second

// healthCheckTimeout bounds each dependency check in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// RPC paths, bounded by the worker pool.
	r.Group(func(r chi.Router) {
		if s.cfg.Backlog > 0 {
			r.Use(middleware.ThrottleBacklog(s.cfg.Workers, s.cfg.Backlog, throttleBacklogTimeout))
		} else {
			r.Use(middleware.Throttle(s.cfg.Workers))
		}
		r.Get("/io", s.handleRPC)
		r.Get("/io/*", s.handleRPC)
		r.Get("/favicon.ico", s.handleRPC)
	})

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.hub != nil {
		r.Get(s.wsPath(), s.handleWebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		if s.executions != nil {
			r.Route("/triggers/executions", func(r chi.Router) {
				r.Get("/", s.handleListExecutions)
				r.Get("/{id}", s.handleGetExecution)
			})
		}
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleRPC executes the escaped request path and writes the router's
// text/plain response. A started call runs to completion even if the
// client goes away; device and proxy I/O timeouts are its only bound.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	resp := s.router.Handle(context.WithoutCancel(r.Context()), r.URL.EscapedPath())
	if resp.Quiet {
		markQuiet(r)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(resp.Status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(resp.Body))
}

// handleHealth reports the server version and the state of each configured
// dependency. Any failing check makes the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if len(s.checks) > 0 {
		results := make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check.HealthCheck(ctx)
			cancel()
			if err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				continue
			}
			results[name] = "ok"
		}
		body["checks"] = results
	}

	writeJSON(w, status, body)
}

// handleListExecutions returns recent trigger executions, newest first.
// Query parameters: group (optional), limit (optional, default 50).
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	execs, err := s.executions.ListExecutions(r.Context(), r.URL.Query().Get("group"), limit)
	if err != nil {
		s.logger.Error("listing trigger executions failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list executions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"executions": execs,
		"count":      len(execs),
	})
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := s.executions.GetExecution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, group.ErrExecutionNotFound) {
			writeError(w, r, http.StatusNotFound, "execution not found")
			return
		}
		s.logger.Error("getting trigger execution failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to get execution")
		return
	}
	writeJSON(w, http.StatusOK, exec)
}
