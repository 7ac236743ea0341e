package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devtrophies/trophies/internal/domain/shared"
	"github.com/devtrophies/trophies/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Developer Trophies API",
		"version":     s.config.Version,
		"description": "Achievement cards, levels and grid layout for GitHub profiles",
		"endpoints": map[string]string{
			"health":   "/health",
			"trophies": "/api/v1/trophies/{username}",
			"legacy":   "/api/trophies?username={username}",
		},
		"options": []string{keyColumns, keyTheme, keyAnimation, keyShowLocked, keyShowHidden},
	}

	writeJSON(w, r, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, r, http.StatusOK, status)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// TROPHY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetTrophies handles GET /api/v1/trophies/{username}
func (s *Server) handleGetTrophies(w http.ResponseWriter, r *http.Request) {
	s.handleTrophiesInternal(w, r, chi.URLParam(r, "username"))
}

// handleGetTrophiesByQuery handles GET /api/trophies?username=
func (s *Server) handleGetTrophiesByQuery(w http.ResponseWriter, r *http.Request) {
	s.handleTrophiesInternal(w, r, "")
}

func (s *Server) handleTrophiesInternal(w http.ResponseWriter, r *http.Request, pathUsername string) {
	if s.deps.GetTrophiesHandler == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Trophies handler not configured")
		return
	}

	q, err := parseTrophiesQuery(r.URL.Query(), pathUsername)
	if err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_request", "Invalid query options", err.Error())
		return
	}

	result, err := s.deps.GetTrophiesHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{Partial: result.IsPartial()})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// errorStatus maps a pipeline error to status and code.
func errorStatus(err error) (int, string, string) {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request", "Invalid request"
	case errors.Is(err, shared.ErrUserNotFound), shared.IsNotFound(err):
		return http.StatusNotFound, "user_not_found", "User not found"
	case errors.Is(err, shared.ErrProfileRateLimited), shared.IsRateLimited(err):
		return http.StatusForbidden, "rate_limited", "Upstream rate limit exceeded"
	case errors.Is(err, shared.ErrUpstreamUnavailable), shared.IsExternalService(err):
		return http.StatusBadGateway, "upstream_unavailable", "Failed to fetch stats"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "upstream_unavailable", "Failed to fetch stats"
	default:
		return http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred"
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := errorStatus(err)

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("trophies request failed", logger.StatusCode(status), logger.Err(err))
	} else {
		log.Info("trophies request rejected", logger.StatusCode(status), logger.Err(err))
	}

	details := ""
	if status == http.StatusBadRequest {
		details = err.Error()
	}
	writeJSONErrorWithDetails(w, r, status, code, message, details)
}
