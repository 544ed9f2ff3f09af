// Package rest exposes the decision engine over JSON HTTP.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bibbank/phishguard/internal/application/dto"
	"github.com/bibbank/phishguard/internal/application/usecase"
	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/pkg/auth"
)

const maxBodyBytes = 1 << 20

// UseCases groups the application use cases served over HTTP.
type UseCases struct {
	ScanURL         *usecase.ScanURL
	QuickScan       *usecase.QuickScan
	ScanBatch       *usecase.ScanBatch
	ScanWebpage     *usecase.ScanWebpage
	EvaluateDomain  *usecase.EvaluateDomain
	ExtractFeatures *usecase.ExtractFeatures
	SubmitFeedback  *usecase.SubmitFeedback
	GetFeedback     *usecase.GetFeedback
	InvalidateURL   *usecase.InvalidateURL
	ModelStatus     *usecase.GetModelStatus
}

// RouterConfig holds the optional parts of the HTTP surface. A nil JWT
// disables auth, a nil RateLimiter disables rate limiting and a nil Metrics
// handler leaves /metrics unmounted.
type RouterConfig struct {
	Metrics     http.Handler
	JWT         *auth.JWTService
	RateLimiter *RateLimiter
}

// Handler serves the /api/v1 endpoints.
type Handler struct {
	uc     UseCases
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(uc UseCases, logger *slog.Logger) *Handler {
	return &Handler{uc: uc, logger: logger}
}

// NewRouter builds the chi router with health, metrics and API routes.
func NewRouter(h *Handler, health *HealthHandler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWT, nil))
		r.Use(RateLimitMiddleware(cfg.RateLimiter))

		r.Group(func(r chi.Router) {
			r.Use(RequireScope(auth.ScopeScan))
			r.Post("/scan", h.Scan)
			r.Get("/scan/quick", h.QuickScan)
			r.Post("/scan/batch", h.ScanBatch)
			r.Post("/scan/webpage", h.ScanWebpage)
			r.Get("/domain/trust", h.DomainTrust)
			r.Get("/url/features", h.URLFeatures)
			r.Get("/models/status", h.ModelStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireScope(auth.ScopeFeedback))
			r.Post("/feedback", h.SubmitFeedback)
			r.Get("/feedback/{id}", h.GetFeedback)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireScope(auth.ScopeAdmin))
			r.Delete("/cache", h.InvalidateCache)
		})
	})

	return r
}

// Scan handles POST /api/v1/scan.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req dto.ScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.uc.ScanURL.Execute(r.Context(), req)
	if err != nil {
		h.writeUseCaseError(w, r, "scan", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// QuickScan handles GET /api/v1/scan/quick?url=.
func (h *Handler) QuickScan(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.QuickScan.Execute(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		h.writeUseCaseError(w, r, "quick scan", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ScanBatch handles POST /api/v1/scan/batch.
func (h *Handler) ScanBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.uc.ScanBatch.Execute(r.Context(), req)
	if err != nil {
		h.writeUseCaseError(w, r, "batch scan", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ScanWebpage handles POST /api/v1/scan/webpage.
func (h *Handler) ScanWebpage(w http.ResponseWriter, r *http.Request) {
	var req dto.WebpageScanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.uc.ScanWebpage.Execute(r.Context(), req)
	if err != nil {
		h.writeUseCaseError(w, r, "webpage scan", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// DomainTrust handles GET /api/v1/domain/trust?domain=.
func (h *Handler) DomainTrust(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.EvaluateDomain.Execute(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		h.writeUseCaseError(w, r, "domain trust", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// URLFeatures handles GET /api/v1/url/features?url=.
func (h *Handler) URLFeatures(w http.ResponseWriter, r *http.Request) {
	resp, err := h.uc.ExtractFeatures.Execute(r.URL.Query().Get("url"))
	if err != nil {
		h.writeUseCaseError(w, r, "feature extraction", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ModelStatus handles GET /api/v1/models/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.uc.ModelStatus.Execute())
}

// SubmitFeedback handles POST /api/v1/feedback.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req dto.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.uc.SubmitFeedback.Execute(r.Context(), req)
	if err != nil {
		h.writeUseCaseError(w, r, "submit feedback", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetFeedback handles GET /api/v1/feedback/{id}.
func (h *Handler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid feedback id")
		return
	}
	resp, err := h.uc.GetFeedback.Execute(r.Context(), id)
	if err != nil {
		h.writeUseCaseError(w, r, "get feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// InvalidateCache handles DELETE /api/v1/cache?url=.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.InvalidateURL.Execute(r.Context(), r.URL.Query().Get("url")); err != nil {
		h.writeUseCaseError(w, r, "invalidate cache", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeUseCaseError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeError(w, status, msg)
}

// statusForError maps domain sentinels to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrMalformedURL), errors.Is(err, model.ErrFeedbackInvalid):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrEnsembleUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
