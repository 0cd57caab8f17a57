package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ep-records/middleware"
	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/services/audit"
	"github.com/upb/ep-records/services/principal"
	"github.com/upb/ep-records/utils"
)

// PrincipalService manages principals. *principal.Service satisfies it.
type PrincipalService interface {
	SetStatus(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, status models.ActivationStatus, credential string, network *audit.NetworkContext) (*principal.StatusChange, error)
	List(ctx context.Context, kind models.PrincipalKind, filter principal.Filter) ([]models.Principal, error)
}

// PrincipalHandler handles listing and activation of principals
type PrincipalHandler struct {
	principals PrincipalService
	trustProxy bool
	logger     *zap.Logger
}

// NewPrincipalHandler creates a new PrincipalHandler
func NewPrincipalHandler(principals PrincipalService, trustProxy bool, logger *zap.Logger) *PrincipalHandler {
	return &PrincipalHandler{
		principals: principals,
		trustProxy: trustProxy,
		logger:     logger,
	}
}

// HandleList handles GET /api/v1/{kind}?role=&status=
func (h *PrincipalHandler) HandleList(kind models.PrincipalKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter principal.Filter
		query := r.URL.Query()

		if raw := query.Get("role"); raw != "" {
			role := models.Role(raw)
			filter.Role = &role
		}
		if raw := query.Get("status"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				_ = utils.WriteBadRequest(w, "status must be 0 or 1", nil)
				return
			}
			status := models.ActivationStatus(n)
			filter.Status = &status
		}

		items, err := h.principals.List(r.Context(), kind, filter)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, items)
	}
}

// HandleSetStatus handles PUT /api/v1/{kind}/{id}/activate and .../deactivate
func (h *PrincipalHandler) HandleSetStatus(kind models.PrincipalKind, status models.ActivationStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid id format", nil)
			return
		}

		change, err := h.principals.SetStatus(ctx, kind, id, status,
			middleware.GetCredentialFromContext(ctx),
			middleware.NetworkContext(r, h.trustProxy))
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}

		h.logger.Info("principal status updated",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("kind", string(kind)),
			zap.String("principal_id", id.String()),
			zap.Stringer("status", status))
		_ = utils.WriteOK(w, change)
	}
}
