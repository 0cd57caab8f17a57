package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/ep-records/middleware"
	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/services/audit"
	"github.com/upb/ep-records/services/login"
	"github.com/upb/ep-records/utils"
)

// LoginService issues credentials. *login.Service satisfies it.
type LoginService interface {
	LoginStaff(ctx context.Context, req login.StaffRequest, network *audit.NetworkContext) (*login.Result, error)
	LoginInstructor(ctx context.Context, req login.InstructorRequest, network *audit.NetworkContext) (*login.Result, error)
	LoginApprentice(ctx context.Context, req login.ApprenticeRequest, network *audit.NetworkContext) (*login.Result, error)
}

// AuthHandler handles login and current-principal requests
type AuthHandler struct {
	logins     LoginService
	trustProxy bool
	logger     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(logins LoginService, trustProxy bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		logins:     logins,
		trustProxy: trustProxy,
		logger:     logger,
	}
}

// HandleStaffLogin handles POST /api/v1/users/login
func (h *AuthHandler) HandleStaffLogin(w http.ResponseWriter, r *http.Request) {
	var req login.StaffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	h.respond(w, r, func(ctx context.Context, network *audit.NetworkContext) (*login.Result, error) {
		return h.logins.LoginStaff(ctx, req, network)
	})
}

// HandleInstructorLogin handles POST /api/v1/instructors/login
func (h *AuthHandler) HandleInstructorLogin(w http.ResponseWriter, r *http.Request) {
	var req login.InstructorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	h.respond(w, r, func(ctx context.Context, network *audit.NetworkContext) (*login.Result, error) {
		return h.logins.LoginInstructor(ctx, req, network)
	})
}

// HandleApprenticeLogin handles POST /api/v1/apprentices/login
func (h *AuthHandler) HandleApprenticeLogin(w http.ResponseWriter, r *http.Request) {
	var req login.ApprenticeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	h.respond(w, r, func(ctx context.Context, network *audit.NetworkContext) (*login.Result, error) {
		return h.logins.LoginApprentice(ctx, req, network)
	})
}

func (h *AuthHandler) respond(w http.ResponseWriter, r *http.Request, fn func(context.Context, *audit.NetworkContext) (*login.Result, error)) {
	ctx := r.Context()
	result, err := fn(ctx, middleware.NetworkContext(r, h.trustProxy))
	if err != nil {
		h.logger.Info("login failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("login succeeded",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("kind", string(result.Principal.Kind())),
		zap.String("principal_id", result.Principal.PrincipalID().String()))
	_ = utils.WriteOK(w, result)
}

// CurrentPrincipalResponse is the body of GET /api/v1/me
type CurrentPrincipalResponse struct {
	Kind      models.PrincipalKind `json:"kind"`
	Role      models.Role          `json:"role"`
	Principal models.Principal     `json:"principal"`
}

// HandleMe handles GET /api/v1/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	res := middleware.GetResolutionFromContext(r.Context())
	if res == nil || res.Principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}
	_ = utils.WriteOK(w, CurrentPrincipalResponse{
		Kind:      res.Kind,
		Role:      res.Principal.RoleLabel(),
		Principal: res.Principal,
	})
}
