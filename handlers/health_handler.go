package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/ep-records/utils"
)

// readinessTimeout bounds all dependency checks of one readiness check
const readinessTimeout = 5 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db      *sql.DB
	auditDB *sql.DB
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. auditDB is checked separately
// only when it is a different pool from db.
func NewHealthHandler(db, auditDB *sql.DB, logger *zap.Logger) *HealthHandler {
	if auditDB == db {
		auditDB = nil
	}
	return &HealthHandler{
		db:      db,
		auditDB: auditDB,
		logger:  logger,
	}
}

// HandleHealth handles GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	check := func(name string, db *sql.DB) {
		if err := checkDatabase(ctx, db); err != nil {
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unhealthy"
			allHealthy = false
			return
		}
		checks[name] = "healthy"
	}

	check("database", h.db)
	if h.auditDB != nil {
		check("audit_database", h.auditDB)
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func checkDatabase(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return nil
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	var result int
	return db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
