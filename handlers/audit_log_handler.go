package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ep-records/internal/observability"
	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/services"
	"github.com/upb/ep-records/utils"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 500
)

// AuditLogQuery is the query string accepted by the log endpoints
type AuditLogQuery struct {
	Action        string `validate:"omitempty,audit_action"`
	Module        string `validate:"omitempty,audit_module"`
	Level         string `validate:"omitempty,audit_level"`
	AffectedTable string
	User          string
	StartDate     string
	EndDate       string
	Page          int `validate:"gte=1"`
	Limit         int `validate:"gte=1,lte=500"`
}

// Pagination describes one page of a listing
type Pagination struct {
	CurrentPage    int `json:"current_page"`
	TotalPages     int `json:"total_pages"`
	TotalRecords   int `json:"total_records"`
	RecordsPerPage int `json:"records_per_page"`
}

// AuditLogEntry is a stored record plus the outcome of recomputing its checksum
type AuditLogEntry struct {
	*models.AuditLog
	Verified bool `json:"verified"`
}

// AuditLogPage is the body of the log endpoints
type AuditLogPage struct {
	Data           []AuditLogEntry   `json:"data"`
	Pagination     Pagination        `json:"pagination"`
	FiltersApplied map[string]string `json:"filters_applied"`
}

// AuditLogHandler serves read access to the audit trail
type AuditLogHandler struct {
	repo   repositories.AuditRepository
	logger *zap.Logger
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(repo repositories.AuditRepository, logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandleList handles GET /api/v1/logs, newest first
func (h *AuditLogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query, err := parsePaging(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	h.serve(w, r, repositories.AuditLogFilter{}, query, map[string]string{})
}

// HandleFilter handles GET /api/v1/logs/filter
func (h *AuditLogHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	query, err := parsePaging(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	values := r.URL.Query()
	query.Action = strings.ToUpper(strings.TrimSpace(values.Get("action")))
	query.Module = strings.ToUpper(strings.TrimSpace(values.Get("module")))
	query.Level = strings.ToUpper(strings.TrimSpace(values.Get("level")))
	query.AffectedTable = strings.ToUpper(strings.TrimSpace(values.Get("affected_table")))
	query.User = strings.TrimSpace(values.Get("user"))
	query.StartDate = strings.TrimSpace(values.Get("start_date"))
	query.EndDate = strings.TrimSpace(values.Get("end_date"))

	if err := utils.ValidateStruct(query); err != nil {
		writeEnumError(w, query, err)
		return
	}

	filter := repositories.AuditLogFilter{
		Action:        models.AuditAction(query.Action),
		Module:        models.AuditModule(query.Module),
		Level:         models.AuditLevel(query.Level),
		AffectedTable: query.AffectedTable,
		ActorName:     query.User,
	}
	applied := map[string]string{}
	for key, value := range map[string]string{
		"action":         query.Action,
		"module":         query.Module,
		"level":          query.Level,
		"affected_table": query.AffectedTable,
		"user":           query.User,
		"start_date":     query.StartDate,
		"end_date":       query.EndDate,
	} {
		if value != "" {
			applied[key] = value
		}
	}

	if query.StartDate != "" {
		from, err := parseDate(query.StartDate, false)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid start_date", nil)
			return
		}
		filter.From = &from
	}
	if query.EndDate != "" {
		to, err := parseDate(query.EndDate, true)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid end_date", nil)
			return
		}
		filter.To = &to
	}

	h.serve(w, r, filter, query, applied)
}

func (h *AuditLogHandler) serve(w http.ResponseWriter, r *http.Request, filter repositories.AuditLogFilter, query AuditLogQuery, applied map[string]string) {
	ctx := r.Context()
	log := observability.WithRequest(ctx, h.logger)
	offset := (query.Page - 1) * query.Limit

	logs, err := h.repo.List(ctx, filter, query.Limit, offset)
	if err != nil {
		log.Error("failed to list audit logs", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve logs")
		return
	}
	total, err := h.repo.Count(ctx, filter)
	if err != nil {
		log.Error("failed to count audit logs", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve logs")
		return
	}

	entries := make([]AuditLogEntry, 0, len(logs))
	for _, entry := range logs {
		entries = append(entries, h.verify(log, entry))
	}

	_ = utils.WriteJSON(w, http.StatusOK, AuditLogPage{
		Data: entries,
		Pagination: Pagination{
			CurrentPage:    query.Page,
			TotalPages:     (total + query.Limit - 1) / query.Limit,
			TotalRecords:   total,
			RecordsPerPage: query.Limit,
		},
		FiltersApplied: applied,
	})
}

// HandleGet handles GET /api/v1/logs/{id}
func (h *AuditLogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observability.WithRequest(ctx, h.logger)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid id format", nil)
		return
	}

	entry, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			HandleServiceError(w, services.ErrAuditLogNotFound, log)
			return
		}
		log.Error("failed to get audit log", zap.String("id", id.String()), zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve log")
		return
	}

	_ = utils.WriteOK(w, h.verify(log, entry))
}

// verify recomputes the checksum of a stored record. Mismatches are served
// flagged, never hidden.
func (h *AuditLogHandler) verify(log *zap.Logger, entry *models.AuditLog) AuditLogEntry {
	ok := entry.Verify()
	if !ok {
		log.Warn("audit log checksum mismatch",
			zap.String("id", entry.ID.String()),
			zap.String("action", string(entry.Action)),
			zap.String("affected_table", entry.AffectedTable))
	}
	return AuditLogEntry{AuditLog: entry, Verified: ok}
}

func parsePaging(r *http.Request) (AuditLogQuery, error) {
	query := AuditLogQuery{Page: defaultPage, Limit: defaultPageSize}
	values := r.URL.Query()

	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return query, fmt.Errorf("page must be a positive integer")
		}
		query.Page = n
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return query, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
		}
		query.Limit = n
	}
	return query, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// writeEnumError names the valid values of the first rejected enumeration
func writeEnumError(w http.ResponseWriter, query AuditLogQuery, err error) {
	fields := utils.GetValidationFields(err)
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}

	switch {
	case query.Action != "" && !models.AuditAction(query.Action).IsValid():
		_ = utils.WriteBadRequest(w, "Invalid action. Valid actions: "+join(models.AuditActions()), details)
	case query.Module != "" && !models.AuditModule(query.Module).IsValid():
		_ = utils.WriteBadRequest(w, "Invalid module. Valid modules: "+join(models.AuditModules()), details)
	case query.Level != "" && !models.AuditLevel(query.Level).IsValid():
		_ = utils.WriteBadRequest(w, "Invalid level. Valid levels: "+join(models.AuditLevels()), details)
	default:
		_ = utils.WriteBadRequest(w, "Validation failed", details)
	}
}

func join[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
