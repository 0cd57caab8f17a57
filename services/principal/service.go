// Package principal manages activation and listing of staff users,
// instructors and apprentices.
package principal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/services"
	"github.com/upb/ep-records/services/audit"
)

// Filter narrows a listing. Nil fields match everything.
type Filter struct {
	Role   *models.Role
	Status *models.ActivationStatus
}

// StatusChange is the outcome of an activation update
type StatusChange struct {
	Principal models.Principal        `json:"principal"`
	Previous  models.ActivationStatus `json:"previous_status"`
	Current   models.ActivationStatus `json:"status"`
}

// Service activates, deactivates and lists principals
type Service struct {
	repos    *repositories.Repositories
	txMgr    repositories.TransactionManager
	recorder audit.Recorder
	logger   *zap.Logger
}

// NewService creates a new principal service
func NewService(repos *repositories.Repositories, txMgr repositories.TransactionManager, recorder audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		repos:    repos,
		txMgr:    txMgr,
		recorder: recorder,
		logger:   logger,
	}
}

// SetStatus reads the principal and updates its activation flag in one
// transaction, then records ACTIVATE or DEACTIVATE against credential.
func (s *Service) SetStatus(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, status models.ActivationStatus, credential string, network *audit.NetworkContext) (*StatusChange, error) {
	if !status.IsValid() {
		return nil, services.ErrInvalidStatus
	}

	change, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*StatusChange, error) {
		p, err := s.load(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		previous := models.StatusActive
		if !p.IsActive() {
			previous = models.StatusInactive
		}
		if err := s.update(ctx, kind, id, status); err != nil {
			return nil, err
		}
		return &StatusChange{Principal: p, Previous: previous, Current: status}, nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrPrincipalNotFound
		}
		if services.GetErrorType(err) != "" {
			return nil, err
		}
		s.logger.Error("failed to update principal status",
			zap.String("kind", string(kind)),
			zap.String("principal_id", id.String()),
			zap.Error(err))
		return nil, services.WrapInternal("failed to update status", err)
	}
	setStatus(change.Principal, status)

	action := models.AuditActionActivate
	if status == models.StatusInactive {
		action = models.AuditActionDeactivate
	}
	table, module := auditTarget(kind)
	s.recorder.Record(ctx, audit.Descriptor{
		Action:           string(action),
		AffectedTable:    table,
		Module:           string(module),
		AffectedRecordID: id.String(),
		PreviousData:     map[string]int{"status": int(change.Previous)},
		NewData:          map[string]int{"status": int(status)},
		Description:      fmt.Sprintf("%s %s", kind, strings.ToLower(string(action))),
	}, credential, network)

	return change, nil
}

// List returns the principals of kind matching filter
func (s *Service) List(ctx context.Context, kind models.PrincipalKind, filter Filter) ([]models.Principal, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, services.ErrInvalidStatus
	}
	if filter.Role != nil && !roleBelongs(kind, *filter.Role) {
		return nil, services.ErrInvalidRole
	}

	var (
		out []models.Principal
		err error
	)
	switch kind {
	case models.KindStaffUser:
		var users []*models.StaffUser
		users, err = s.repos.StaffUsers.ListByRoleAndStatus(ctx, filter.Role, filter.Status)
		out = collect(users)
	case models.KindInstructor:
		var instructors []*models.Instructor
		instructors, err = s.repos.Instructors.ListByRoleAndStatus(ctx, filter.Role, filter.Status)
		out = collect(instructors)
	case models.KindApprentice:
		var apprentices []*models.Apprentice
		apprentices, err = s.repos.Apprentices.ListByStatus(ctx, filter.Status)
		out = collect(apprentices)
	default:
		return nil, services.ErrInvalidInput.WithDetail("kind", string(kind))
	}
	if err != nil {
		s.logger.Error("failed to list principals", zap.String("kind", string(kind)), zap.Error(err))
		return nil, services.WrapInternal("failed to list principals", err)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, kind models.PrincipalKind, id uuid.UUID) (models.Principal, error) {
	switch kind {
	case models.KindStaffUser:
		return found(s.repos.StaffUsers.GetByID(ctx, id))
	case models.KindInstructor:
		return found(s.repos.Instructors.GetByID(ctx, id))
	case models.KindApprentice:
		return found(s.repos.Apprentices.GetByID(ctx, id))
	}
	return nil, services.ErrInvalidInput.WithDetail("kind", string(kind))
}

// found converts a store lookup into a Principal. A nil *T with no error is
// reported as ErrNotFound instead of being boxed into a non-nil interface.
func found[T models.Principal](p T, err error) (models.Principal, error) {
	if err != nil {
		return nil, err
	}
	var zero T
	if any(p) == any(zero) {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (s *Service) update(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, status models.ActivationStatus) error {
	switch kind {
	case models.KindStaffUser:
		return s.repos.StaffUsers.UpdateStatus(ctx, id, status)
	case models.KindInstructor:
		return s.repos.Instructors.UpdateStatus(ctx, id, status)
	case models.KindApprentice:
		return s.repos.Apprentices.UpdateStatus(ctx, id, status)
	}
	return services.ErrInvalidInput.WithDetail("kind", string(kind))
}

func setStatus(p models.Principal, status models.ActivationStatus) {
	switch v := p.(type) {
	case *models.StaffUser:
		v.Status = status
	case *models.Instructor:
		v.Status = status
	case *models.Apprentice:
		v.Status = status
	}
}

func auditTarget(kind models.PrincipalKind) (string, models.AuditModule) {
	switch kind {
	case models.KindInstructor:
		return models.Instructor{}.TableName(), models.AuditModuleInstructors
	case models.KindApprentice:
		return models.Apprentice{}.TableName(), models.AuditModuleApprentices
	}
	return models.StaffUser{}.TableName(), models.AuditModuleUsers
}

func roleBelongs(kind models.PrincipalKind, role models.Role) bool {
	var roles []models.Role
	switch kind {
	case models.KindStaffUser:
		roles = models.StaffRoles
	case models.KindInstructor:
		roles = models.InstructorRoles
	case models.KindApprentice:
		roles = []models.Role{models.RoleApprentice}
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func collect[T models.Principal](items []T) []models.Principal {
	out := make([]models.Principal, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}
