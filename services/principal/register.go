package principal

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/services"
	"github.com/upb/ep-records/services/audit"
	"github.com/upb/ep-records/services/login"
	"github.com/upb/ep-records/utils"
)

// StaffRegistration describes a new staff user
type StaffRegistration struct {
	Name     string      `validate:"required,max=255"`
	Email    string      `validate:"required,email,max=255"`
	Role     models.Role `validate:"required,principal_role"`
	Password string      `validate:"required,min=8"`
}

// InstructorRegistration describes a new instructor
type InstructorRegistration struct {
	Name           string      `validate:"required,max=255"`
	Email          string      `validate:"required,email,max=255"`
	DocumentNumber string      `validate:"required,max=64"`
	Role           models.Role `validate:"required,principal_role"`
	Password       string      `validate:"required,min=8"`
}

// ApprenticeRegistration describes a new apprentice
type ApprenticeRegistration struct {
	FirstName      string `validate:"required,max=255"`
	LastName       string `validate:"max=255"`
	Email          string `validate:"required,email,max=255"`
	DocumentType   string `validate:"required,max=16"`
	DocumentNumber string `validate:"required,max=64"`
	Password       string `validate:"required,min=8"`
}

// RegisterStaffUser stores a new active staff user. The email must be unique
// within the role.
func (s *Service) RegisterStaffUser(ctx context.Context, req StaffRegistration) (*models.StaffUser, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = models.Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if err := validate(models.KindStaffUser, req, req.Role); err != nil {
		return nil, err
	}

	hash, err := login.HashPassword(req.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewStaffUser(req.Name, req.Email, req.Role, hash)
	if err := s.repos.StaffUsers.Create(ctx, user); err != nil {
		return nil, s.createFailure(models.KindStaffUser, err, services.ErrDuplicateEmail)
	}
	s.recordCreated(ctx, user)
	return user, nil
}

// RegisterInstructor stores a new active instructor. Document numbers are unique.
func (s *Service) RegisterInstructor(ctx context.Context, req InstructorRegistration) (*models.Instructor, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DocumentNumber = strings.TrimSpace(req.DocumentNumber)
	req.Role = models.Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if err := validate(models.KindInstructor, req, req.Role); err != nil {
		return nil, err
	}

	hash, err := login.HashPassword(req.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	instructor := models.NewInstructor(req.Name, req.Email, req.DocumentNumber, req.Role, hash)
	if err := s.repos.Instructors.Create(ctx, instructor); err != nil {
		return nil, s.createFailure(models.KindInstructor, err, services.ErrDuplicateDocument)
	}
	s.recordCreated(ctx, instructor)
	return instructor, nil
}

// RegisterApprentice stores a new active apprentice. The document type and
// number pair is unique.
func (s *Service) RegisterApprentice(ctx context.Context, req ApprenticeRegistration) (*models.Apprentice, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DocumentType = strings.ToUpper(strings.TrimSpace(req.DocumentType))
	req.DocumentNumber = strings.TrimSpace(req.DocumentNumber)
	if err := validate(models.KindApprentice, req, models.RoleApprentice); err != nil {
		return nil, err
	}

	hash, err := login.HashPassword(req.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	apprentice := models.NewApprentice(req.FirstName, req.LastName, req.Email, req.DocumentType, req.DocumentNumber, hash)
	if err := s.repos.Apprentices.Create(ctx, apprentice); err != nil {
		return nil, s.createFailure(models.KindApprentice, err, services.ErrDuplicateDocument)
	}
	s.recordCreated(ctx, apprentice)
	return apprentice, nil
}

func validate(kind models.PrincipalKind, req interface{}, role models.Role) error {
	if err := utils.ValidateStruct(req); err != nil {
		return services.ErrInvalidInput.WithDetail("reason", err.Error())
	}
	if !roleBelongs(kind, role) {
		return services.ErrInvalidRole.WithDetail("role", string(role))
	}
	return nil
}

func (s *Service) createFailure(kind models.PrincipalKind, err error, duplicate *services.DomainError) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		return duplicate
	}
	s.logger.Error("failed to create principal", zap.String("kind", string(kind)), zap.Error(err))
	return services.WrapInternal("failed to create principal", err)
}

// recordCreated writes a CREATE record attributed to SYSTEM. Password
// hashes never reach the snapshot.
func (s *Service) recordCreated(ctx context.Context, p models.Principal) {
	table, module := auditTarget(p.Kind())
	s.recorder.Record(ctx, audit.Descriptor{
		Action:           string(models.AuditActionCreate),
		AffectedTable:    table,
		Module:           string(module),
		AffectedRecordID: p.PrincipalID().String(),
		NewData:          p,
		Description:      string(p.Kind()) + " created",
	}, "", nil)
}
