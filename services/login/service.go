// Package login issues credentials to the three principal kinds.
package login

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/services"
	"github.com/upb/ep-records/services/audit"
	"github.com/upb/ep-records/token"
	"github.com/upb/ep-records/utils"
)

// Issuer signs credentials. *token.Codec satisfies it.
type Issuer interface {
	Issue(subject token.Subject) (string, time.Time, error)
}

// StaffRequest is a staff login form
type StaffRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Role     models.Role `json:"role" validate:"required,principal_role"`
	Password string      `json:"password" validate:"required"`
}

// InstructorRequest is an instructor login form
type InstructorRequest struct {
	DocumentNumber string `json:"document_number" validate:"required"`
	Password       string `json:"password" validate:"required"`
}

// ApprenticeRequest is an apprentice login form
type ApprenticeRequest struct {
	DocumentType   string `json:"document_type" validate:"required"`
	DocumentNumber string `json:"document_number" validate:"required"`
	Password       string `json:"password" validate:"required"`
}

// Result is a successful login
type Result struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Principal models.Principal `json:"principal"`
}

// Service authenticates principals and issues credentials
type Service struct {
	staff       repositories.StaffUserRepository
	instructors repositories.InstructorRepository
	apprentices repositories.ApprenticeRepository
	issuer      Issuer
	recorder    audit.Recorder
	logger      *zap.Logger
}

// NewService creates a new login service
func NewService(
	staff repositories.StaffUserRepository,
	instructors repositories.InstructorRepository,
	apprentices repositories.ApprenticeRepository,
	issuer Issuer,
	recorder audit.Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		staff:       staff,
		instructors: instructors,
		apprentices: apprentices,
		issuer:      issuer,
		recorder:    recorder,
		logger:      logger,
	}
}

// LoginStaff authenticates an active staff user holding the requested role.
// The LOGIN record is attributed to the user through the new credential.
func (s *Service) LoginStaff(ctx context.Context, req StaffRequest, network *audit.NetworkContext) (*Result, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.ValidateStruct(req); err != nil {
		return nil, services.ErrInvalidInput.WithDetail("reason", err.Error())
	}
	if !isStaffRole(req.Role) {
		return nil, services.ErrInvalidCredentials
	}

	user, err := s.staff.GetActiveByEmailAndRole(ctx, req.Email, req.Role)
	if err != nil {
		return nil, s.lookupFailure("staff", err)
	}
	if err := checkPassword(user.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Descriptor{
		Action:           string(models.AuditActionLogin),
		AffectedTable:    user.TableName(),
		Module:           string(models.AuditModuleUsers),
		AffectedRecordID: user.ID.String(),
		Description:      "staff user logged in",
	}, result.Token, network)

	return result, nil
}

// LoginInstructor authenticates an active instructor by document number
func (s *Service) LoginInstructor(ctx context.Context, req InstructorRequest, network *audit.NetworkContext) (*Result, error) {
	req.DocumentNumber = strings.TrimSpace(req.DocumentNumber)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, services.ErrInvalidInput.WithDetail("reason", err.Error())
	}

	instructor, err := s.instructors.GetByDocumentNumber(ctx, req.DocumentNumber)
	if err != nil {
		return nil, s.lookupFailure("instructor", err)
	}
	if !instructor.IsActive() {
		return nil, services.ErrInvalidCredentials
	}
	if err := checkPassword(instructor.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	result, err := s.issue(instructor)
	if err != nil {
		return nil, err
	}

	s.recordLogin(ctx, instructor.TableName(), models.AuditModuleInstructors, instructor.ID, network)
	return result, nil
}

// LoginApprentice authenticates an active apprentice by document type and number
func (s *Service) LoginApprentice(ctx context.Context, req ApprenticeRequest, network *audit.NetworkContext) (*Result, error) {
	req.DocumentType = strings.ToUpper(strings.TrimSpace(req.DocumentType))
	req.DocumentNumber = strings.TrimSpace(req.DocumentNumber)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, services.ErrInvalidInput.WithDetail("reason", err.Error())
	}

	apprentice, err := s.apprentices.GetByDocument(ctx, req.DocumentType, req.DocumentNumber)
	if err != nil {
		return nil, s.lookupFailure("apprentice", err)
	}
	if !apprentice.IsActive() {
		return nil, services.ErrInvalidCredentials
	}
	if err := checkPassword(apprentice.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	result, err := s.issue(apprentice)
	if err != nil {
		return nil, err
	}

	s.recordLogin(ctx, apprentice.TableName(), models.AuditModuleApprentices, apprentice.ID, network)
	return result, nil
}

// recordLogin writes a LOGIN record without a credential, so the actor is SYSTEM.
func (s *Service) recordLogin(ctx context.Context, table string, module models.AuditModule, id uuid.UUID, network *audit.NetworkContext) {
	s.recorder.Record(ctx, audit.Descriptor{
		Action:           string(models.AuditActionLogin),
		AffectedTable:    table,
		Module:           string(module),
		AffectedRecordID: id.String(),
		Description:      strings.ToLower(string(module)) + " logged in",
	}, "", network)
}

func (s *Service) issue(p models.Principal) (*Result, error) {
	credential, expiresAt, err := s.issuer.Issue(token.Subject{ID: p.PrincipalID(), Role: p.RoleLabel()})
	if err != nil {
		return nil, services.WrapInternal("failed to issue credential", err)
	}
	return &Result{
		Token:     credential,
		ExpiresAt: expiresAt.UTC(),
		Principal: p,
	}, nil
}

// lookupFailure hides whether the principal exists. Missing rows still pay
// for a bcrypt comparison so response timing does not reveal them.
func (s *Service) lookupFailure(kind string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte("invalid"))
		return services.ErrInvalidCredentials
	}
	s.logger.Error("login lookup failed", zap.String("kind", kind), zap.Error(err))
	return services.WrapInternal("failed to load principal", err)
}

func checkPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return services.ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns the bcrypt hash stored for a principal
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", services.ErrInvalidInput.WithDetail("field", "password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func isStaffRole(role models.Role) bool {
	for _, r := range models.StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	return dummy
}
