package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/upb/ep-records/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint
var ErrDuplicate = errors.New("duplicate record")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction
	Context() context.Context
}

// StaffUserRepository handles staff user data operations
type StaffUserRepository interface {
	// Create creates a new staff user
	Create(ctx context.Context, user *models.StaffUser) error

	// GetByID retrieves a staff user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.StaffUser, error)

	// GetActiveByEmailAndRole retrieves an active staff user for login
	GetActiveByEmailAndRole(ctx context.Context, email string, role models.Role) (*models.StaffUser, error)

	// ListByRoleAndStatus retrieves staff users; nil filters match everything
	ListByRoleAndStatus(ctx context.Context, role *models.Role, status *models.ActivationStatus) ([]*models.StaffUser, error)

	// UpdateStatus sets the activation flag
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActivationStatus) error
}

// InstructorRepository handles instructor data operations
type InstructorRepository interface {
	// Create creates a new instructor
	Create(ctx context.Context, instructor *models.Instructor) error

	// GetByID retrieves an instructor by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Instructor, error)

	// GetByDocumentNumber retrieves an instructor for login
	GetByDocumentNumber(ctx context.Context, documentNumber string) (*models.Instructor, error)

	// ListByRoleAndStatus retrieves instructors; nil filters match everything
	ListByRoleAndStatus(ctx context.Context, role *models.Role, status *models.ActivationStatus) ([]*models.Instructor, error)

	// UpdateStatus sets the activation flag
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActivationStatus) error
}

// ApprenticeRepository handles apprentice data operations
type ApprenticeRepository interface {
	// Create creates a new apprentice
	Create(ctx context.Context, apprentice *models.Apprentice) error

	// GetByID retrieves an apprentice by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Apprentice, error)

	// GetByDocument retrieves an apprentice for login
	GetByDocument(ctx context.Context, documentType, documentNumber string) (*models.Apprentice, error)

	// ListByStatus retrieves apprentices; a nil status matches everything.
	// Apprentices carry a single role so there is no role filter.
	ListByStatus(ctx context.Context, status *models.ActivationStatus) ([]*models.Apprentice, error)

	// UpdateStatus sets the activation flag
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActivationStatus) error
}

// AuditLogFilter narrows an audit log query. Zero values match everything.
type AuditLogFilter struct {
	Action        models.AuditAction
	Module        models.AuditModule
	Level         models.AuditLevel
	AffectedTable string
	// ActorName matches case-insensitively as a substring
	ActorName string
	From      *time.Time
	To        *time.Time
}

// AuditRepository handles audit log data operations. It is append-only:
// there is no update or delete.
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// List retrieves audit logs matching the filter, newest first
	List(ctx context.Context, filter AuditLogFilter, limit, offset int) ([]*models.AuditLog, error)

	// Count returns the number of audit logs matching the filter
	Count(ctx context.Context, filter AuditLogFilter) (int, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	StaffUsers  StaffUserRepository
	Instructors InstructorRepository
	Apprentices ApprenticeRepository
	AuditLogs   AuditRepository
}
