package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
)

const instructorColumns = `id, name, email, document_number, role, password_hash, status, created_at, updated_at`

// InstructorRepository implements the repositories.InstructorRepository interface
type InstructorRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewInstructorRepository creates a new instructor repository
func NewInstructorRepository(db *DB, logger *zap.Logger) repositories.InstructorRepository {
	return &InstructorRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new instructor
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	query := `
		INSERT INTO instructors (id, name, email, document_number, role, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		instructor.ID,
		instructor.Name,
		instructor.Email,
		instructor.DocumentNumber,
		instructor.Role,
		instructor.PasswordHash,
		instructor.Status,
		instructor.CreatedAt,
		instructor.UpdatedAt,
	)
	if err != nil {
		return createError("instructor", err)
	}

	r.logger.Debug("instructor created", zap.String("id", instructor.ID.String()))
	return nil
}

// GetByID retrieves an instructor by ID
func (r *InstructorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE id = $1`

	instructor, err := scanInstructor(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instructor %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get instructor: %w", err)
	}
	return instructor, nil
}

// GetByDocumentNumber retrieves an instructor for login
func (r *InstructorRepository) GetByDocumentNumber(ctx context.Context, documentNumber string) (*models.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE document_number = $1`

	instructor, err := scanInstructor(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, documentNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("instructor by document: %w", repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get instructor: %w", err)
	}
	return instructor, nil
}

// ListByRoleAndStatus retrieves instructors; nil filters match everything
func (r *InstructorRepository) ListByRoleAndStatus(ctx context.Context, role *models.Role, status *models.ActivationStatus) ([]*models.Instructor, error) {
	where, args := roleStatusClause(role, status)
	query := `SELECT ` + instructorColumns + ` FROM instructors` + where + ` ORDER BY name`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instructors: %w", err)
	}
	defer rows.Close()

	var instructors []*models.Instructor
	for rows.Next() {
		instructor, err := scanInstructor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instructor: %w", err)
		}
		instructors = append(instructors, instructor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instructor rows: %w", err)
	}
	return instructors, nil
}

// UpdateStatus sets the activation flag
func (r *InstructorRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActivationStatus) error {
	return updateStatus(ctx, GetExecutor(ctx, r.db), "instructors", id, status)
}

func scanInstructor(row rowScanner) (*models.Instructor, error) {
	instructor := &models.Instructor{}
	err := row.Scan(
		&instructor.ID,
		&instructor.Name,
		&instructor.Email,
		&instructor.DocumentNumber,
		&instructor.Role,
		&instructor.PasswordHash,
		&instructor.Status,
		&instructor.CreatedAt,
		&instructor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return instructor, nil
}
