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

const apprenticeColumns = `id, first_name, last_name, email, document_type, document_number, password_hash, status, created_at, updated_at`

// ApprenticeRepository implements the repositories.ApprenticeRepository interface
type ApprenticeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewApprenticeRepository creates a new apprentice repository
func NewApprenticeRepository(db *DB, logger *zap.Logger) repositories.ApprenticeRepository {
	return &ApprenticeRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new apprentice
func (r *ApprenticeRepository) Create(ctx context.Context, apprentice *models.Apprentice) error {
	query := `
		INSERT INTO apprentices (id, first_name, last_name, email, document_type, document_number, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		apprentice.ID,
		apprentice.FirstName,
		apprentice.LastName,
		apprentice.Email,
		apprentice.DocumentType,
		apprentice.DocumentNumber,
		apprentice.PasswordHash,
		apprentice.Status,
		apprentice.CreatedAt,
		apprentice.UpdatedAt,
	)
	if err != nil {
		return createError("apprentice", err)
	}

	r.logger.Debug("apprentice created", zap.String("id", apprentice.ID.String()))
	return nil
}

// GetByID retrieves an apprentice by ID
func (r *ApprenticeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Apprentice, error) {
	query := `SELECT ` + apprenticeColumns + ` FROM apprentices WHERE id = $1`

	apprentice, err := scanApprentice(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("apprentice %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get apprentice: %w", err)
	}
	return apprentice, nil
}

// GetByDocument retrieves an apprentice for login
func (r *ApprenticeRepository) GetByDocument(ctx context.Context, documentType, documentNumber string) (*models.Apprentice, error) {
	query := `SELECT ` + apprenticeColumns + ` FROM apprentices WHERE document_type = $1 AND document_number = $2`

	apprentice, err := scanApprentice(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, documentType, documentNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("apprentice by document: %w", repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get apprentice: %w", err)
	}
	return apprentice, nil
}

// ListByStatus retrieves apprentices; a nil status matches everything
func (r *ApprenticeRepository) ListByStatus(ctx context.Context, status *models.ActivationStatus) ([]*models.Apprentice, error) {
	where, args := roleStatusClause(nil, status)
	query := `SELECT ` + apprenticeColumns + ` FROM apprentices` + where + ` ORDER BY last_name, first_name`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query apprentices: %w", err)
	}
	defer rows.Close()

	var apprentices []*models.Apprentice
	for rows.Next() {
		apprentice, err := scanApprentice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan apprentice: %w", err)
		}
		apprentices = append(apprentices, apprentice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating apprentice rows: %w", err)
	}
	return apprentices, nil
}

// UpdateStatus sets the activation flag
func (r *ApprenticeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActivationStatus) error {
	return updateStatus(ctx, GetExecutor(ctx, r.db), "apprentices", id, status)
}

func scanApprentice(row rowScanner) (*models.Apprentice, error) {
	apprentice := &models.Apprentice{}
	err := row.Scan(
		&apprentice.ID,
		&apprentice.FirstName,
		&apprentice.LastName,
		&apprentice.Email,
		&apprentice.DocumentType,
		&apprentice.DocumentNumber,
		&apprentice.PasswordHash,
		&apprentice.Status,
		&apprentice.CreatedAt,
		&apprentice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return apprentice, nil
}
