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

const staffUserColumns = `id, name, email, role, password_hash, status, created_at, updated_at`

// StaffUserRepository implements the repositories.StaffUserRepository interface
type StaffUserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStaffUserRepository creates a new staff user repository
func NewStaffUserRepository(db *DB, logger *zap.Logger) repositories.StaffUserRepository {
	return &StaffUserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new staff user
func (r *StaffUserRepository) Create(ctx context.Context, user *models.StaffUser) error {
	query := `
		INSERT INTO staff_users (id, name, email, role, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Role,
		user.PasswordHash,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return createError("staff user", err)
	}

	r.logger.Debug("staff user created", zap.String("id", user.ID.String()), zap.String("role", string(user.Role)))
	return nil
}

// GetByID retrieves a staff user by ID
func (r *StaffUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StaffUser, error) {
	query := `SELECT ` + staffUserColumns + ` FROM staff_users WHERE id = $1`

	user, err := scanStaffUser(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("staff user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return user, nil
}

// GetActiveByEmailAndRole retrieves an active staff user for login
func (r *StaffUserRepository) GetActiveByEmailAndRole(ctx context.Context, email string, role models.Role) (*models.StaffUser, error) {
	query := `SELECT ` + staffUserColumns + ` FROM staff_users WHERE email = $1 AND role = $2 AND status = $3`

	user, err := scanStaffUser(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, email, role, models.StatusActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active staff user for email: %w", repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get staff user: %w", err)
	}
	return user, nil
}

// ListByRoleAndStatus retrieves staff users; nil filters match everything
func (r *StaffUserRepository) ListByRoleAndStatus(ctx context.Context, role *models.Role, status *models.ActivationStatus) ([]*models.StaffUser, error) {
	where, args := roleStatusClause(role, status)
	query := `SELECT ` + staffUserColumns + ` FROM staff_users` + where + ` ORDER BY name`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff users: %w", err)
	}
	defer rows.Close()

	var users []*models.StaffUser
	for rows.Next() {
		user, err := scanStaffUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staff user rows: %w", err)
	}
	return users, nil
}

// UpdateStatus sets the activation flag
func (r *StaffUserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActivationStatus) error {
	return updateStatus(ctx, GetExecutor(ctx, r.db), "staff_users", id, status)
}

func scanStaffUser(row rowScanner) (*models.StaffUser, error) {
	user := &models.StaffUser{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
