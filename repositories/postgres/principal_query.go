package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// uniqueViolation is the SQLSTATE postgres reports for a unique constraint
const uniqueViolation pq.ErrorCode = "23505"

// createError wraps an insert failure, tagging unique violations with
// repositories.ErrDuplicate.
func createError(entity string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s violates %s: %w", entity, pqErr.Constraint, repositories.ErrDuplicate)
	}
	return fmt.Errorf("failed to create %s: %w", entity, err)
}

// roleStatusClause builds the optional WHERE clause for find-by-role-and-status.
func roleStatusClause(role *models.Role, status *models.ActivationStatus) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if role != nil {
		args = append(args, *role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if status != nil {
		args = append(args, *status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// updateStatus flips the activation flag of one principal row. table is
// always a package constant, never caller input.
func updateStatus(ctx context.Context, executor Executor, table string, id uuid.UUID, status models.ActivationStatus) error {
	query := `UPDATE ` + table + ` SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := executor.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update %s status: %w", table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", table, id, repositories.ErrNotFound)
	}
	return nil
}
