package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
)

const auditColumns = `id, action, affected_table, affected_record_id, previous_data, new_data,
	user_name, user_id, module, level, description, ip_address, checksum, created_at`

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends an audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, action, affected_table, affected_record_id, previous_data, new_data,
			user_name, user_id, module, level, description, ip_address, checksum, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.Action,
		log.AffectedTable,
		log.AffectedRecordID,
		nullableJSON(log.PreviousData),
		nullableJSON(log.NewData),
		log.ActorName,
		log.ActorID,
		log.Module,
		log.Level,
		log.Description,
		log.IPAddress,
		log.Checksum,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE id = $1`

	log, err := scanAuditLog(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit log %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return log, nil
}

// List retrieves audit logs matching the filter, newest first
func (r *AuditRepository) List(ctx context.Context, filter repositories.AuditLogFilter, limit, offset int) ([]*models.AuditLog, error) {
	where, args := auditFilterClause(filter)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_logs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		auditColumns, where, len(args)-1, len(args))

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}
	return logs, nil
}

// Count returns the number of audit logs matching the filter
func (r *AuditRepository) Count(ctx context.Context, filter repositories.AuditLogFilter) (int, error) {
	where, args := auditFilterClause(filter)
	query := `SELECT COUNT(*) FROM audit_logs` + where

	var total int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return total, nil
}

func auditFilterClause(filter repositories.AuditLogFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Action != "" {
		add("action = $%d", strings.ToUpper(string(filter.Action)))
	}
	if filter.Module != "" {
		add("module = $%d", strings.ToUpper(string(filter.Module)))
	}
	if filter.Level != "" {
		add("level = $%d", strings.ToUpper(string(filter.Level)))
	}
	if filter.AffectedTable != "" {
		add("affected_table = $%d", strings.ToUpper(filter.AffectedTable))
	}
	if filter.ActorName != "" {
		add("user_name ILIKE $%d", "%"+escapeLike(filter.ActorName)+"%")
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike escapes LIKE metacharacters so user input matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	log := &models.AuditLog{}
	var previous, next []byte
	err := row.Scan(
		&log.ID,
		&log.Action,
		&log.AffectedTable,
		&log.AffectedRecordID,
		&previous,
		&next,
		&log.ActorName,
		&log.ActorID,
		&log.Module,
		&log.Level,
		&log.Description,
		&log.IPAddress,
		&log.Checksum,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	log.PreviousData = previous
	log.NewData = next
	return log, nil
}
