package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/upb/ep-records/config"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return Wrap(db, logger), nil
}

// Wrap adopts an existing pool. Used by tests with sqlmock.
func Wrap(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     db,
		logger: logger,
	}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

const principalSchema = `
	CREATE TABLE IF NOT EXISTS staff_users (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		role VARCHAR(64) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		status SMALLINT NOT NULL DEFAULT 0 CHECK (status IN (0, 1)),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (email, role)
	);

	CREATE TABLE IF NOT EXISTS instructors (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		document_number VARCHAR(64) NOT NULL UNIQUE,
		role VARCHAR(64) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		status SMALLINT NOT NULL DEFAULT 0 CHECK (status IN (0, 1)),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS apprentices (
		id UUID PRIMARY KEY,
		first_name VARCHAR(255) NOT NULL,
		last_name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL,
		document_type VARCHAR(16) NOT NULL,
		document_number VARCHAR(64) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		status SMALLINT NOT NULL DEFAULT 0 CHECK (status IN (0, 1)),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (document_type, document_number)
	);

	CREATE INDEX IF NOT EXISTS idx_staff_users_role_status ON staff_users(role, status);
	CREATE INDEX IF NOT EXISTS idx_instructors_role_status ON instructors(role, status);
	CREATE INDEX IF NOT EXISTS idx_apprentices_status ON apprentices(status);
`

// audit_logs uses json rather than jsonb so snapshots keep their exact bytes
// and the stored checksum stays verifiable after a round trip.
const auditSchema = `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		action VARCHAR(32) NOT NULL,
		affected_table VARCHAR(128) NOT NULL,
		affected_record_id VARCHAR(128),
		previous_data JSON,
		new_data JSON,
		user_name VARCHAR(255) NOT NULL DEFAULT 'SYSTEM',
		user_id UUID,
		module VARCHAR(32) NOT NULL,
		level VARCHAR(16) NOT NULL DEFAULT 'INFO',
		description TEXT,
		ip_address VARCHAR(64) NOT NULL DEFAULT 'UNKNOWN',
		checksum CHAR(64) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_module ON audit_logs(module);
	CREATE INDEX IF NOT EXISTS idx_audit_logs_level ON audit_logs(level);

	CREATE OR REPLACE FUNCTION audit_logs_immutable() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'audit_logs is append-only';
	END;
	$$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS audit_logs_no_update ON audit_logs;
	CREATE TRIGGER audit_logs_no_update
		BEFORE UPDATE OR DELETE ON audit_logs
		FOR EACH ROW EXECUTE FUNCTION audit_logs_immutable();
`

// InitSchema initializes the principal tables and, when the audit log shares
// this database, the audit table.
func (db *DB) InitSchema(ctx context.Context, withAudit bool) error {
	if _, err := db.ExecContext(ctx, principalSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	if withAudit {
		if err := db.InitAuditSchema(ctx); err != nil {
			return err
		}
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// InitAuditSchema initializes the append-only audit table and its
// immutability trigger.
func (db *DB) InitAuditSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	db.logger.Info("audit schema initialized successfully")
	return nil
}
