package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
)

var auditRowColumns = []string{
	"id", "action", "affected_table", "affected_record_id", "previous_data", "new_data",
	"user_name", "user_id", "module", "level", "description", "ip_address", "checksum", "created_at",
}

func TestAuditRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	log := models.NewAuditLog(models.AuditActionCreate, "companies", models.AuditModuleCompanies).
		WithRecord("c-1").
		WithSnapshots(nil, json.RawMessage(`{"name":"Acme"}`)).
		Seal()

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(
			log.ID, "CREATE", "COMPANIES", "c-1", nil, `{"name":"Acme"}`,
			"SYSTEM", nil, "COMPANIES", "INFO", nil, "UNKNOWN", log.Checksum, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_InsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectExec(`INSERT INTO audit_logs`).WillReturnError(assert.AnError)

	err := repo.Insert(context.Background(), models.NewAuditLog(models.AuditActionView, "LOGS", models.AuditModuleLogs))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAuditRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	id := uuid.New()
	actorID := uuid.New()
	created := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM audit_logs WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(auditRowColumns).AddRow(
			id.String(), "DEACTIVATE", "APPRENTICES", "a-9", []byte(`{"status":0}`), []byte(`{"status":1}`),
			"Ana", actorID.String(), "APPRENTICES", "INFO", nil, "10.0.0.7", "abc", created,
		))

	log, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionDeactivate, log.Action)
	require.NotNil(t, log.AffectedRecordID)
	assert.Equal(t, "a-9", *log.AffectedRecordID)
	assert.JSONEq(t, `{"status":0}`, string(log.PreviousData))
	require.NotNil(t, log.ActorID)
	assert.Equal(t, actorID, *log.ActorID)
	assert.Nil(t, log.Description)
	assert.Equal(t, "10.0.0.7", log.IPAddress)
}

func TestAuditRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	id := uuid.New()

	mock.ExpectQuery(`FROM audit_logs WHERE id`).WithArgs(id).WillReturnRows(sqlmock.NewRows(auditRowColumns))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestAuditRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	filter := repositories.AuditLogFilter{
		Action:    "login",
		Module:    models.AuditModuleUsers,
		ActorName: "an_a",
		From:      &from,
	}

	mock.ExpectQuery(`FROM audit_logs WHERE action = \$1 AND module = \$2 AND user_name ILIKE \$3 AND created_at >= \$4 ORDER BY created_at DESC LIMIT \$5 OFFSET \$6`).
		WithArgs("LOGIN", "USERS", `%an\_a%`, from, 50, 100).
		WillReturnRows(sqlmock.NewRows(auditRowColumns).AddRow(
			uuid.NewString(), "LOGIN", "USERS", nil, nil, nil,
			"Ana", nil, "USERS", "INFO", "login", "127.0.0.1", "abc", time.Now(),
		))

	logs, err := repo.List(context.Background(), filter, 50, 100)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].AffectedRecordID)
	assert.Nil(t, logs[0].ActorID)
	assert.Empty(t, logs[0].NewData)
	require.NotNil(t, logs[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_ListEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectQuery(`FROM audit_logs ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(auditRowColumns))

	logs, err := repo.List(context.Background(), repositories.AuditLogFilter{}, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

func TestAuditRepository_Count(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs WHERE level = \$1 AND affected_table = \$2`).
		WithArgs("CRITICAL", "SYSTEM").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.Count(context.Background(), repositories.AuditLogFilter{
		Level:         models.AuditLevelCritical,
		AffectedTable: "system",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
}
