package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaffUser(t *testing.T) {
	u := NewStaffUser("Ana Gomez", "ana@example.com", RoleStaffVirtual, "hash")

	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, StatusActive, u.Status)
	assert.True(t, u.IsActive())
	assert.Equal(t, KindStaffUser, u.Kind())
	assert.Equal(t, RoleStaffVirtual, u.RoleLabel())
	assert.Equal(t, "Ana Gomez", u.DisplayName())
	assert.Equal(t, "staff_users", u.TableName())
}

func TestNewInstructorAndApprentice(t *testing.T) {
	i := NewInstructor("Marta Díaz", "marta@example.edu", "1020304050", RoleInstructorOwner, "hash")
	assert.NotEqual(t, uuid.Nil, i.ID)
	assert.True(t, i.IsActive())
	assert.Equal(t, RoleInstructorOwner, i.RoleLabel())
	assert.Equal(t, "1020304050", i.DocumentNumber)

	a := NewApprentice("Luisa", "Gómez", "luisa@example.edu", "CC", "998877", "hash")
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.True(t, a.IsActive())
	assert.Equal(t, RoleApprentice, a.RoleLabel())
	assert.Equal(t, "Luisa Gómez", a.DisplayName())
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
}

func TestPrincipal_Variants(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name      string
		principal Principal
		kind      PrincipalKind
		role      Role
		display   string
		active    bool
	}{
		{
			name:      "instructor owner",
			principal: &Instructor{ID: id, Name: "Luis", Role: RoleInstructorOwner, Status: StatusActive},
			kind:      KindInstructor,
			role:      RoleInstructorOwner,
			display:   "Luis",
			active:    true,
		},
		{
			name:      "inactive apprentice",
			principal: &Apprentice{ID: id, FirstName: "Maria", LastName: "Ruiz", Status: StatusInactive},
			kind:      KindApprentice,
			role:      RoleApprentice,
			display:   "Maria Ruiz",
			active:    false,
		},
		{
			name:      "apprentice without last name",
			principal: &Apprentice{ID: id, FirstName: "Maria"},
			kind:      KindApprentice,
			role:      RoleApprentice,
			display:   "Maria",
			active:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, id, tt.principal.PrincipalID())
			assert.Equal(t, tt.kind, tt.principal.Kind())
			assert.Equal(t, tt.role, tt.principal.RoleLabel())
			assert.Equal(t, tt.display, tt.principal.DisplayName())
			assert.Equal(t, tt.active, tt.principal.IsActive())
		})
	}
}

func TestActivationStatus(t *testing.T) {
	assert.True(t, StatusActive.IsValid())
	assert.True(t, StatusInactive.IsValid())
	assert.False(t, ActivationStatus(2).IsValid())
	assert.Equal(t, "active", StatusActive.String())
	assert.Equal(t, "inactive", StatusInactive.String())
}

func TestPrincipal_PasswordHashNotSerialized(t *testing.T) {
	u := NewStaffUser("Ana", "ana@example.com", RoleStaffOnSite, "secret-hash")

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
}

func TestAuditEnumerations(t *testing.T) {
	assert.Len(t, AuditActions(), 20)
	assert.Len(t, AuditModules(), 13)
	assert.Len(t, AuditLevels(), 4)

	assert.True(t, AuditActionResetPassword.IsValid())
	assert.True(t, AuditModulePSModalities.IsValid())
	assert.True(t, AuditLevelCritical.IsValid())

	assert.False(t, AuditAction("create").IsValid())
	assert.False(t, AuditModule("BILLING").IsValid())
	assert.False(t, AuditLevel("DEBUG").IsValid())
}

func TestNewAuditLog(t *testing.T) {
	log := NewAuditLog("create", "apprentices", "apprentices")

	assert.NotEqual(t, uuid.Nil, log.ID)
	assert.Equal(t, AuditActionCreate, log.Action)
	assert.Equal(t, "APPRENTICES", log.AffectedTable)
	assert.Equal(t, AuditModuleApprentices, log.Module)
	assert.Equal(t, AuditLevelInfo, log.Level)
	assert.Equal(t, SystemActor, log.ActorName)
	assert.Equal(t, UnknownAddress, log.IPAddress)
	assert.Nil(t, log.ActorID)
	assert.False(t, log.CreatedAt.IsZero())
	assert.Equal(t, "audit_logs", log.TableName())
}

func TestAuditLog_Builders(t *testing.T) {
	actorID := uuid.New()
	log := NewAuditLog(AuditActionUpdate, "USERS", AuditModuleUsers).
		WithRecord("42").
		WithSnapshots(json.RawMessage(`{"status":0}`), json.RawMessage(`{"status":1}`)).
		WithActor("Ana", &actorID).
		WithLevel("warning").
		WithDescription("status changed").
		WithIPAddress("10.0.0.1")

	require.NotNil(t, log.AffectedRecordID)
	assert.Equal(t, "42", *log.AffectedRecordID)
	assert.JSONEq(t, `{"status":0}`, string(log.PreviousData))
	assert.JSONEq(t, `{"status":1}`, string(log.NewData))
	assert.Equal(t, "Ana", log.ActorName)
	assert.Equal(t, &actorID, log.ActorID)
	assert.Equal(t, AuditLevelWarning, log.Level)
	require.NotNil(t, log.Description)
	assert.Equal(t, "status changed", *log.Description)
	assert.Equal(t, "10.0.0.1", log.IPAddress)
}

func TestAuditLog_EmptyBuilderValuesKeepDefaults(t *testing.T) {
	log := NewAuditLog(AuditActionView, "LOGS", AuditModuleLogs).
		WithRecord("").
		WithActor("", nil).
		WithLevel("").
		WithDescription("").
		WithIPAddress("")

	assert.Nil(t, log.AffectedRecordID)
	assert.Equal(t, SystemActor, log.ActorName)
	assert.Equal(t, AuditLevelInfo, log.Level)
	assert.Nil(t, log.Description)
	assert.Equal(t, UnknownAddress, log.IPAddress)
}

func TestAuditLog_Checksum(t *testing.T) {
	log := NewAuditLog(AuditActionDelete, "COMPANIES", AuditModuleCompanies).
		WithRecord("abc").
		WithDescription("removed").
		Seal()

	assert.Len(t, log.Checksum, 64)
	assert.True(t, log.Verify())

	log.ActorName = "Mallory"
	assert.False(t, log.Verify(), "mutated record must fail verification")
}

func TestAuditLog_ChecksumIgnoresTimezone(t *testing.T) {
	log := NewAuditLog(AuditActionView, "LOGS", AuditModuleLogs).Seal()

	loc := time.FixedZone("COT", -5*60*60)
	log.CreatedAt = log.CreatedAt.In(loc)
	assert.True(t, log.Verify())
}

func TestAuditLog_UnsealedDoesNotVerify(t *testing.T) {
	log := NewAuditLog(AuditActionView, "LOGS", AuditModuleLogs)
	assert.False(t, log.Verify())
}
