package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of action an audit record describes.
type AuditAction string

const (
	AuditActionCreate        AuditAction = "CREATE"
	AuditActionUpdate        AuditAction = "UPDATE"
	AuditActionDelete        AuditAction = "DELETE"
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionLogout        AuditAction = "LOGOUT"
	AuditActionView          AuditAction = "VIEW"
	AuditActionExport        AuditAction = "EXPORT"
	AuditActionImport        AuditAction = "IMPORT"
	AuditActionAssign        AuditAction = "ASSIGN"
	AuditActionApprove       AuditAction = "APPROVE"
	AuditActionReject        AuditAction = "REJECT"
	AuditActionSubmit        AuditAction = "SUBMIT"
	AuditActionActivate      AuditAction = "ACTIVATE"
	AuditActionDeactivate    AuditAction = "DEACTIVATE"
	AuditActionResetPassword AuditAction = "RESET_PASSWORD"
	AuditActionEvaluate      AuditAction = "EVALUATE"
	AuditActionComment       AuditAction = "COMMENT"
	AuditActionBackup        AuditAction = "BACKUP"
	AuditActionRestore       AuditAction = "RESTORE"
	AuditActionError         AuditAction = "ERROR"
)

// AuditModule is the functional area an audit record belongs to.
type AuditModule string

const (
	AuditModuleApprentices  AuditModule = "APPRENTICES"
	AuditModuleInstructors  AuditModule = "INSTRUCTORS"
	AuditModuleCompanies    AuditModule = "COMPANIES"
	AuditModuleProjects     AuditModule = "PROJECTS"
	AuditModuleActivities   AuditModule = "ACTIVITIES"
	AuditModuleTrackings    AuditModule = "TRACKINGS"
	AuditModulePSModalities AuditModule = "PS_MODALITIES"
	AuditModuleParameters   AuditModule = "PARAMETERS"
	AuditModuleUsers        AuditModule = "USERS"
	AuditModuleReports      AuditModule = "REPORTS"
	AuditModuleLogs         AuditModule = "LOGS"
	AuditModuleSystem       AuditModule = "SYSTEM"
	AuditModuleGeneral      AuditModule = "GENERAL"
)

// AuditLevel is the severity of an audit record.
type AuditLevel string

const (
	AuditLevelInfo     AuditLevel = "INFO"
	AuditLevelWarning  AuditLevel = "WARNING"
	AuditLevelError    AuditLevel = "ERROR"
	AuditLevelCritical AuditLevel = "CRITICAL"
)

// SystemActor is the actor name recorded when no staff user resolves.
const SystemActor = "SYSTEM"

// UnknownAddress is recorded when no client address resolves.
const UnknownAddress = "UNKNOWN"

var (
	auditActions = []AuditAction{
		AuditActionCreate, AuditActionUpdate, AuditActionDelete, AuditActionLogin, AuditActionLogout,
		AuditActionView, AuditActionExport, AuditActionImport, AuditActionAssign, AuditActionApprove,
		AuditActionReject, AuditActionSubmit, AuditActionActivate, AuditActionDeactivate,
		AuditActionResetPassword, AuditActionEvaluate, AuditActionComment, AuditActionBackup,
		AuditActionRestore, AuditActionError,
	}
	auditModules = []AuditModule{
		AuditModuleApprentices, AuditModuleInstructors, AuditModuleCompanies, AuditModuleProjects,
		AuditModuleActivities, AuditModuleTrackings, AuditModulePSModalities, AuditModuleParameters,
		AuditModuleUsers, AuditModuleReports, AuditModuleLogs, AuditModuleSystem, AuditModuleGeneral,
	}
	auditLevels = []AuditLevel{AuditLevelInfo, AuditLevelWarning, AuditLevelError, AuditLevelCritical}
)

// AuditActions returns the closed action enumeration.
func AuditActions() []AuditAction { return append([]AuditAction(nil), auditActions...) }

// AuditModules returns the closed module enumeration.
func AuditModules() []AuditModule { return append([]AuditModule(nil), auditModules...) }

// AuditLevels returns the closed level enumeration.
func AuditLevels() []AuditLevel { return append([]AuditLevel(nil), auditLevels...) }

// IsValid reports whether a is in the action enumeration.
func (a AuditAction) IsValid() bool {
	for _, v := range auditActions {
		if a == v {
			return true
		}
	}
	return false
}

// IsValid reports whether m is in the module enumeration.
func (m AuditModule) IsValid() bool {
	for _, v := range auditModules {
		if m == v {
			return true
		}
	}
	return false
}

// IsValid reports whether l is in the level enumeration.
func (l AuditLevel) IsValid() bool {
	for _, v := range auditLevels {
		if l == v {
			return true
		}
	}
	return false
}

// AuditLog is an append-only audit trail entry. Rows are never updated or deleted.
type AuditLog struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Action           AuditAction     `json:"action" db:"action"`
	AffectedTable    string          `json:"affected_table" db:"affected_table"`
	AffectedRecordID *string         `json:"affected_record_id,omitempty" db:"affected_record_id"`
	PreviousData     json.RawMessage `json:"previous_data,omitempty" db:"previous_data"`
	NewData          json.RawMessage `json:"new_data,omitempty" db:"new_data"`
	ActorName        string          `json:"user_name" db:"user_name"`
	ActorID          *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Module           AuditModule     `json:"module" db:"module"`
	Level            AuditLevel      `json:"level" db:"level"`
	Description      *string         `json:"description,omitempty" db:"description"`
	IPAddress        string          `json:"ip_address" db:"ip_address"`
	Checksum         string          `json:"checksum" db:"checksum"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates an INFO-level record attributed to the SYSTEM actor.
func NewAuditLog(action AuditAction, affectedTable string, module AuditModule) *AuditLog {
	return &AuditLog{
		ID:            uuid.New(),
		Action:        AuditAction(strings.ToUpper(string(action))),
		AffectedTable: strings.ToUpper(affectedTable),
		Module:        AuditModule(strings.ToUpper(string(module))),
		Level:         AuditLevelInfo,
		ActorName:     SystemActor,
		IPAddress:     UnknownAddress,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

// WithRecord sets the affected record id
func (a *AuditLog) WithRecord(recordID string) *AuditLog {
	if recordID != "" {
		a.AffectedRecordID = &recordID
	}
	return a
}

// WithSnapshots sets the previous and new state payloads
func (a *AuditLog) WithSnapshots(previous, next json.RawMessage) *AuditLog {
	a.PreviousData = previous
	a.NewData = next
	return a
}

// WithActor sets the actor display name and id
func (a *AuditLog) WithActor(name string, id *uuid.UUID) *AuditLog {
	if name != "" {
		a.ActorName = name
	}
	a.ActorID = id
	return a
}

// WithLevel sets the severity; an empty level keeps INFO
func (a *AuditLog) WithLevel(level AuditLevel) *AuditLog {
	if level != "" {
		a.Level = AuditLevel(strings.ToUpper(string(level)))
	}
	return a
}

// WithDescription sets the free-text description
func (a *AuditLog) WithDescription(description string) *AuditLog {
	if description != "" {
		a.Description = &description
	}
	return a
}

// WithIPAddress sets the client address
func (a *AuditLog) WithIPAddress(ip string) *AuditLog {
	if ip != "" {
		a.IPAddress = ip
	}
	return a
}

// Seal computes and stores the record checksum.
func (a *AuditLog) Seal() *AuditLog {
	a.Checksum = a.ComputeChecksum()
	return a
}

// ComputeChecksum hashes the canonical content of the record. The checksum
// field itself is excluded.
func (a *AuditLog) ComputeChecksum() string {
	var b strings.Builder
	field := func(s string) {
		b.WriteString(s)
		b.WriteByte(0x1f)
	}
	field(a.ID.String())
	field(string(a.Action))
	field(a.AffectedTable)
	field(deref(a.AffectedRecordID))
	field(string(a.PreviousData))
	field(string(a.NewData))
	field(a.ActorName)
	if a.ActorID != nil {
		field(a.ActorID.String())
	} else {
		field("")
	}
	field(string(a.Module))
	field(string(a.Level))
	field(deref(a.Description))
	field(a.IPAddress)
	field(a.CreatedAt.UTC().Format(time.RFC3339Nano))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the stored checksum matches the record content.
func (a *AuditLog) Verify() bool {
	return a.Checksum != "" && a.Checksum == a.ComputeChecksum()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
