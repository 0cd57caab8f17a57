package audit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/upb/ep-records/models"
)

// Descriptor is what a domain handler reports after a significant action.
// Action, AffectedTable and Module are required; Action, Module and Level
// must belong to their enumerations.
type Descriptor struct {
	Action           string      `json:"action" validate:"required,audit_action"`
	AffectedTable    string      `json:"affected_table" validate:"required"`
	Module           string      `json:"module" validate:"required,audit_module"`
	AffectedRecordID string      `json:"affected_record_id,omitempty"`
	PreviousData     interface{} `json:"previous_data,omitempty"`
	NewData          interface{} `json:"new_data,omitempty"`
	Level            string      `json:"level,omitempty" validate:"omitempty,audit_level"`
	Description      string      `json:"description,omitempty"`
}

// normalized trims and upper-cases the enumerated and table fields.
func (d Descriptor) normalized() Descriptor {
	d.Action = strings.ToUpper(strings.TrimSpace(d.Action))
	d.AffectedTable = strings.ToUpper(strings.TrimSpace(d.AffectedTable))
	d.Module = strings.ToUpper(strings.TrimSpace(d.Module))
	d.Level = strings.ToUpper(strings.TrimSpace(d.Level))
	return d
}

// snapshots encodes the previous and new state payloads.
func (d Descriptor) snapshots() (json.RawMessage, json.RawMessage, error) {
	previous, err := encodeSnapshot(d.PreviousData)
	if err != nil {
		return nil, nil, fmt.Errorf("previous_data: %w", err)
	}
	next, err := encodeSnapshot(d.NewData)
	if err != nil {
		return nil, nil, fmt.Errorf("new_data: %w", err)
	}
	return previous, next, nil
}

func encodeSnapshot(v interface{}) (json.RawMessage, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(t) == 0 {
			return nil, nil
		}
		if !json.Valid(t) {
			return nil, fmt.Errorf("invalid JSON payload")
		}
		return t, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

// failureDescriptor summarizes a persistence failure of original as an
// ERROR record for the LOGS module.
func failureDescriptor(original Descriptor, cause error) Descriptor {
	return Descriptor{
		Action:        string(models.AuditActionError),
		AffectedTable: "SYSTEM",
		Module:        string(models.AuditModuleLogs),
		Level:         string(models.AuditLevelCritical),
		Description:   "Failed to save log: " + cause.Error(),
		NewData: map[string]interface{}{
			"original_log_data": original,
			"error_message":     cause.Error(),
		},
	}
}
