package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/ep-records/models"
)

type loginForm struct {
	Email    string      `validate:"required,email"`
	Role     models.Role `validate:"required,principal_role"`
	Password string      `validate:"required,min=8"`
}

type auditForm struct {
	Action string `validate:"required,audit_action"`
	Module string `validate:"required,audit_module"`
	Level  string `validate:"omitempty,audit_level"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		err := ValidateStruct(loginForm{
			Email:    "ana@example.edu",
			Role:     models.RoleStaffVirtual,
			Password: "long-enough",
		})
		assert.NoError(t, err)
	})

	t.Run("reports every failing field", func(t *testing.T) {
		err := ValidateStruct(loginForm{Email: "invalid-email", Role: "ADMIN", Password: "short"})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "Email must be a valid email", fields["Email"])
		assert.Equal(t, "Role must be a known role", fields["Role"])
		assert.Equal(t, "Password must be at least 8", fields["Password"])
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateStruct(loginForm{Role: models.RoleApprentice, Password: "long-enough"})
		require.Error(t, err)
		assert.Equal(t, "Email is required", GetValidationFields(err)["Email"])
	})
}

func TestAuditEnumerationTags(t *testing.T) {
	tests := []struct {
		name    string
		form    auditForm
		invalid string
	}{
		{name: "upper case", form: auditForm{Action: "CREATE", Module: "APPRENTICES", Level: "INFO"}},
		{name: "lower case accepted", form: auditForm{Action: "reset_password", Module: "logs", Level: "critical"}},
		{name: "level optional", form: auditForm{Action: "LOGIN", Module: "USERS"}},
		{name: "unknown action", form: auditForm{Action: "DESTROY", Module: "USERS"}, invalid: "Action"},
		{name: "unknown module", form: auditForm{Action: "LOGIN", Module: "AUTH"}, invalid: "Module"},
		{name: "unknown level", form: auditForm{Action: "LOGIN", Module: "USERS", Level: "DEBUG"}, invalid: "Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.form)
			if tt.invalid == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, GetValidationFields(err), tt.invalid)
			assert.Len(t, GetValidationFields(err), 1)
		})
	}
}

func TestPrincipalRoleTag(t *testing.T) {
	for _, role := range models.AllRoles {
		assert.NoError(t, ValidateStruct(loginForm{Email: "a@b.co", Role: role, Password: "long-enough"}), role)
	}

	// roles are matched exactly
	err := ValidateStruct(loginForm{Email: "a@b.co", Role: "instructor", Password: "long-enough"})
	assert.Contains(t, GetValidationFields(err), "Role")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "Test validation error",
		Fields:  map[string]string{"field1": "error1"},
	}

	assert.Equal(t, "Test validation error", err.Error())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "test"}))
	assert.False(t, IsValidationError(assert.AnError))
	assert.False(t, IsValidationError(nil))
}

func TestGetValidationFields(t *testing.T) {
	t.Run("gets fields from validation error", func(t *testing.T) {
		fields := map[string]string{"field1": "error1", "field2": "error2"}

		assert.Equal(t, fields, GetValidationFields(&ValidationError{Message: "test", Fields: fields}))
	})

	t.Run("returns nil for non-validation error", func(t *testing.T) {
		assert.Nil(t, GetValidationFields(assert.AnError))
	})
}
