package principal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/services"
	"github.com/upb/ep-records/services/audit"
)

func (m *MockStaffRepo) Create(ctx context.Context, user *models.StaffUser) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockInstructorRepo) Create(ctx context.Context, instructor *models.Instructor) error {
	return m.Called(ctx, instructor).Error(0)
}

func (m *MockApprenticeRepo) Create(ctx context.Context, apprentice *models.Apprentice) error {
	return m.Called(ctx, apprentice).Error(0)
}

func TestRegisterStaffUser(t *testing.T) {
	ctx := context.Background()

	t.Run("stores an active user with a bcrypt hash", func(t *testing.T) {
		f := newFixture()
		var stored *models.StaffUser
		f.staff.On("Create", ctx, mock.AnythingOfType("*models.StaffUser")).Run(func(args mock.Arguments) {
			stored = args.Get(1).(*models.StaffUser)
		}).Return(nil)

		var recorded audit.Descriptor
		f.recorder.On("Record", ctx, mock.Anything, "", (*audit.NetworkContext)(nil)).Run(func(args mock.Arguments) {
			recorded = args.Get(1).(audit.Descriptor)
		}).Return(true)

		user, err := f.svc.RegisterStaffUser(ctx, StaffRegistration{
			Name:     "  Ana Gómez ",
			Email:    " Ana@Example.EDU ",
			Role:     "etapa productiva virtual",
			Password: "correct-horse",
		})

		require.NoError(t, err)
		require.Same(t, stored, user)
		assert.Equal(t, "Ana Gómez", user.Name)
		assert.Equal(t, "ana@example.edu", user.Email)
		assert.Equal(t, models.RoleStaffVirtual, user.Role)
		assert.True(t, user.IsActive())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))

		assert.Equal(t, "CREATE", recorded.Action)
		assert.Equal(t, "staff_users", recorded.AffectedTable)
		assert.Equal(t, "USERS", recorded.Module)
		assert.Equal(t, user.ID.String(), recorded.AffectedRecordID)
		snapshot, err := json.Marshal(recorded.NewData)
		require.NoError(t, err)
		assert.NotContains(t, string(snapshot), user.PasswordHash)
	})

	t.Run("unique violation maps to duplicate email", func(t *testing.T) {
		f := newFixture()
		f.staff.On("Create", ctx, mock.Anything).
			Return(fmt.Errorf("staff user violates staff_users_email_role_key: %w", repositories.ErrDuplicate))

		_, err := f.svc.RegisterStaffUser(ctx, StaffRegistration{
			Name: "Ana", Email: "ana@example.edu", Role: models.RoleStaffOnSite, Password: "correct-horse",
		})

		assert.Same(t, services.ErrDuplicateEmail, err)
		assert.True(t, services.IsConflictError(err))
		f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		f.staff.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

		_, err := f.svc.RegisterStaffUser(ctx, StaffRegistration{
			Name: "Ana", Email: "ana@example.edu", Role: models.RoleStaffOnSite, Password: "correct-horse",
		})

		assert.True(t, services.IsInternalError(err))
	})
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		register func(s *Service) error
		wantErr  error
	}{
		{
			name: "staff with instructor role",
			register: func(s *Service) error {
				_, err := s.RegisterStaffUser(ctx, StaffRegistration{
					Name: "Ana", Email: "ana@example.edu", Role: models.RoleInstructor, Password: "correct-horse",
				})
				return err
			},
			wantErr: services.ErrInvalidRole,
		},
		{
			name: "staff with short password",
			register: func(s *Service) error {
				_, err := s.RegisterStaffUser(ctx, StaffRegistration{
					Name: "Ana", Email: "ana@example.edu", Role: models.RoleStaffVirtual, Password: "short",
				})
				return err
			},
			wantErr: services.ErrInvalidInput,
		},
		{
			name: "instructor with staff role",
			register: func(s *Service) error {
				_, err := s.RegisterInstructor(ctx, InstructorRegistration{
					Name: "Marta", Email: "marta@example.edu", DocumentNumber: "1020", Role: models.RoleStaffOnSite, Password: "correct-horse",
				})
				return err
			},
			wantErr: services.ErrInvalidRole,
		},
		{
			name: "instructor without document",
			register: func(s *Service) error {
				_, err := s.RegisterInstructor(ctx, InstructorRegistration{
					Name: "Marta", Email: "marta@example.edu", DocumentNumber: "   ", Role: models.RoleInstructor, Password: "correct-horse",
				})
				return err
			},
			wantErr: services.ErrInvalidInput,
		},
		{
			name: "apprentice with invalid email",
			register: func(s *Service) error {
				_, err := s.RegisterApprentice(ctx, ApprenticeRegistration{
					FirstName: "Luisa", Email: "not-an-email", DocumentType: "CC", DocumentNumber: "998877", Password: "correct-horse",
				})
				return err
			},
			wantErr: services.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			err := tt.register(f.svc)

			assert.ErrorIs(t, err, tt.wantErr)
			f.staff.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.instructors.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.apprentices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterInstructor(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the instructor", func(t *testing.T) {
		f := newFixture()
		f.instructors.On("Create", ctx, mock.MatchedBy(func(i *models.Instructor) bool {
			return i.DocumentNumber == "1020304050" && i.Role == models.RoleInstructorOwner && i.IsActive()
		})).Return(nil)
		f.recorder.On("Record", ctx, mock.MatchedBy(func(d audit.Descriptor) bool {
			return d.Action == "CREATE" && d.Module == "INSTRUCTORS" && d.AffectedTable == "instructors"
		}), "", (*audit.NetworkContext)(nil)).Return(true)

		instructor, err := f.svc.RegisterInstructor(ctx, InstructorRegistration{
			Name:           "Marta Díaz",
			Email:          "marta@example.edu",
			DocumentNumber: " 1020304050 ",
			Role:           "instructor owner",
			Password:       "correct-horse",
		})

		require.NoError(t, err)
		assert.Equal(t, "Marta Díaz", instructor.DisplayName())
		f.instructors.AssertExpectations(t)
		f.recorder.AssertExpectations(t)
	})

	t.Run("duplicate document", func(t *testing.T) {
		f := newFixture()
		f.instructors.On("Create", ctx, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := f.svc.RegisterInstructor(ctx, InstructorRegistration{
			Name: "Marta", Email: "marta@example.edu", DocumentNumber: "1020", Role: models.RoleInstructor, Password: "correct-horse",
		})

		assert.Same(t, services.ErrDuplicateDocument, err)
	})
}

func TestRegisterApprentice(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the apprentice", func(t *testing.T) {
		f := newFixture()
		f.apprentices.On("Create", ctx, mock.MatchedBy(func(a *models.Apprentice) bool {
			return a.DocumentType == "CC" && a.DocumentNumber == "998877" && a.Email == "luisa@example.edu"
		})).Return(nil)
		f.recorder.On("Record", ctx, mock.MatchedBy(func(d audit.Descriptor) bool {
			return d.Action == "CREATE" && d.Module == "APPRENTICES"
		}), "", (*audit.NetworkContext)(nil)).Return(true)

		apprentice, err := f.svc.RegisterApprentice(ctx, ApprenticeRegistration{
			FirstName:      "Luisa",
			LastName:       "Gómez",
			Email:          "Luisa@Example.edu",
			DocumentType:   "cc",
			DocumentNumber: "998877",
			Password:       "correct-horse",
		})

		require.NoError(t, err)
		assert.Equal(t, models.RoleApprentice, apprentice.RoleLabel())
		f.apprentices.AssertExpectations(t)
	})

	t.Run("duplicate document", func(t *testing.T) {
		f := newFixture()
		f.apprentices.On("Create", ctx, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := f.svc.RegisterApprentice(ctx, ApprenticeRegistration{
			FirstName: "Luisa", Email: "luisa@example.edu", DocumentType: "CC", DocumentNumber: "998877", Password: "correct-horse",
		})

		assert.ErrorIs(t, err, services.ErrDuplicateDocument)
	})
}
