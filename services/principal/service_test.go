package principal

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/services"
	"github.com/upb/ep-records/services/audit"
)

type MockStaffRepo struct {
	mock.Mock
	repositories.StaffUserRepository
}

func (m *MockStaffRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StaffUser, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.StaffUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStaffRepo) ListByRoleAndStatus(ctx context.Context, role *models.Role, status *models.ActivationStatus) ([]*models.StaffUser, error) {
	args := m.Called(ctx, role, status)
	if u := args.Get(0); u != nil {
		return u.([]*models.StaffUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStaffRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActivationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockApprenticeRepo struct {
	mock.Mock
	repositories.ApprenticeRepository
}

func (m *MockApprenticeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Apprentice, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*models.Apprentice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockApprenticeRepo) ListByStatus(ctx context.Context, status *models.ActivationStatus) ([]*models.Apprentice, error) {
	args := m.Called(ctx, status)
	if a := args.Get(0); a != nil {
		return a.([]*models.Apprentice), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockApprenticeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ActivationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockInstructorRepo struct {
	mock.Mock
	repositories.InstructorRepository
}

func (m *MockInstructorRepo) ListByRoleAndStatus(ctx context.Context, role *models.Role, status *models.ActivationStatus) ([]*models.Instructor, error) {
	args := m.Called(ctx, role, status)
	if i := args.Get(0); i != nil {
		return i.([]*models.Instructor), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeTxManager runs fn inline and records the outcome
type fakeTxManager struct {
	committed  int
	rolledBack int
}

type fakeTx struct {
	mgr *fakeTxManager
	ctx context.Context
}

func (t *fakeTx) Commit() error            { t.mgr.committed++; return nil }
func (t *fakeTx) Rollback() error          { t.mgr.rolledBack++; return nil }
func (t *fakeTx) Context() context.Context { return t.ctx }

func (m *fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &fakeTx{mgr: m, ctx: ctx}, nil
}

func (m *fakeTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return services.WithTransaction(ctx, m, fn)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, d audit.Descriptor, credential string, network *audit.NetworkContext) bool {
	return m.Called(ctx, d, credential, network).Bool(0)
}

type fixture struct {
	staff       *MockStaffRepo
	instructors *MockInstructorRepo
	apprentices *MockApprenticeRepo
	tx          *fakeTxManager
	recorder    *MockRecorder
	svc         *Service
}

func newFixture() *fixture {
	f := &fixture{
		staff:       &MockStaffRepo{},
		instructors: &MockInstructorRepo{},
		apprentices: &MockApprenticeRepo{},
		tx:          &fakeTxManager{},
		recorder:    &MockRecorder{},
	}
	repos := &repositories.Repositories{
		StaffUsers:  f.staff,
		Instructors: f.instructors,
		Apprentices: f.apprentices,
	}
	f.svc = NewService(repos, f.tx, f.recorder, zap.NewNop())
	return f
}

func TestSetStatus_DeactivateApprentice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := uuid.New()
	network := &audit.NetworkContext{Direct: "10.0.0.9"}

	f.apprentices.On("GetByID", ctx, id).Return(&models.Apprentice{ID: id, Status: models.StatusActive}, nil)
	f.apprentices.On("UpdateStatus", ctx, id, models.StatusInactive).Return(nil)

	var recorded audit.Descriptor
	f.recorder.On("Record", ctx, mock.Anything, "staff-token", network).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(audit.Descriptor)
	}).Return(true)

	change, err := f.svc.SetStatus(ctx, models.KindApprentice, id, models.StatusInactive, "staff-token", network)

	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, change.Previous)
	assert.Equal(t, models.StatusInactive, change.Current)
	assert.False(t, change.Principal.IsActive())
	assert.Equal(t, 1, f.tx.committed)

	assert.Equal(t, "DEACTIVATE", recorded.Action)
	assert.Equal(t, "apprentices", recorded.AffectedTable)
	assert.Equal(t, "APPRENTICES", recorded.Module)
	assert.Equal(t, id.String(), recorded.AffectedRecordID)
	assert.Equal(t, map[string]int{"status": 0}, recorded.PreviousData)
	assert.Equal(t, map[string]int{"status": 1}, recorded.NewData)
}

func TestSetStatus_ActivateStaff(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := uuid.New()

	f.staff.On("GetByID", ctx, id).Return(&models.StaffUser{ID: id, Status: models.StatusInactive}, nil)
	f.staff.On("UpdateStatus", ctx, id, models.StatusActive).Return(nil)
	f.recorder.On("Record", ctx, mock.MatchedBy(func(d audit.Descriptor) bool {
		return d.Action == "ACTIVATE" && d.Module == "USERS"
	}), "", mock.Anything).Return(true)

	change, err := f.svc.SetStatus(ctx, models.KindStaffUser, id, models.StatusActive, "", nil)

	require.NoError(t, err)
	assert.True(t, change.Principal.IsActive())
	f.recorder.AssertExpectations(t)
}

func TestSetStatus_Failures(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name         string
		status       models.ActivationStatus
		setup        func(f *fixture)
		wantErr      error
		wantRollback int
	}{
		{
			name:    "invalid status",
			status:  models.ActivationStatus(5),
			wantErr: services.ErrInvalidStatus,
		},
		{
			name:   "missing principal",
			status: models.StatusInactive,
			setup: func(f *fixture) {
				f.apprentices.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrNotFound)
			},
			wantErr:      services.ErrPrincipalNotFound,
			wantRollback: 1,
		},
		{
			name:   "store returns no row and no error",
			status: models.StatusActive,
			setup: func(f *fixture) {
				f.apprentices.On("GetByID", mock.Anything, id).Return((*models.Apprentice)(nil), nil)
			},
			wantErr:      services.ErrPrincipalNotFound,
			wantRollback: 1,
		},
		{
			name:   "update affects no row",
			status: models.StatusInactive,
			setup: func(f *fixture) {
				f.apprentices.On("GetByID", mock.Anything, id).Return(&models.Apprentice{ID: id}, nil)
				f.apprentices.On("UpdateStatus", mock.Anything, id, models.StatusInactive).
					Return(errors.Join(errors.New("update apprentice"), repositories.ErrNotFound))
			},
			wantErr:      services.ErrPrincipalNotFound,
			wantRollback: 1,
		},
		{
			name:   "store failure",
			status: models.StatusInactive,
			setup: func(f *fixture) {
				f.apprentices.On("GetByID", mock.Anything, id).Return(nil, errors.New("connection reset"))
			},
			wantErr:      services.ErrInternal,
			wantRollback: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			change, err := f.svc.SetStatus(context.Background(), models.KindApprentice, id, tt.status, "", nil)

			assert.Nil(t, change)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantRollback, f.tx.rolledBack)
			assert.Zero(t, f.tx.committed)
			f.recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	active := models.StatusActive

	t.Run("staff by role", func(t *testing.T) {
		f := newFixture()
		role := models.RoleStaffVirtual
		f.staff.On("ListByRoleAndStatus", ctx, &role, &active).
			Return([]*models.StaffUser{{ID: uuid.New(), Role: role}}, nil)

		got, err := f.svc.List(ctx, models.KindStaffUser, Filter{Role: &role, Status: &active})

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.KindStaffUser, got[0].Kind())
	})

	t.Run("apprentices ignore role", func(t *testing.T) {
		f := newFixture()
		f.apprentices.On("ListByStatus", ctx, (*models.ActivationStatus)(nil)).
			Return([]*models.Apprentice{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

		got, err := f.svc.List(ctx, models.KindApprentice, Filter{})

		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("role of another kind", func(t *testing.T) {
		f := newFixture()
		role := models.RoleApprentice

		_, err := f.svc.List(ctx, models.KindInstructor, Filter{Role: &role})

		assert.ErrorIs(t, err, services.ErrInvalidRole)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		f.instructors.On("ListByRoleAndStatus", ctx, (*models.Role)(nil), (*models.ActivationStatus)(nil)).
			Return(nil, errors.New("timeout"))

		_, err := f.svc.List(ctx, models.KindInstructor, Filter{})

		assert.True(t, services.IsInternalError(err))
	})
}
