// Package gateway resolves a bearer credential into a live, active principal
// for one request. Nothing is cached between requests, so deactivating a
// principal takes effect on its next request.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ep-records/models"
	"github.com/upb/ep-records/repositories"
	"github.com/upb/ep-records/token"
)

// State is a step of the dispatch state machine.
type State int

const (
	Unauthenticated State = iota
	CredentialChecked
	RoleSelected
	PrincipalLoaded
	Authorized
	Rejected
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case CredentialChecked:
		return "credential_checked"
	case RoleSelected:
		return "role_selected"
	case PrincipalLoaded:
		return "principal_loaded"
	case Authorized:
		return "authorized"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Verifier decodes a credential. *token.Codec satisfies it.
type Verifier interface {
	Verify(credential string) (*token.ParsedClaims, error)
}

// StaffUserFinder loads staff users by id
type StaffUserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.StaffUser, error)
}

// InstructorFinder loads instructors by id
type InstructorFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Instructor, error)
}

// ApprenticeFinder loads apprentices by id
type ApprenticeFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Apprentice, error)
}

// Loaders holds one store per principal variant. All three are required.
type Loaders struct {
	StaffUsers  StaffUserFinder
	Instructors InstructorFinder
	Apprentices ApprenticeFinder
}

// LoadersFromRepositories wires the postgres-backed stores.
func LoadersFromRepositories(repos *repositories.Repositories) Loaders {
	return Loaders{
		StaffUsers:  repos.StaffUsers,
		Instructors: repos.Instructors,
		Apprentices: repos.Apprentices,
	}
}

type loadFunc func(ctx context.Context, id uuid.UUID) (models.Principal, error)

func adapt[T models.Principal](fn func(context.Context, uuid.UUID) (T, error)) loadFunc {
	return func(ctx context.Context, id uuid.UUID) (models.Principal, error) {
		p, err := fn(ctx, id)
		if err != nil {
			return nil, err
		}
		// a nil *T must not become a non-nil Principal
		var zero T
		if any(p) == any(zero) {
			return nil, nil
		}
		return p, nil
	}
}

// roleKinds is the fixed role to variant table.
var roleKinds = map[models.Role]models.PrincipalKind{
	models.RoleStaffVirtual:    models.KindStaffUser,
	models.RoleStaffOnSite:     models.KindStaffUser,
	models.RoleInstructor:      models.KindInstructor,
	models.RoleInstructorOwner: models.KindInstructor,
	models.RoleApprentice:      models.KindApprentice,
}

// KindForRole returns the principal variant a role claim selects.
func KindForRole(role models.Role) (models.PrincipalKind, bool) {
	kind, ok := roleKinds[role]
	return kind, ok
}

// Resolution is the outcome of a successful dispatch.
type Resolution struct {
	Kind      models.PrincipalKind
	Principal models.Principal
	Claims    *token.ParsedClaims
}

// Dispatcher runs the credential to principal state machine.
type Dispatcher struct {
	verifier Verifier
	table    map[models.PrincipalKind]loadFunc
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over the given verifier and stores
func NewDispatcher(verifier Verifier, loaders Loaders, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		verifier: verifier,
		table: map[models.PrincipalKind]loadFunc{
			models.KindStaffUser:  adapt(loaders.StaffUsers.GetByID),
			models.KindInstructor: adapt(loaders.Instructors.GetByID),
			models.KindApprentice: adapt(loaders.Apprentices.GetByID),
		},
		logger: logger,
	}
}

// Resolve runs one dispatch for a request. A *RejectionError is returned for
// every authentication or authorization failure; any other error is a store
// failure and should be treated as an internal error.
func (d *Dispatcher) Resolve(ctx context.Context, credential string, allowed []models.Role) (*Resolution, error) {
	if credential == "" {
		return nil, reject(ReasonMissingCredential, Unauthenticated, nil)
	}

	claims, err := d.verifier.Verify(credential)
	if err != nil {
		return nil, reject(ReasonInvalidCredential, Unauthenticated, err)
	}

	// CredentialChecked: the allow-list is checked before any store I/O.
	if !roleAllowed(claims.Role, allowed) {
		return nil, reject(ReasonForbidden, CredentialChecked,
			fmt.Errorf("role %q not allowed", claims.Role))
	}

	kind, ok := KindForRole(claims.Role)
	if !ok {
		return nil, reject(ReasonUnknownRole, CredentialChecked,
			fmt.Errorf("role %q has no principal variant", claims.Role))
	}

	// RoleSelected
	load, ok := d.table[kind]
	if !ok {
		return nil, fmt.Errorf("no loader registered for %s", kind)
	}
	principal, err := load(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, reject(ReasonPrincipalNotFound, RoleSelected, err)
		}
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, claims.PrincipalID, err)
	}
	if principal == nil {
		return nil, reject(ReasonPrincipalNotFound, RoleSelected, nil)
	}

	// PrincipalLoaded
	if !principal.IsActive() {
		return nil, reject(ReasonPrincipalInactive, PrincipalLoaded, nil)
	}

	d.logger.Debug("principal authorized",
		zap.String("kind", string(kind)),
		zap.String("principal_id", claims.PrincipalID.String()),
		zap.String("role", string(claims.Role)))

	return &Resolution{
		Kind:      kind,
		Principal: principal,
		Claims:    claims,
	}, nil
}

func roleAllowed(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
