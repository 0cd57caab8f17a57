package audit

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

// ErrNoCredential is returned by Decode when no credential was supplied
var ErrNoCredential = errors.New("no credential")

// CredentialDecoder verifies a credential. *token.Codec satisfies it.
type CredentialDecoder interface {
	Verify(credential string) (*token.ParsedClaims, error)
}

// StaffDirectory looks up staff users by id
type StaffDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.StaffUser, error)
}

// Actor is the identity an audit record is attributed to.
type Actor struct {
	Name string
	ID   *uuid.UUID
}

// SystemActor returns the sentinel used when no staff user resolves.
func SystemActor() Actor {
	return Actor{Name: models.SystemActor}
}

// ActorIdentifier derives the audit actor from a raw credential on its own,
// without trusting any request context.
//
// The lookup only consults the staff directory. A credential issued to an
// instructor or apprentice therefore resolves to the SYSTEM actor.
type ActorIdentifier struct {
	decoder CredentialDecoder
	staff   StaffDirectory
	logger  *zap.Logger
}

// NewActorIdentifier creates an identifier over the credential decoder and staff directory
func NewActorIdentifier(decoder CredentialDecoder, staff StaffDirectory, logger *zap.Logger) *ActorIdentifier {
	return &ActorIdentifier{
		decoder: decoder,
		staff:   staff,
		logger:  logger,
	}
}

// Decode extracts the principal id from a credential.
func (a *ActorIdentifier) Decode(credential string) (uuid.UUID, error) {
	if credential == "" {
		return uuid.Nil, ErrNoCredential
	}
	claims, err := a.decoder.Verify(credential)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode credential: %w", err)
	}
	return claims.PrincipalID, nil
}

// Identify resolves the actor for credential. Every failure maps to the
// SYSTEM actor after being logged.
func (a *ActorIdentifier) Identify(ctx context.Context, credential string) Actor {
	id, err := a.Decode(credential)
	if err != nil {
		if !errors.Is(err, ErrNoCredential) {
			a.logger.Warn("audit actor credential not usable", zap.Error(err))
		}
		return SystemActor()
	}

	user, err := a.staff.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			a.logger.Error("audit actor lookup failed",
				zap.String("principal_id", id.String()),
				zap.Error(err))
		}
		return SystemActor()
	}
	if user == nil {
		return SystemActor()
	}

	return Actor{Name: user.Name, ID: &user.ID}
}
