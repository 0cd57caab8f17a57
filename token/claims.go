package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/upb/ep-records/models"
)

// ErrMissingClaim is returned when a required claim is absent
var ErrMissingClaim = errors.New("missing required claim")

// Claims is the wire form of a credential payload
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ParsedClaims are the verified contents of a credential
type ParsedClaims struct {
	PrincipalID uuid.UUID
	Role        models.Role
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// parseClaims converts wire claims into typed claims. Failures are reported as
// ErrMalformed so callers only ever see the two verification outcomes.
func parseClaims(claims *Claims) (*ParsedClaims, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w: sub", ErrMalformed, ErrMissingClaim)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sub: %v", ErrMalformed, err)
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("%w: %w: role", ErrMalformed, ErrMissingClaim)
	}

	parsed := &ParsedClaims{
		PrincipalID: id,
		Role:        models.Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}
	return parsed, nil
}
