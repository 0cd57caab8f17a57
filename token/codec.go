package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/upb/ep-records/models"
)

// Lifetime is the fixed validity window of every issued credential.
const Lifetime = 48 * time.Hour

var (
	// ErrExpired is returned when the credential is past its expiry
	ErrExpired = errors.New("credential expired")

	// ErrMalformed is returned when the signature or structure is invalid
	ErrMalformed = errors.New("malformed credential")

	// ErrSigningKey is returned when the codec has no usable signing secret
	ErrSigningKey = errors.New("signing key not configured")
)

// Subject identifies the principal a credential is issued for.
type Subject struct {
	ID   uuid.UUID
	Role models.Role
}

// Codec signs and verifies HS256 bearer credentials. It holds no state
// beyond the secret and is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// Option configures a Codec
type Option func(*Codec)

// WithClock overrides the time source used for issuance and expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec over the given signing secret
func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a credential for the subject that expires after Lifetime and
// returns the expiry embedded in it.
func (c *Codec) Issue(subject Subject) (string, time.Time, error) {
	if len(c.secret) == 0 {
		return "", time.Time{}, ErrSigningKey
	}

	now := c.now()
	expiresAt := jwt.NewNumericDate(now.Add(Lifetime))
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
		},
		Role: string(subject.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrSigningKey, err)
	}
	return signed, expiresAt.Time, nil
}

// Verify checks the signature and expiry of a credential and returns its claims.
// It performs no I/O.
func (c *Codec) Verify(credential string) (*ParsedClaims, error) {
	if len(c.secret) == 0 {
		return nil, ErrSigningKey
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	claims := &Claims{}
	tok, err := parser.ParseWithClaims(credential, claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !tok.Valid {
		return nil, ErrMalformed
	}

	return parseClaims(claims)
}
