package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/ep-records/models"
)

const testSecret = "test-signing-secret"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestCodec(clock *fakeClock) *Codec {
	return NewCodec(testSecret, WithClock(clock.Now))
}

func TestCodec_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	codec := newTestCodec(clock)

	for _, role := range models.AllRoles {
		t.Run(string(role), func(t *testing.T) {
			id := uuid.New()

			credential, expiresAt, err := codec.Issue(Subject{ID: id, Role: role})
			require.NoError(t, err)
			require.NotEmpty(t, credential)
			assert.True(t, clock.t.Add(Lifetime).Equal(expiresAt))

			claims, err := codec.Verify(credential)
			require.NoError(t, err)
			assert.Equal(t, id, claims.PrincipalID)
			assert.Equal(t, role, claims.Role)
			assert.True(t, clock.t.Equal(claims.IssuedAt))
			assert.True(t, clock.t.Add(Lifetime).Equal(claims.ExpiresAt))
		})
	}
}

func TestCodec_IssueReturnsEmbeddedExpiry(t *testing.T) {
	// sub-second issuance; the exp claim only carries whole seconds
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 750_000_000, time.UTC)}
	codec := newTestCodec(clock)

	credential, expiresAt, err := codec.Issue(Subject{ID: uuid.New(), Role: models.RoleStaffOnSite})
	require.NoError(t, err)

	claims, err := codec.Verify(credential)
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(claims.ExpiresAt), "returned %s, embedded %s", expiresAt, claims.ExpiresAt)
	assert.Equal(t, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), expiresAt.UTC())
}

func TestCodec_Expiry(t *testing.T) {
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: issued}
	codec := newTestCodec(clock)

	credential, _, err := codec.Issue(Subject{ID: uuid.New(), Role: models.RoleApprentice})
	require.NoError(t, err)

	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{name: "fresh", elapsed: 0},
		{name: "one hour before expiry", elapsed: Lifetime - time.Hour},
		{name: "one second after expiry", elapsed: Lifetime + time.Second, wantErr: ErrExpired},
		{name: "a week later", elapsed: 7 * 24 * time.Hour, wantErr: ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.t = issued.Add(tt.elapsed)

			claims, err := codec.Verify(credential)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, claims)
		})
	}
}

func TestCodec_Malformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := newTestCodec(clock)

	valid, _, err := codec.Issue(Subject{ID: uuid.New(), Role: models.RoleInstructor})
	require.NoError(t, err)

	other, _, err := NewCodec("another-secret", WithClock(clock.Now)).
		Issue(Subject{ID: uuid.New(), Role: models.RoleInstructor})
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
		Role: string(models.RoleStaffVirtual),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name       string
		credential string
	}{
		{name: "empty", credential: ""},
		{name: "garbage", credential: "not-a-token"},
		{name: "truncated signature", credential: valid[:len(valid)-4]},
		{name: "foreign secret", credential: other},
		{name: "alg none", credential: noneAlg},
		{name: "missing role", credential: signRaw(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		}})},
		{name: "non uuid subject", credential: signRaw(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "12345",
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		}, Role: string(models.RoleApprentice)})},
		{name: "missing expiry", credential: signRaw(t, &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.NewString(),
		}, Role: string(models.RoleApprentice)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := codec.Verify(tt.credential)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.NotErrorIs(t, err, ErrExpired)
			assert.Nil(t, claims)
		})
	}
}

func TestCodec_EmptySecret(t *testing.T) {
	codec := NewCodec("")

	_, _, err := codec.Issue(Subject{ID: uuid.New(), Role: models.RoleApprentice})
	assert.ErrorIs(t, err, ErrSigningKey)

	_, err = codec.Verify("anything")
	assert.ErrorIs(t, err, ErrSigningKey)
}

func signRaw(t *testing.T, claims *Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}
