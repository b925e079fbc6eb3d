package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/config"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(&config.JWTConfig{Secret: testSecret, ExpirationHours: 24})
	require.NoError(t, err)
	return svc
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestJWTService(t)
	actor := types.Actor{ID: uuid.New(), Name: "Ana", Role: types.RoleAgent}

	token, err := svc.GenerateToken(actor)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor, claims.GetActor())
	assert.Equal(t, "applydesk", claims.Issuer)
}

func TestJWTService_GenerateRejectsBadActor(t *testing.T) {
	svc := newTestJWTService(t)
	_, err := svc.GenerateToken(types.Actor{Role: types.RoleUser})
	assert.Error(t, err)
	_, err = svc.GenerateToken(types.Actor{ID: uuid.New(), Role: "root"})
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	svc := newTestJWTService(t)
	issued := time.Now().Add(-48 * time.Hour)
	svc.now = func() time.Time { return issued }
	token, err := svc.GenerateToken(types.Actor{ID: uuid.New(), Role: types.RoleUser})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestJWTService_WrongSecret(t *testing.T) {
	svc := newTestJWTService(t)
	other, err := NewJWTService(&config.JWTConfig{Secret: "another-secret-0123456789", ExpirationHours: 1})
	require.NoError(t, err)

	token, err := other.GenerateToken(types.Actor{ID: uuid.New(), Role: types.RoleUser})
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token signature")
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestJWTService(t)
	claims := &Claims{
		UserID:           uuid.New(),
		Role:             types.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_Malformed(t *testing.T) {
	svc := newTestJWTService(t)
	_, err := svc.ValidateToken("")
	assert.Error(t, err)
	_, err = svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestNewJWTService_ValidatesConfig(t *testing.T) {
	_, err := NewJWTService(nil)
	assert.Error(t, err)
	_, err = NewJWTService(&config.JWTConfig{Secret: "", ExpirationHours: 24})
	assert.Error(t, err)
}
