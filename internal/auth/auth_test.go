package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamegraph/gamegraph/internal/models"
)

const testSecret = "test-secret-at-least-16-chars"

func TestNewTokenManager(t *testing.T) {
	_, err := NewTokenManager("short", 0)
	assert.Error(t, err)

	m, err := NewTokenManager(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, m.ttl)
}

func TestIssueValidate(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := m.Issue(models.UserRef{ID: 7, Username: "joueur7"})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, models.UserRef{ID: 7, Username: "joueur7"}, claims.Identity())
	assert.Equal(t, "7", claims.Subject)
}

func TestValidate_Expired(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	issuedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issuedAt }

	token, err := m.Issue(models.UserRef{ID: 1, Username: "joueur1"})
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	_, err = m.Validate(token)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidate_Rejects(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	other, err := NewTokenManager("another-secret-of-16-chars", time.Hour)
	require.NoError(t, err)

	forged, err := other.Issue(models.UserRef{ID: 1, Username: "joueur1"})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: 1, Username: "joueur1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noIdentity, err := m.Issue(models.UserRef{})
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":       "",
		"garbage":     "not-a-token",
		"wrong key":   forged,
		"alg none":    unsigned,
		"no identity": noIdentity,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Validate(tok)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.NoError(t, CheckPassword(hash, "password123"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, CheckPassword("not-a-hash", "password123"), ErrInvalidCredentials)
}
