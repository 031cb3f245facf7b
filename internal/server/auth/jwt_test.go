package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("super-secret"), 15*time.Minute)

	tok, err := iss.Issue("alice", models.RoleAdmin)
	require.NoError(t, err)

	id, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, models.RoleAdmin, id.Role)
}

func TestIssue_LifetimeMatchesValidity(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer([]byte("k"), 15*time.Minute)
	iss.now = func() time.Time { return fixed }

	tok, err := iss.Issue("bob", models.RoleRegular)
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, "Regular", claims.Role)
	assert.Equal(t, "bob", claims.Username)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	iss := NewIssuer([]byte("secret"), -1*time.Second)

	tok, err := iss.Issue("u1", models.RoleRegular)
	require.NoError(t, err)

	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewIssuer([]byte("right-secret"), time.Hour).Issue("u2", models.RoleRegular)
	require.NoError(t, err)

	_, err = NewIssuer([]byte("wrong-secret"), time.Hour).Parse(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer([]byte("k"), time.Hour).Parse("not.a.jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_UnknownRole(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Username:         "mallory",
		Role:             "Root",
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = NewIssuer(secret, time.Hour).Parse(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Username: "mallory",
		Role:     "Admin",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewIssuer([]byte("k"), time.Hour).Parse(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
