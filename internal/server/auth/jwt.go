// Package auth issues and validates the short-lived HS256 access tokens that
// carry an account's username and role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Claims holds the registered claims plus username and role.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Issuer signs and parses access tokens with a shared secret.
type Issuer struct {
	secretKey []byte
	validity  time.Duration
	now       func() time.Time
}

func NewIssuer(secretKey []byte, validity time.Duration) *Issuer {
	return &Issuer{secretKey: secretKey, validity: validity, now: time.Now}
}

// Issue returns a signed token valid for the configured lifetime.
func (i *Issuer) Issue(username string, role models.Role) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
		Username: username,
		Role:     role.String(),
	})

	tokenString, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// Identity is what a validated token says about the caller.
type Identity struct {
	Username string
	Role     models.Role
}

// Parse validates tokenString and extracts the identity. Expired tokens yield
// common.ErrTokenExpired, everything else common.ErrInvalidToken.
func (i *Issuer) Parse(tokenString string) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Username == "" {
		return nil, common.ErrInvalidToken
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok {
		return nil, common.ErrInvalidToken
	}

	return &Identity{Username: claims.Username, Role: role}, nil
}
