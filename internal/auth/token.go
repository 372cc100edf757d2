// Package auth issues and verifies the bearer tokens used by the API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify for any token that must not be
// trusted: malformed, bad signature, expired, wrong algorithm or no subject.
var ErrInvalidToken = errors.New("invalid token")

var signingMethod = jwt.SigningMethodHS256

// TokenService signs and verifies HS256 tokens whose subject is the user's
// email. It keeps no state besides the key.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService returns a TokenService for the given symmetric key.
func NewTokenService(secret []byte) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	return &TokenService{secret: secret, now: time.Now}, nil
}

// Issue returns a signed token for subject that expires ttl from now.
// Expiry has second precision, so a positive ttl is rounded up to the next
// whole second and a ttl of zero or less yields a token that never verifies.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject is required")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt(now, ttl)),
	}
	token := jwt.NewWithClaims(signingMethod, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, algorithm and expiry and returns the subject.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func expiresAt(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if ttl <= 0 {
		return exp
	}
	if whole := exp.Truncate(time.Second); whole.Before(exp) {
		return whole.Add(time.Second)
	}
	return exp
}
