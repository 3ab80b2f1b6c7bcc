package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"squadreg/config"
)

// IdentityClaims is the payload of an identity token. The subject is the
// only thing the registration core ever reads out of it.
type IdentityClaims struct {
	jwt.RegisteredClaims
}

// Verifier checks identity tokens issued by the auth frontend and extracts
// the stable subject id.
type Verifier struct {
	key []byte
}

var (
	verifierOnce sync.Once
	verifier     *Verifier
)

// IdentityVerifier returns the process-wide verifier, built from config on
// first use. The sync.Once guard keeps concurrent first requests from
// double-initializing it.
func IdentityVerifier() *Verifier {
	verifierOnce.Do(func() {
		verifier = NewVerifier([]byte(config.AppConfig.IdentityKey))
	})
	return verifier
}

func NewVerifier(key []byte) *Verifier {
	return &Verifier{key: key}
}

// Verify parses the raw credential and returns the subject it was issued
// for. Anything short of a valid, unexpired, subject-bearing token fails.
func (v *Verifier) Verify(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token carries no subject")
	}
	return claims.Subject, nil
}

// Sign issues a token for the given subject. The server itself only
// verifies; this exists for local development and tests.
func (v *Verifier) Sign(subject string, ttl time.Duration) (string, error) {
	claims := &IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.key)
}
