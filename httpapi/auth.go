package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Authorizer issues and checks the bearer tokens that permit writes by Seguid.
// A nil Authorizer, or one with an empty key, authorizes nobody.
type Authorizer struct {
	key []byte
}

// NewAuthorizer produces an Authorizer for HS256 tokens signed with key.
func NewAuthorizer(key []byte) *Authorizer {
	return &Authorizer{key: key}
}

// Token mints a token for the given subject.
// A ttl of zero means the token does not expire.
func (a *Authorizer) Token(sub string, ttl time.Duration) (string, error) {
	if a == nil || len(a.key) == 0 {
		return "", errors.New("no signing key")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  sub,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	return signed, errors.Wrap(err, "signing token")
}

// Check validates a token and returns its subject.
func (a *Authorizer) Check(tok string) (string, error) {
	if a == nil || len(a.key) == 0 {
		return "", errors.New("no signing key")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (interface{}, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.Wrap(err, "parsing token")
	}
	return claims.Subject, nil
}

// Authorized tells whether r carries a valid bearer token.
func (a *Authorizer) Authorized(r *http.Request) bool {
	h := r.Header.Get("Authorization")
	tok := strings.TrimPrefix(h, "Bearer ")
	if tok == h || tok == "" {
		return false
	}
	_, err := a.Check(tok)
	return err == nil
}
