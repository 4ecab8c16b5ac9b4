// Package botauth issues and verifies the short-lived bearer token that
// guards the operator debug hook (favicon cache warm),
// separate from the client-facing admission cookie in pkg/token.
package botauth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the constant issuer claim on every token this package signs.
const Issuer = "cowcatwaf"

// DefaultTTL is how long an issued debug token remains valid.
const DefaultTTL = 1 * time.Hour

// Authenticator issues and verifies debug bearer tokens. primaryKey signs
// new tokens; secondaryKey, when set, is also accepted on verify so a key
// can be rotated without invalidating tokens issued under the old one.
type Authenticator struct {
	primaryKey   string
	secondaryKey string
}

// New builds an Authenticator. secondaryKey may be empty.
func New(primaryKey, secondaryKey string) *Authenticator {
	return &Authenticator{primaryKey: primaryKey, secondaryKey: secondaryKey}
}

// Issue signs a debug token for subject, valid for DefaultTTL.
func (a *Authenticator) Issue(subject string) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(DefaultTTL)),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := tok.SignedString([]byte(a.primaryKey))
	if err != nil {
		return "", fmt.Errorf("botauth: sign token: %w", err)
	}

	return signed, nil
}

// Verify validates a header value of the form "Bearer <token>" against the
// primary key, falling back to the secondary key when set. It returns an
// error if the header is malformed or the token is invalid under both keys.
func (a *Authenticator) Verify(header string) (*jwt.RegisteredClaims, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, fmt.Errorf("botauth: missing bearer prefix")
	}

	raw := parts[1]

	claims, err := parseWithKey(raw, a.primaryKey)
	if err != nil && a.secondaryKey != "" {
		claims, err = parseWithKey(raw, a.secondaryKey)
	}

	if err != nil {
		return nil, fmt.Errorf("botauth: %w", err)
	}

	return claims, nil
}

func parseWithKey(raw, key string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}

		return []byte(key), nil
	})
	if err != nil {
		return nil, err
	}

	return claims, nil
}
