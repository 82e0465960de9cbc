// Package claims issues the signed claim token embedded in the disclosure
// mail. The heir page verifies it offline to confirm the record reference
// really came from the engine before prompting for decryption.
package claims

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mkarpenko/keywarden/internal/common"
)

type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an Issuer signing with the HS256 secret. ttl bounds how
// long a claim token stays verifiable; it should comfortably exceed the
// self-destruct grace window.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a claim token for the given record, anchored at the disclosure
// instant.
func (i *Issuer) Issue(recordID string, disclosedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   recordID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(disclosedAt),
		ExpiresAt: jwt.NewNumericDate(disclosedAt.Add(i.ttl)),
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing claim token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the record id the token
// was issued for.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}
