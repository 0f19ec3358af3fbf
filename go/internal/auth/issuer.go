package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints HS256 tokens for one trust domain
type Issuer struct {
	domain Domain
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. A zero ttl produces tokens without expiry.
func NewIssuer(domain Domain, secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		domain: domain,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token whose identity claim matches the issuer's domain
func (i *Issuer) Issue(subjectID string) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject id is required")
	}
	if len(i.secret) == 0 {
		return "", errors.New("signing secret is not configured")
	}

	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	switch i.domain {
	case DomainAdmin:
		claims.AdminID = subjectID
	default:
		claims.TeamID = subjectID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}
