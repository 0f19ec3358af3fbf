package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingCredential is returned when no bearer token could be extracted
	ErrMissingCredential = errors.New("authentication token not provided")
	// ErrInvalidToken is returned when no trust domain accepts the token
	ErrInvalidToken = errors.New("invalid authentication token")
)

// Domain identifies one of the independent credential-verification contexts
type Domain string

const (
	DomainAdmin Domain = "admin"
	DomainTeam  Domain = "team"
)

// Claims is the token payload shared by both trust domains
type Claims struct {
	TeamID  string `json:"teamId,omitempty"`
	AdminID string `json:"adminId,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the principal resolved from a verified token.
// ID holds the team identifier when present, else the admin identifier, and may be empty.
// Domain is the trust domain whose secret verified the signature.
type Identity struct {
	ID     string
	Domain Domain
}

// IsAdmin reports whether the identity was verified by the admin domain
func (i Identity) IsAdmin() bool {
	return i.Domain == DomainAdmin
}

type trustDomain struct {
	domain Domain
	secret []byte
}

// Verifier validates tokens against the admin domain first, then the team domain.
// The first domain that accepts the token wins.
type Verifier struct {
	domains []trustDomain
	parser  *jwt.Parser
}

// NewVerifier creates a verifier. An empty secret disables that domain.
func NewVerifier(adminSecret, teamSecret string, opts ...jwt.ParserOption) *Verifier {
	var domains []trustDomain
	if adminSecret != "" {
		domains = append(domains, trustDomain{domain: DomainAdmin, secret: []byte(adminSecret)})
	}
	if teamSecret != "" {
		domains = append(domains, trustDomain{domain: DomainTeam, secret: []byte(teamSecret)})
	}

	opts = append([]jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}, opts...)
	return &Verifier{
		domains: domains,
		parser:  jwt.NewParser(opts...),
	}
}

// Verify tries every configured domain in order and returns the first identity resolved
func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingCredential
	}

	for _, td := range v.domains {
		if err := ctx.Err(); err != nil {
			return Identity{}, err
		}
		identity, err := v.verify(token, td)
		if err == nil {
			return identity, nil
		}
	}
	return Identity{}, ErrInvalidToken
}

// VerifyIn validates the token against a single trust domain
func (v *Verifier) VerifyIn(token string, domain Domain) (Identity, error) {
	if token == "" {
		return Identity{}, ErrMissingCredential
	}
	for _, td := range v.domains {
		if td.domain == domain {
			return v.verify(token, td)
		}
	}
	return Identity{}, fmt.Errorf("%w: domain %s not configured", ErrInvalidToken, domain)
}

func (v *Verifier) verify(token string, td trustDomain) (Identity, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return td.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	// A signature-valid token is accepted even without an identity claim
	id := claims.TeamID
	if id == "" {
		id = claims.AdminID
	}

	return Identity{ID: id, Domain: td.domain}, nil
}
