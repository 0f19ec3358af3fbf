package gateway

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/auth"
)

// TokenVerifier resolves a bearer token to an identity
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// Authenticator gates connections at connect time and guards each message
type Authenticator struct {
	verifier TokenVerifier
}

func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Connect verifies the handshake credential. Any error means the connection must not be opened.
func (a *Authenticator) Connect(ctx context.Context, hs auth.Handshake) (auth.Identity, error) {
	identity, err := a.verifier.Verify(ctx, auth.ExtractToken(hs))
	if err != nil {
		log.Warn().Err(err).Msg("rejected connection credential")
		return auth.Identity{}, err
	}
	return identity, nil
}

// Guard re-verifies the connection's handshake credential before a message is handled.
// Failures are reported to the caller as an error event; the connection stays open.
func (a *Authenticator) Guard(ctx context.Context, c *Connection) (auth.Identity, error) {
	identity, err := a.verifier.Verify(ctx, auth.ExtractToken(c.handshake))
	if err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("message credential rejected")
		return auth.Identity{}, err
	}
	return identity, nil
}
