package auth

import (
	"net/http"
	"strings"
)

// Handshake carries the credential sources presented when a connection opens.
// Token is the handshake auth field; it takes precedence over the header.
type Handshake struct {
	Token  string
	Header http.Header
}

// HandshakeFromRequest reads the auth field from the "token" query parameter
func HandshakeFromRequest(r *http.Request) Handshake {
	return Handshake{
		Token:  r.URL.Query().Get("token"),
		Header: r.Header,
	}
}

// ExtractToken returns the bearer credential of a handshake, or "" when absent
func ExtractToken(h Handshake) string {
	if token := strings.TrimSpace(h.Token); token != "" {
		return token
	}
	if h.Header == nil {
		return ""
	}
	return bearerToken(h.Header.Get("Authorization"))
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
