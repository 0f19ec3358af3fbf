package gateway

import (
	"net/http/httptest"
	"testing"
)

func TestAllowOrigins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"listed", []string{"http://localhost:3000"}, "http://localhost:3000", true},
		{"trailing slash and case", []string{"https://Quiz.example/"}, "https://quiz.example", true},
		{"not listed", []string{"http://localhost:3000"}, "https://evil.example", false},
		{"no origin header", []string{"http://localhost:3000"}, "", true},
		{"empty policy", nil, "http://localhost:3000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/realtime", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := AllowOrigins(tt.allowed)(r); got != tt.want {
				t.Errorf("AllowOrigins(%v)(%q) = %v, want %v", tt.allowed, tt.origin, got, tt.want)
			}
		})
	}
}
