package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionReadsJWTClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alejandro",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	s := NewSession()
	s.SetToken(token)

	if s.Subject() != "alejandro" {
		t.Errorf("subject = %q", s.Subject())
	}
	got, ok := s.ExpiresAt()
	if !ok || !got.Equal(exp) {
		t.Errorf("expires at = %v %v, want %v", got, ok, exp)
	}
	if s.authorization() != "Bearer "+token {
		t.Errorf("authorization = %q", s.authorization())
	}
}

func TestSessionOpaqueToken(t *testing.T) {
	s := NewSession()
	s.SetToken("opaque")
	if !s.Authenticated() {
		t.Fatalf("expected authenticated session")
	}
	if _, ok := s.ExpiresAt(); ok {
		t.Errorf("opaque tokens have no expiry")
	}

	s.Clear()
	if s.Authenticated() || s.authorization() != "" {
		t.Errorf("cleared session should send no header")
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		params  []string
		want    string
		wantErr bool
	}{
		{"plain", pathSpaces, nil, "/space", false},
		{"one param", pathSpace, []string{"space_id", "s1"}, "/space/s1", false},
		{"two params", pathExpense, []string{"space_id", "s1", "expense_id", "e 1"}, "/space/s1/expense/e%201", false},
		{"slash escaped", pathSpaceUser, []string{"space_id", "s1", "username", "../admin"}, "/space/s1/user/..%2Fadmin", false},
		{"missing", pathCategory, []string{"space_id", "s1"}, "", true},
		{"odd params", pathSpace, []string{"space_id"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expand(tt.tmpl, tt.params...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expand() = %q, want %q", got, tt.want)
			}
		})
	}
}
