package auth

import (
	"errors"
	"testing"
	"time"

	"todocat/internal/todo"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Issue("user-1")
	if err != nil {
		t.Fatal(err)
	}
	got, err := tokens.Verify(raw)
	if err != nil || got != "user-1" {
		t.Errorf("Verify() = %q, %v", got, err)
	}
}

func TestVerifyRejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	valid, _ := tokens.Issue("user-1")

	other := NewTokens("other-secret", time.Hour)
	expired := NewTokens("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _ := expired.Issue("user-1")

	for name, raw := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": mustIssue(t, other, "user-1"),
		"expired":      stale,
		"tampered":     valid + "x",
	} {
		if _, err := tokens.Verify(raw); !errors.Is(err, todo.ErrUnauthorized) {
			t.Errorf("%s: Verify() error = %v, want ErrUnauthorized", name, err)
		}
	}
}

func mustIssue(t *testing.T, tokens *Tokens, userID string) string {
	t.Helper()
	raw, err := tokens.Issue(userID)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer   abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, ok)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "hunter2") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter3") {
		t.Error("wrong password accepted")
	}
}

func TestSubject(t *testing.T) {
	raw, err := NewTokens("secret", time.Hour).Issue("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got, err := Subject(raw); err != nil || got != "user-1" {
		t.Errorf("Subject() = %q, %v", got, err)
	}
	if _, err := Subject("not-a-token"); !errors.Is(err, todo.ErrUnauthorized) {
		t.Errorf("Subject(garbage) error = %v", err)
	}
}
