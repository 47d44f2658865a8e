package domain

import (
	"github.com/google/uuid"
	"strings"
	"testing"
	"time"
)

func TestAccountToString(t *testing.T) {
	id := uuid.New()
	acc := &Account{
		Id:          id,
		Tenant:      "shop-1.example.com",
		Provider:    DefaultProvider,
		Username:    "testuser",
		AccessToken: "secret-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	result := acc.ToString()

	if !strings.Contains(result, "testuser") {
		t.Errorf("ToString() should contain username, got: %s", result)
	}
	if !strings.Contains(result, id.String()) {
		t.Errorf("ToString() should contain ID, got: %s", result)
	}
	if strings.Contains(result, "secret-token") {
		t.Errorf("ToString() must not leak the access token, got: %s", result)
	}
}

func TestCredentialExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{"zero expiry never expires", time.Time{}, false},
		{"expiry in the future", now.Add(time.Minute), false},
		{"expiry in the past", now.Add(-time.Minute), true},
		{"expiry exactly now", now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Credential{AccessToken: "tok", ExpiresAt: tt.expiresAt}
			if got := c.Expired(now); got != tt.expected {
				t.Errorf("Expired() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAccountCredential(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour)
	acc := &Account{AccessToken: "secret", ExpiresAt: exp}

	c := acc.Credential()
	if c.AccessToken != "secret" {
		t.Errorf("Expected AccessToken 'secret', got '%s'", c.AccessToken)
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Errorf("Expected ExpiresAt %v, got %v", exp, c.ExpiresAt)
	}
}
