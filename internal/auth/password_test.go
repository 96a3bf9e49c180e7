package auth

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	t.Run("returns a bcrypt hash", func(t *testing.T) {
		hash, err := HashPassword("correct-horse-battery")
		if err != nil {
			t.Fatalf("HashPassword() error: %v", err)
		}
		if hash == "" {
			t.Fatal("HashPassword() returned empty hash")
		}
		if !strings.HasPrefix(hash, "$2") {
			t.Errorf("HashPassword() = %q, want bcrypt format ($2...)", hash)
		}
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		if _, err := HashPassword("short"); err == nil {
			t.Error("HashPassword() expected error for short password, got nil")
		}
	})

	t.Run("two calls produce different hashes", func(t *testing.T) {
		hash1, _ := HashPassword("correct-horse-battery")
		hash2, _ := HashPassword("correct-horse-battery")
		if hash1 == hash2 {
			t.Error("HashPassword() produced identical hashes on consecutive calls")
		}
	})
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	t.Run("matching password passes", func(t *testing.T) {
		if !CheckPassword("correct-horse-battery", hash) {
			t.Error("CheckPassword() = false for matching password")
		}
	})

	t.Run("wrong password fails", func(t *testing.T) {
		if CheckPassword("wrong-password-here", hash) {
			t.Error("CheckPassword() = true for wrong password")
		}
	})

	t.Run("garbage hash fails", func(t *testing.T) {
		if CheckPassword("correct-horse-battery", "not-a-hash") {
			t.Error("CheckPassword() = true for garbage hash")
		}
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer token", "Bearer abc123", "abc123", false},
		{"empty header", "", "", true},
		{"missing bearer prefix", "abc123", "", true},
		{"basic auth scheme", "Basic dXNlcjpwYXNz", "", true},
		{"bearer with only whitespace", "Bearer    ", "", true},
		{"bearer with surrounding whitespace", "Bearer   abc123  ", "abc123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ExtractTokenFromHeader(%q) expected error, got nil", tt.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractTokenFromHeader(%q) error: %v", tt.header, err)
			}
			if got != tt.want {
				t.Errorf("ExtractTokenFromHeader(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
