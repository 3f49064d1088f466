package utils

import (
	"strings"
	"testing"
)

func TestHashPassword_Bcrypt(t *testing.T) {
	hash, err := HashPassword("forge-ahead-42")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash %q is not a bcrypt hash", hash)
	}
	if strings.Contains(hash, "forge-ahead-42") {
		t.Error("hash leaks the plaintext")
	}

	again, _ := HashPassword("forge-ahead-42")
	if again == hash {
		t.Error("hashes of the same password should differ by salt")
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	// bcrypt only reads the first 72 bytes; longer input is rejected
	if _, err := HashPassword(strings.Repeat("x", 73)); err == nil {
		t.Error("expected an error for a 73 byte password")
	}
}

func TestCheckPassword(t *testing.T) {
	admin, _ := HashPassword("admin")
	unicode, _ := HashPassword("ideé-forge ✓")

	tests := []struct {
		name     string
		password string
		hash     string
		expected bool
	}{
		{"bootstrap admin", "admin", admin, true},
		{"case sensitive", "Admin", admin, false},
		{"trailing space", "admin ", admin, false},
		{"empty password", "", admin, false},
		{"unicode passphrase", "ideé-forge ✓", unicode, true},
		{"unicode normalisation differs", "idee-forge ✓", unicode, false},
		{"empty hash", "admin", "", false},
		{"malformed hash", "admin", "not-a-bcrypt-hash", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.expected {
				t.Errorf("CheckPassword(%q) = %v, expected %v", tt.password, got, tt.expected)
			}
		})
	}
}
