package auth

import (
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "hunter2hunter2") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short1", 8); err == nil {
		t.Error("short password accepted")
	}
	if err := ValidatePassword("lettersonly", 8); err == nil {
		t.Error("password without digits accepted")
	}
	if err := ValidatePassword("12345678", 8); err == nil {
		t.Error("password without letters accepted")
	}
	if err := ValidatePassword("goodpass1", 8); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}

func TestGenerateTokenUnique(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	b, _ := GenerateToken()
	if a == b {
		t.Error("tokens collide")
	}
	if len(a) != 64 {
		t.Errorf("token length %d, want 64 hex chars", len(a))
	}
}

func TestIsTokenExpired(t *testing.T) {
	if IsTokenExpired(time.Now().Add(time.Hour).Unix()) {
		t.Error("future expiry reported expired")
	}
	if !IsTokenExpired(time.Now().Add(-time.Hour).Unix()) {
		t.Error("past expiry reported valid")
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  Jordan23 "); got != "jordan23" {
		t.Errorf("NormalizeUsername = %q", got)
	}
}
