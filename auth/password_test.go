package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"storefront/apperr"
)

func TestHashAndVerify(t *testing.T) {
	hashed, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "correct horse" {
		t.Fatal("hash must not equal the plaintext")
	}

	ok, err := VerifyPassword("correct horse", hashed)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword("wrong horse", hashed)
	if err != nil {
		t.Fatalf("mismatch should not be an error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch")
	}
}

func TestHashIsSalted(t *testing.T) {
	a, _ := HashPassword("same", bcrypt.MinCost)
	b, _ := HashPassword("same", bcrypt.MinCost)
	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestHashRejectsBadInput(t *testing.T) {
	if _, err := HashPassword("", bcrypt.MinCost); !apperr.Is(err, apperr.InvalidInput) {
		t.Fatalf("empty password: expected InvalidInput, got %v", err)
	}
	long := strings.Repeat("x", 73)
	if _, err := HashPassword(long, bcrypt.MinCost); !apperr.Is(err, apperr.InvalidInput) {
		t.Fatalf("long password: expected InvalidInput, got %v", err)
	}
}

func TestVerifyCorruptRecord(t *testing.T) {
	ok, err := VerifyPassword("anything", "not-a-bcrypt-hash")
	if ok {
		t.Fatal("corrupt record must not match")
	}
	if !apperr.Is(err, apperr.CorruptCredential) {
		t.Fatalf("expected CorruptCredential, got %v", err)
	}
}
