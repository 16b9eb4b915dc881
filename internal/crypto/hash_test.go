package crypto

import (
	"strings"
	"testing"
)

// testParams keeps argon2 cheap so the suite stays fast.
func testParams() HashParams {
	return HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(testParams())
	if err != nil {
		t.Fatalf("NewPasswordHasher() unexpected error: %v", err)
	}
	return h
}

func TestHashDefaultParamsFormat(t *testing.T) {
	h, err := NewPasswordHasher(DefaultHashParams())
	if err != nil {
		t.Fatalf("NewPasswordHasher() unexpected error: %v", err)
	}

	hash, err := h.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash() expected 6 parts, got %d: %q", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("Hash() algorithm = %q, want %q", parts[1], "argon2id")
	}
	if parts[2] != "v=19" {
		t.Errorf("Hash() version = %q, want %q", parts[2], "v=19")
	}
	if parts[3] != "m=65536,t=3,p=2" {
		t.Errorf("Hash() params = %q, want %q", parts[3], "m=65536,t=3,p=2")
	}
}

func TestVerifyCorrect(t *testing.T) {
	h := newTestHasher(t)
	password := "my-secure-password"

	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	match, err := h.Verify(password, hash)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if !match {
		t.Error("Verify() returned false for correct password")
	}
}

func TestVerifyWrong(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	match, err := h.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if match {
		t.Error("Verify() returned true for wrong password")
	}
}

func TestVerifyUsesEmbeddedParams(t *testing.T) {
	cheap := newTestHasher(t)
	hash, err := cheap.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	other, err := NewPasswordHasher(HashParams{Memory: 2048, Iterations: 2, Parallelism: 1, SaltLength: 8, KeyLength: 16})
	if err != nil {
		t.Fatalf("NewPasswordHasher() unexpected error: %v", err)
	}
	match, err := other.Verify("password123", hash)
	if err != nil {
		t.Fatalf("Verify() unexpected error: %v", err)
	}
	if !match {
		t.Error("Verify() should honour parameters stored in the hash")
	}
}

func TestHashProducesDifferentHashes(t *testing.T) {
	h := newTestHasher(t)

	hash1, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}
	hash2, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() unexpected error: %v", err)
	}

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for same password (salt should differ)")
	}
}

func TestVerifyInvalidHash(t *testing.T) {
	h := newTestHasher(t)

	tests := []string{
		"invalid-hash-format",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
	}
	for _, encoded := range tests {
		if _, err := h.Verify("password", encoded); err == nil {
			t.Errorf("Verify(%q) expected error", encoded)
		}
	}
}
