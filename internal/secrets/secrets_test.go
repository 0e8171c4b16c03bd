package secrets

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testCodec() *Codec {
	// Minimum cost keeps the hashing tests fast
	return NewCodec(bcrypt.MinCost)
}

func TestCodec_Generate(t *testing.T) {
	c := testCodec()

	secret, err := c.Generate()
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if !strings.HasPrefix(secret, Tag) {
		t.Errorf("expected secret to start with %q, got %q", Tag, secret[:8])
	}

	// 32 bytes of entropy encode to 43 base64 characters
	if got, want := len(secret), len(Tag)+43; got != want {
		t.Errorf("expected secret length %d, got %d", want, got)
	}
}

func TestCodec_Generate_NoCollisions(t *testing.T) {
	c := testCodec()

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		secret, err := c.Generate()
		if err != nil {
			t.Fatalf("Generate() failed on iteration %d: %v", i, err)
		}
		if _, dup := seen[secret]; dup {
			t.Fatalf("duplicate secret generated after %d iterations", i)
		}
		seen[secret] = struct{}{}
	}
}

func TestCodec_HashAndVerify(t *testing.T) {
	c := testCodec()

	secret, err := c.Generate()
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	hash, err := c.Hash(secret)
	if err != nil {
		t.Fatalf("Hash() failed: %v", err)
	}

	if hash == secret {
		t.Error("hash must not equal the plaintext")
	}
	if !c.Verify(secret, hash) {
		t.Error("Verify() should accept the original secret")
	}
	if c.Verify(secret+"x", hash) {
		t.Error("Verify() should reject a modified secret")
	}
	if c.Verify("", hash) {
		t.Error("Verify() should reject an empty secret")
	}

	other, err := c.Generate()
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if c.Verify(other, hash) {
		t.Error("Verify() should reject a different secret")
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"full secret", "sk_abcdefghijklmnop", "sk_abcdefghi"},
		{"exactly prefix length", "sk_abcdefghi", "sk_abcdefghi"},
		{"shorter than prefix", "sk_abc", "sk_abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Prefix(tt.secret); got != tt.want {
				t.Errorf("Prefix(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestPrefix_Deterministic(t *testing.T) {
	c := testCodec()

	secret, err := c.Generate()
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	first := Prefix(secret)
	if len(first) != PrefixLength {
		t.Fatalf("expected prefix length %d, got %d", PrefixLength, len(first))
	}
	for i := 0; i < 100; i++ {
		if Prefix(secret) != first {
			t.Fatal("Prefix() is not deterministic")
		}
	}
}
