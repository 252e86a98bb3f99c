package auth

import (
	"strings"
	"testing"
)

func TestHashToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "simple token", input: "test-token"},
		{name: "empty string", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HashToken(tt.input)
			if len(result) != 64 {
				t.Errorf("HashToken() returned %d chars, want 64", len(result))
			}
		})
	}
}

func TestHashToken_TrimsWhitespace(t *testing.T) {
	if HashToken("  my-token  ") != HashToken("my-token") {
		t.Error("expected whitespace to be trimmed before hashing")
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Error("expected identical input to hash identically")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Error("expected different input to hash differently")
	}
}

func TestGenerateToken(t *testing.T) {
	tok1, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	tok2, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if !strings.HasPrefix(tok1, "ck_") {
		t.Errorf("token %q missing ck_ prefix", tok1)
	}
	if tok1 == tok2 {
		t.Error("expected two generated tokens to differ")
	}
}
