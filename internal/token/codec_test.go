package token

import (
	"strings"
	"testing"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	tok := c.Issue("203.0.113.7")
	if !c.Verify(tok, "203.0.113.7") {
		t.Error("expected freshly issued token to verify for its bound address")
	}
}

func TestVerifyRejectsOtherAddress(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	tok := c.Issue("203.0.113.7")
	if c.Verify(tok, "198.51.100.9") {
		t.Error("expected token bound to one address to fail for another")
	}
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	a := NewCodec([]byte("key-a"))
	b := NewCodec([]byte("key-b"))
	tok := a.Issue("203.0.113.7")
	if b.Verify(tok, "203.0.113.7") {
		t.Error("expected token to fail verification under a different key")
	}
}

func TestVerifyMalformed(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "abcdef0123456789"},
		{"empty id", ":deadbeef"},
		{"empty signature", "some-id:"},
		{"only separator", ":"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c.Verify(tt.token, "203.0.113.7") {
				t.Errorf("expected malformed token %q to fail closed", tt.token)
			}
		})
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	tok := c.Issue("203.0.113.7")
	id, sig, _ := strings.Cut(tok, ":")

	// Flip each signature character in turn; every mutation must fail.
	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if c.Verify(id+":"+string(mutated), "203.0.113.7") {
			t.Fatalf("tampered signature at position %d verified", i)
		}
	}
}

func TestIssueUniqueIDs(t *testing.T) {
	c := NewCodec([]byte("test-secret"))
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := c.Issue("203.0.113.7")
		id, _, ok := strings.Cut(tok, ":")
		if !ok {
			t.Fatalf("token %q missing separator", tok)
		}
		if seen[id] {
			t.Fatalf("duplicate token ID %q", id)
		}
		seen[id] = true
	}
}

func TestUnboundTokens(t *testing.T) {
	// An empty bound address models the no-IP-binding policy: the token
	// verifies for any request presenting the same empty binding.
	c := NewCodec([]byte("test-secret"))
	tok := c.Issue("")
	if !c.Verify(tok, "") {
		t.Error("expected unbound token to verify with empty address")
	}
	if c.Verify(tok, "203.0.113.7") {
		t.Error("unbound token must not verify against a concrete address")
	}
}
