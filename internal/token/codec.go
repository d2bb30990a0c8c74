// Package token implements the admission token codec: opaque bearer
// credentials binding a random token ID to the client address that earned
// them, signed with a process-wide secret key.
//
// Tokens carry no timestamp; expiry is enforced at the transport layer via
// the cookie Max-Age. A client replaying the raw token value past the cookie
// lifetime is a known, accepted gap.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// sep separates the token ID from its signature in the serialized form.
// Neither side may contain it: IDs are UUIDs, signatures are hex.
const sep = ":"

// Codec issues and verifies admission tokens with a fixed secret key.
// The key is immutable for the life of the codec; rotating the key
// invalidates every outstanding token.
type Codec struct {
	key []byte
}

// NewCodec creates a codec signing with the given secret key.
func NewCodec(key []byte) *Codec {
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{key: k}
}

// Issue mints a fresh token bound to addr and returns its serialized form
// "tokenId:signature". Token IDs are random UUIDs; collisions are negligible
// at any plausible issuance volume.
func (c *Codec) Issue(addr string) string {
	id := uuid.NewString()
	return id + sep + c.sign(id, addr)
}

// Verify reports whether serialized is a token whose signature recomputes
// over (tokenId, addr) with the codec's key. Malformed input fails closed:
// a missing separator or empty part is simply an invalid token, never an
// error surfaced to the caller.
func (c *Codec) Verify(serialized, addr string) bool {
	id, sig, ok := strings.Cut(serialized, sep)
	if !ok || id == "" || sig == "" {
		return false
	}
	want := c.sign(id, addr)
	// Constant-time compare of the hex strings; both sides are the same
	// length unless the token is malformed, which hmac.Equal rejects.
	return hmac.Equal([]byte(sig), []byte(want))
}

// sign computes the hex HMAC-SHA256 over "id:addr".
func (c *Codec) sign(id, addr string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(id))
	mac.Write([]byte(sep))
	mac.Write([]byte(addr))
	return hex.EncodeToString(mac.Sum(nil))
}
