// Package gameid validates and generates escrow record keys.
package gameid

import (
	"crypto/rand"
	"fmt"
)

// MaxLen is the record-key byte limit imposed by the escrow layout.
const MaxLen = 32

// Alphabet for generated IDs (Crockford's base32, lowercase).
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Validate checks an operator-chosen game ID: non-empty, at most MaxLen
// bytes, lowercase alphanumerics plus '-' and '_'. IDs double as storage
// keys and snapshot file names.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("game ID must not be empty")
	}
	if len(id) > MaxLen {
		return fmt.Errorf("game ID must be at most %d bytes, got %d", MaxLen, len(id))
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("invalid character %q at position %d", c, i)
		}
	}
	return nil
}

// Generate creates a fresh game ID with the given prefix and a random
// base32 suffix, for operators that don't care about a human-chosen key.
// The result always passes Validate.
func Generate(prefix string) string {
	const suffixLen = 12

	if prefix != "" {
		prefix += "-"
	}
	if len(prefix)+suffixLen > MaxLen {
		prefix = prefix[:MaxLen-suffixLen]
	}

	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return prefix + string(buf)
}
