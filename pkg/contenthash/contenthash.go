// Package contenthash provides the SHA-256 fingerprints used to identify
// versions, segments and exported packages by their bytes.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// keyPrefixRunes is how much of a segment's text feeds its key.
const keyPrefixRunes = 50

// keyHashChars is the length of the hex digest kept in a segment key.
const keyHashChars = 12

// Sum returns the lowercase hex SHA-256 digest of b.
func Sum(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

// SumString is Sum over the UTF-8 bytes of s.
func SumString(s string) string {
	return Sum([]byte(s))
}

// Equal reports whether content hashes to want.
func Equal(content []byte, want string) bool {
	return Sum(content) == want
}

// SegmentKey derives the stable key of a segment from the first 50 runes of
// its text and its 1-based position, e.g. "3f9a0c51d2e7-4".
func SegmentKey(text string, seq int) string {
	r := []rune(text)
	if len(r) > keyPrefixRunes {
		r = r[:keyPrefixRunes]
	}
	return fmt.Sprintf("%s-%d", SumString(string(r))[:keyHashChars], seq)
}
