// Package ticketcode generates the human-legible codes printed on
// tickets. Codes are 10 characters from an alphabet without lookalike
// glyphs; the last character is a checksum so a counter clerk's typo is
// caught before a lookup hits the store.
package ticketcode

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// No 0/O, 1/I to keep codes unambiguous over the phone.
	alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	// Length includes the trailing checksum character.
	Length = 10
)

// Generate returns a new random code with a valid checksum.
func Generate() (string, error) {
	buf := make([]byte, Length-1)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var b strings.Builder
	b.Grow(Length)
	sum := 0
	for i, rb := range buf {
		idx := int(rb) % len(alphabet)
		// Positional weight so transpositions change the checksum.
		sum += (i + 1) * idx
		b.WriteByte(alphabet[idx])
	}
	b.WriteByte(alphabet[sum%len(alphabet)])
	return b.String(), nil
}

// Validate reports whether the code is well formed and its checksum
// matches.
func Validate(code string) bool {
	if len(code) != Length {
		return false
	}

	sum := 0
	for i := 0; i < Length-1; i++ {
		idx := strings.IndexByte(alphabet, code[i])
		if idx < 0 {
			return false
		}
		sum += (i + 1) * idx
	}
	return code[Length-1] == alphabet[sum%len(alphabet)]
}
