package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// CodeLength is how many characters a room code carries.
	CodeLength = 6

	// CodeCharset holds the characters room codes draw from. Lookalikes
	// (0/O, 1/I) are left out so codes survive being read aloud.
	CodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateRoomCode returns a short join code for a new game room. The
// charset length divides 256, so mapping raw bytes stays unbiased.
func GenerateRoomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = CodeCharset[int(b)%len(CodeCharset)]
	}
	return string(buf), nil
}

// IsValidRoomCode reports whether a code has the shape GenerateRoomCode
// produces.
func IsValidRoomCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeCharset, code[i]) < 0 {
			return false
		}
	}
	return true
}
