package utils

import (
	"crypto/sha256"
	"fmt"
)

func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// ShortHash returns the first 16 hex chars of the sha256 of input,
// used for request ids and cache keys.
func ShortHash(input string) string {
	return HashString(input)[:16]
}
