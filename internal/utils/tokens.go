package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenHex generates a random hex string of n bytes (2n characters)
func TokenHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// MaskSecret hides all but the first 4 characters of a secret
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
