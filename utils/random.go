package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateToken returns n random bytes hex encoded, used for trigger
// bearer tokens.
func GenerateToken(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return hex.EncodeToString(byt), nil
}
