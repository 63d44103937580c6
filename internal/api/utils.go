package api

import (
	"crypto/rand"
	"encoding/base64"
)

// generateRandomString returns a URL-safe random string of the given length.
func generateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}
