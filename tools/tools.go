package tools

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
)

func EncryptTextSHA512(text string) string {
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NewResetSecret returns a fresh url-safe bearer secret with 256 bits of
// entropy from crypto/rand. Panics only if the OS random source is broken.
func NewResetSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("tools: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
