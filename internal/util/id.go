package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns prefix + "_" + 32 hex characters from 16 random bytes.
// An empty prefix yields the bare hex string.
func NewID(prefix string) string {
	var raw [16]byte
	_, _ = rand.Read(raw[:])
	id := hex.EncodeToString(raw[:])
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
