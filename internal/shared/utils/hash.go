package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher produces stable content fingerprints
type Hasher struct{}

// DefaultHasher returns a SHA-256 hasher
func DefaultHasher() *Hasher {
	return &Hasher{}
}

func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// SourceFingerprint identifies a template's code body in logs and execution
// records. It is short and not meant for integrity checks.
func SourceFingerprint(source string) string {
	return ShortHash(DefaultHasher().HashString(source))
}

// ShortHash truncates a hex digest to 12 characters for display.
func ShortHash(full string) string {
	if len(full) < 12 {
		return full
	}
	return full[:12]
}
