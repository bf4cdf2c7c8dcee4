package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewInviteToken generates the bearer credential for one invitation:
// 32 bytes from a cryptographically secure source, hex encoded.
// Uniqueness is enforced by the store, not here.
func NewInviteToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating invite token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// NewID generates an opaque globally unique id for new records.
func NewID() string {
	return uuid.NewString()
}
