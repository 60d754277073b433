// Package security provides id, code and secret generation plus JWT helpers
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// DiscountCodePrefix marks codes issued by the popup.
const DiscountCodePrefix = "JSC-"

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// GenerateDiscountCode returns JSC- followed by the last eight Crockford
// characters of a fresh ULID, all drawn from its random component.
func GenerateDiscountCode() string {
	id := ulid.Make().String()
	return DiscountCodePrefix + id[len(id)-8:]
}

// GenerateSecureKey creates a cryptographically secure random key and returns it as a hex string.
// Startup uses it when no JWT secret is configured.
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length/2) // Each byte becomes two hex characters
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
