package outpass

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Number of random bytes in a pass token. 16 → 128-bit.
const TOKEN_SIZE = 16

// generateToken returns an unguessable pass token. The token is opaque and
// carries no outpass or student data; verification always re-reads the
// record it is bound to.
func generateToken() (string, error) {
	b := make([]byte, TOKEN_SIZE)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%w: entropy source failed: %v", ErrFatal, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
