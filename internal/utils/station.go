package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Gate station identifiers are self-verifying: a random UUID plus a
// truncated HMAC over it. A forged ID fails verification without a
// database lookup.

func GenerateStationID(secret []byte) (string, error) {
	uuidObj, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	id := uuidObj.String()

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(id))
	signature := hex.EncodeToString(h.Sum(nil))[:16] // First 16 chars

	// Format: uuid-signature
	return fmt.Sprintf("%s-%s", id, signature), nil
}

func VerifyStationID(stationID string, secret []byte) bool {
	parts := strings.Split(stationID, "-")
	if len(parts) != 6 { // uuid (5 parts) + signature (1 part)
		return false
	}

	id := strings.Join(parts[:5], "-")
	providedSig := parts[5]

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(id))
	expectedSig := hex.EncodeToString(h.Sum(nil))[:16]

	return hmac.Equal([]byte(providedSig), []byte(expectedSig))
}
