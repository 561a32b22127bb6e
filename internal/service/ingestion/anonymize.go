package ingestion

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// AnonymizeExternalID derives a stable, non-reversible identifier from a utility account id.
func AnonymizeExternalID(externalID, salt string) string {
	sum := sha256.Sum256([]byte(salt + ":" + externalID))
	return hex.EncodeToString(sum[:])[:16]
}

// SyntheticID is used when the caller supplies no external id at all.
func SyntheticID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "synth-" + hex.EncodeToString(b)
}
