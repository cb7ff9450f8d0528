package einsum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the SHA-256 of the einsum's full description.
// Structurally equal einsums share a digest; after normalization so do
// einsums that differ only in naming.
func (e *FusedEinsum) Digest() [32]byte {
	return sha256.Sum256([]byte(e.String()))
}

// DigestHex returns Digest as a lowercase hex string.
func (e *FusedEinsum) DigestHex() string {
	d := e.Digest()
	return hex.EncodeToString(d[:])
}
