// Package checksum provides SHA-256 checksum utilities for file integrity
// verification. Document uploads compute a checksum at write time and store it
// with the metadata record; downloads can verify the stored bytes against it.
// Keeping this logic in a dedicated package applies consistent hashing
// behaviour across the upload and storage layers without duplicating
// crypto/sha256 wiring throughout the codebase.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// CalculateSHA256 streams reader through SHA-256 and returns the lowercase
// hex digest.
func CalculateSHA256(reader io.Reader) (string, error) {
	hasher := sha256.New()

	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifySHA256 reports whether the reader's contents hash to expectedChecksum.
func VerifySHA256(reader io.Reader, expectedChecksum string) (bool, error) {
	actualChecksum, err := CalculateSHA256(reader)
	if err != nil {
		return false, err
	}

	return actualChecksum == expectedChecksum, nil
}
