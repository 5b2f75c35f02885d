// Package hash provides the hashing primitives used across the engine:
// CRC32-Castagnoli for artifact integrity and a SHA-256 content hash for
// cache keys.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"hash/crc32"
)

// crc32cTable is pre-computed for the CRC32-Castagnoli polynomial.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
// Uses hardware acceleration when available (SSE4.2, ARM CRC).
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a new CRC32-Castagnoli hash.Hash32.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// Content returns the hex-encoded SHA-256 digest of text.
//
// It is a content address, not a uniqueness guarantee: the embedding cache
// treats collisions as an accepted risk, not a correctness bug.
func Content(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
