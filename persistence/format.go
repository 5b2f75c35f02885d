package persistence

import "errors"

const (
	// MagicNumber identifies matchengine index files (ASCII: "MTC1").
	MagicNumber = 0x4D544331
	// Version is the current file format version.
	Version = 0x00010000
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrInvalidCompression = errors.New("unknown compression")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrTruncated          = errors.New("truncated index file")
)

// Compression identifies the payload compression of an index file.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// FileHeader is the fixed-size header at the start of every index file.
// The payload that follows holds the raw little-endian float32 vector block
// and the int64 id block, optionally compressed as a whole.
type FileHeader struct {
	Magic       uint32 // "MTC1"
	Version     uint32 // File format version
	Dimension   uint32 // Vector dimensionality
	Compression uint8  // Payload compression
	Padding     [3]byte
	VectorCount uint64 // Number of vectors (= number of ids)
	Checksum    uint32 // CRC32 (IEEE) of the stored payload bytes
	Padding2    [4]byte
	Reserved    [16]byte // Future use
}
