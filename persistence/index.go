// Package persistence serializes the engine's state into two artifacts: a
// binary index file holding the vector rows with their aligned record ids,
// and a codec-encoded sidecar holding the records themselves. The Manager
// coordinates writing and reading both through a blobstore.
package persistence

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hirewire/matchengine/internal/hash"
	"github.com/hirewire/matchengine/model"
	"github.com/hirewire/matchengine/vectorstore"
)

// EncodeIndex serializes the store's vectors and their row-aligned record ids
// into the binary index format.
func EncodeIndex(flat *vectorstore.Flat, ids []model.ID, c Compression) ([]byte, error) {
	rows := flat.Rows()
	if len(rows) != len(ids) {
		return nil, fmt.Errorf("persistence: %d vectors but %d ids", len(rows), len(ids))
	}
	dim := flat.Dimension()

	payload := make([]byte, 0, len(rows)*dim*4+len(ids)*8)
	var scratch [8]byte
	for _, row := range rows {
		for _, v := range row {
			binary.LittleEndian.PutUint32(scratch[:4], math.Float32bits(v))
			payload = append(payload, scratch[:4]...)
		}
	}
	for _, id := range ids {
		binary.LittleEndian.PutUint64(scratch[:], uint64(id))
		payload = append(payload, scratch[:]...)
	}

	stored, err := compress(payload, c)
	if err != nil {
		return nil, err
	}

	header := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		Dimension:   uint32(dim),
		Compression: uint8(c),
		VectorCount: uint64(len(rows)),
		Checksum:    hash.CRC32C(stored),
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	buf.Write(stored)
	return buf.Bytes(), nil
}

// DecodeIndex rebuilds a vector store and its id mapping from the binary
// index format. The returned store uses the default cosine options unless
// optFns override them.
func DecodeIndex(ctx context.Context, data []byte, optFns ...func(o *vectorstore.Options)) (*vectorstore.Flat, []model.ID, error) {
	headerSize := binary.Size(FileHeader{})
	if len(data) < headerSize {
		return nil, nil, ErrTruncated
	}

	var h FileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &h); err != nil {
		return nil, nil, err
	}
	if h.Magic != MagicNumber {
		return nil, nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return nil, nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, h.Version)
	}

	stored := data[headerSize:]
	if got := hash.CRC32C(stored); got != h.Checksum {
		return nil, nil, fmt.Errorf("%w: header 0x%08x, payload 0x%08x", ErrChecksumMismatch, h.Checksum, got)
	}

	payload, err := decompress(stored, Compression(h.Compression))
	if err != nil {
		return nil, nil, err
	}

	dim := int(h.Dimension)
	count := int(h.VectorCount)
	if want := count*dim*4 + count*8; len(payload) != want {
		return nil, nil, fmt.Errorf("%w: payload %d bytes, want %d", ErrTruncated, len(payload), want)
	}

	flat, err := vectorstore.New(dim, optFns...)
	if err != nil {
		return nil, nil, err
	}

	off := 0
	vec := make([]float32, dim)
	for n := 0; n < count; n++ {
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
			off += 4
		}
		if _, err := flat.Add(ctx, vec); err != nil {
			return nil, nil, err
		}
	}

	ids := make([]model.ID, count)
	for i := range ids {
		ids[i] = model.ID(binary.LittleEndian.Uint64(payload[off:]))
		off += 8
	}

	return flat, ids, nil
}
