package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/topiccache/codec"
)

// Record blobs are self-describing frames:
//
//	magic uint32 | version uint16 | codec name | compression name |
//	rawSize uint32 | storedSize uint32 | crc32 uint32 | payload
//
// Names are length-prefixed (uint8). The checksum covers the stored payload
// bytes using CRC32 (IEEE), which is fast and detects storage corruption; it
// is not a tamper-evidence mechanism.
const (
	// frameMagic identifies topic record blobs (ASCII "TPC1").
	frameMagic = 0x54504331
	// frameVersion is the current frame format version.
	frameVersion = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid record frame magic")
	ErrInvalidVersion = errors.New("unsupported record frame version")
	ErrUnknownCodec   = errors.New("unknown codec in record frame")
)

// ChecksumMismatchError is returned when frame checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("record frame checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// encodeFrame encodes v with c, optionally compresses it, and wraps the
// result in a checksummed frame.
func encodeFrame(c codec.Codec, comp codec.Compression, v any) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	if comp == nil {
		comp = codec.None{}
	}

	raw, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}

	stored := raw
	compName := "none"
	if comp.Name() != "none" {
		compressed, err := comp.Compress(raw)
		if err != nil {
			return nil, err
		}
		// nil means compression did not pay off; keep the raw payload.
		if compressed != nil {
			stored = compressed
			compName = comp.Name()
		}
	}

	var buf bytes.Buffer
	writeU32 := func(u uint32) { _ = binary.Write(&buf, binary.BigEndian, u) }
	writeU32(frameMagic)
	_ = binary.Write(&buf, binary.BigEndian, uint16(frameVersion))
	writeName(&buf, c.Name())
	writeName(&buf, compName)
	writeU32(uint32(len(raw)))
	writeU32(uint32(len(stored)))
	writeU32(crc32.ChecksumIEEE(stored))
	buf.Write(stored)
	return buf.Bytes(), nil
}

// decodeFrame verifies and decodes a frame into v, selecting codec and
// compression by the names recorded in the header.
func decodeFrame(data []byte, v any) error {
	r := bytes.NewReader(data)

	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return fmt.Errorf("read frame header: %w", err)
	}
	if magic != frameMagic {
		return ErrInvalidMagic
	}
	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return fmt.Errorf("read frame header: %w", err)
	}
	if version != frameVersion {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}

	codecName, err := readName(r)
	if err != nil {
		return err
	}
	compName, err := readName(r)
	if err != nil {
		return err
	}

	var rawSize, storedSize, sum uint32
	for _, p := range []*uint32{&rawSize, &storedSize, &sum} {
		if err := binary.Read(r, binary.BigEndian, p); err != nil {
			return fmt.Errorf("read frame header: %w", err)
		}
	}

	stored := make([]byte, storedSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return fmt.Errorf("read frame payload: %w", err)
	}
	if actual := crc32.ChecksumIEEE(stored); actual != sum {
		return &ChecksumMismatchError{Expected: sum, Actual: actual}
	}

	c, ok := codec.ByName(codecName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}
	comp, ok := codec.CompressionByName(compName)
	if !ok {
		return fmt.Errorf("%w: compression %q", ErrUnknownCodec, compName)
	}

	raw, err := comp.Decompress(stored, int(rawSize))
	if err != nil {
		return err
	}
	return c.Unmarshal(raw, v)
}

func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte(uint8(len(name)))
	buf.WriteString(name)
}

func readName(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("read frame header: %w", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read frame header: %w", err)
	}
	return string(b), nil
}
