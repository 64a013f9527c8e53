package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression compresses encoded record payloads before they are framed.
//
// Compress may return (nil, nil) to signal that compression did not help;
// the caller then stores the payload raw and records "none" in the frame
// header. Decompress receives the original payload size from the header.
type Compression interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, size int) ([]byte, error)
	Name() string
}

// CompressionByName returns a built-in compression by its stable name.
func CompressionByName(name string) (Compression, bool) {
	switch name {
	case "none":
		return None{}, true
	case "lz4":
		return LZ4{}, true
	case "zstd":
		return Zstd{}, true
	default:
		return nil, false
	}
}

// None is the identity compression.
type None struct{}

func (None) Compress(src []byte) ([]byte, error) { return src, nil }

func (None) Decompress(src []byte, _ int) ([]byte, error) { return src, nil }

func (None) Name() string { return "none" }

// LZ4 is block compression via github.com/pierrec/lz4. Fast with a modest
// ratio; a good fit for hot caches with frequent persistence writes.
type LZ4 struct{}

func (LZ4) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(src) {
		// Incompressible input.
		return nil, nil
	}
	return dst[:n], nil
}

func (LZ4) Decompress(src []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, fmt.Errorf("lz4: decompressed %d bytes, frame header says %d", n, size)
	}
	return dst, nil
}

func (LZ4) Name() string { return "lz4" }

// Zstd is block compression via github.com/klauspost/compress. Better ratio
// than LZ4 at a higher CPU cost; a good fit for large chunk-ID bundles.
type Zstd struct{}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

// EncodeAll/DecodeAll on shared instances are safe for concurrent use.
func zstdInit() {
	zstdOnce.Do(func() {
		zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		zstdDecoder, _ = zstd.NewReader(nil)
	})
}

func (Zstd) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	zstdInit()
	dst := zstdEncoder.EncodeAll(src, nil)
	if len(dst) >= len(src) {
		return nil, nil
	}
	return dst, nil
}

func (Zstd) Decompress(src []byte, size int) ([]byte, error) {
	zstdInit()
	dst, err := zstdDecoder.DecodeAll(src, make([]byte, 0, size))
	if err != nil {
		return nil, err
	}
	if len(dst) != size {
		return nil, fmt.Errorf("zstd: decompressed %d bytes, frame header says %d", len(dst), size)
	}
	return dst, nil
}

func (Zstd) Name() string { return "zstd" }
