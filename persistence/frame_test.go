package persistence

import (
	"testing"
	"time"

	"github.com/hupe1980/topiccache/codec"
	"github.com/hupe1980/topiccache/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() model.Record {
	return model.Record{
		Key: model.TopicKey{
			TopicLabel:      "quantum computing",
			ModalityFilter:  "text",
			RetrievalPolicy: "hybrid",
		},
		State: model.TopicState{
			Score:          8.7,
			CachedChunkIDs: []string{"chunk-001", "chunk-002"},
			AccessCount:    12,
			LastAccess:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			FirstSeen:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Confidence:     0.92,
		},
		Tier: model.TierWarm,
	}
}

func TestFrameRoundTrip(t *testing.T) {
	comps := []codec.Compression{codec.None{}, codec.LZ4{}, codec.Zstd{}}
	for _, comp := range comps {
		t.Run(comp.Name(), func(t *testing.T) {
			want := testRecord()
			data, err := encodeFrame(codec.Default, comp, want)
			require.NoError(t, err)

			var got model.Record
			require.NoError(t, decodeFrame(data, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestFrameDecodeSelectsCodecByHeader(t *testing.T) {
	// A frame written with the stdlib codec decodes regardless of the
	// reader's default.
	want := testRecord()
	data, err := encodeFrame(codec.JSON{}, codec.None{}, want)
	require.NoError(t, err)

	var got model.Record
	require.NoError(t, decodeFrame(data, &got))
	assert.Equal(t, want, got)
}

func TestFrameChecksumDetectsCorruption(t *testing.T) {
	data, err := encodeFrame(codec.Default, codec.None{}, testRecord())
	require.NoError(t, err)

	// Flip one payload byte past the header.
	data[len(data)-1] ^= 0xff

	var got model.Record
	err = decodeFrame(data, &got)
	var mismatch *ChecksumMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestFrameRejectsForeignData(t *testing.T) {
	var got model.Record

	err := decodeFrame([]byte("not a frame at all"), &got)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	err = decodeFrame([]byte{0x54}, &got)
	assert.Error(t, err)
}

func TestFrameRejectsUnsupportedVersion(t *testing.T) {
	data, err := encodeFrame(codec.Default, codec.None{}, testRecord())
	require.NoError(t, err)

	// The version lives right after the 4-byte magic.
	data[5] = 99

	var got model.Record
	assert.ErrorIs(t, decodeFrame(data, &got), ErrInvalidVersion)
}
