package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/hupe1980/topiccache/blobstore"
	"github.com/hupe1980/topiccache/codec"
	"github.com/hupe1980/topiccache/model"
	"golang.org/x/sync/errgroup"
)

// loadParallelism bounds concurrent blob reads during Load.
const loadParallelism = 8

// BlobGateway persists one framed record blob per topic on a BlobStore.
//
// Blob names are derived from the key's canonical form via SHA-256, so any
// key maps to a valid object name regardless of its characters. The key
// itself travels inside the record payload.
type BlobGateway struct {
	store  blobstore.BlobStore
	codec  codec.Codec
	comp   codec.Compression
	prefix string
}

// BlobGatewayOption configures a BlobGateway.
type BlobGatewayOption func(*BlobGateway)

// WithCodec sets the codec used for newly written blobs.
func WithCodec(c codec.Codec) BlobGatewayOption {
	return func(g *BlobGateway) {
		if c != nil {
			g.codec = c
		}
	}
}

// WithCompression sets the compression used for newly written blobs.
func WithCompression(comp codec.Compression) BlobGatewayOption {
	return func(g *BlobGateway) {
		if comp != nil {
			g.comp = comp
		}
	}
}

// WithPrefix sets the blob name prefix (default "topics/").
func WithPrefix(prefix string) BlobGatewayOption {
	return func(g *BlobGateway) {
		g.prefix = prefix
	}
}

// NewBlobGateway creates a gateway over the given blob store.
func NewBlobGateway(store blobstore.BlobStore, optFns ...BlobGatewayOption) *BlobGateway {
	g := &BlobGateway{
		store:  store,
		codec:  codec.Default,
		comp:   codec.None{},
		prefix: "topics/",
	}
	for _, fn := range optFns {
		fn(g)
	}
	return g
}

func (g *BlobGateway) name(key model.TopicKey) string {
	sum := sha256.Sum256([]byte(key.Canonical()))
	return g.prefix + hex.EncodeToString(sum[:16]) + ".rec"
}

// Load reads and decodes every record blob under the prefix in parallel.
func (g *BlobGateway) Load(ctx context.Context) ([]model.Record, error) {
	names, err := g.store.List(ctx, g.prefix)
	if err != nil {
		return nil, fmt.Errorf("list record blobs: %w", err)
	}

	recs := make([]model.Record, len(names))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(loadParallelism)
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			data, err := g.store.Get(egCtx, name)
			if err != nil {
				return fmt.Errorf("read record blob %s: %w", name, err)
			}
			if err := decodeFrame(data, &recs[i]); err != nil {
				return fmt.Errorf("decode record blob %s: %w", name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	SortRecords(recs)
	return recs, nil
}

// Save upserts one record blob.
func (g *BlobGateway) Save(ctx context.Context, rec model.Record) error {
	data, err := encodeFrame(g.codec, g.comp, rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Key, err)
	}
	return g.store.Put(ctx, g.name(rec.Key), data)
}

// Delete removes the record blob for key.
func (g *BlobGateway) Delete(ctx context.Context, key model.TopicKey) error {
	return g.store.Delete(ctx, g.name(key))
}

// Close implements Gateway.
func (g *BlobGateway) Close() error { return nil }

var _ Gateway = (*BlobGateway)(nil)
