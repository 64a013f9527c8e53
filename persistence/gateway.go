package persistence

import (
	"context"
	"errors"
	"sort"

	"github.com/hupe1980/topiccache/model"
)

// ErrUnavailable wraps gateway failures observed by the async writer. The
// cache keeps serving from memory; the failure is logged as degraded mode
// and the write is retried or dropped per policy.
var ErrUnavailable = errors.New("persistence unavailable")

// Gateway is the persistence contract of the topic cache.
//
// Implementations must be safe for concurrent use. All three mutating
// operations are idempotent so the writer can retry them blindly.
type Gateway interface {
	// Load returns a full snapshot of all persisted records, in a
	// deterministic order. It must be safe to call repeatedly.
	Load(ctx context.Context) ([]model.Record, error)

	// Save upserts one record.
	Save(ctx context.Context, rec model.Record) error

	// Delete removes the record for key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key model.TopicKey) error

	// Close releases any resources held by the gateway.
	Close() error
}

// SortRecords orders records by (tier, key) so Load results are stable
// across gateway implementations.
func SortRecords(recs []model.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Tier != recs[j].Tier {
			return recs[i].Tier < recs[j].Tier
		}
		return recs[i].Key.Compare(recs[j].Key) < 0
	})
}
