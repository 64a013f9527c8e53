// Package codec centralizes record encoding for the topic cache.
//
// Codec selection is a breaking-change boundary: persisted record blobs store
// the codec name in their frame header, and a blob written by one codec must
// be decoded by the same codec on load.
package codec

import "fmt"

// Codec encodes/decodes persisted records.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Record blobs are self-describing: the frame header carries the codec name,
// and the gateway selects the codec by name when decoding.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
