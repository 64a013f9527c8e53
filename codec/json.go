package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is the most portable option: record blobs written with it can be decoded
// by any JSON implementation. Use it when interoperability with external
// tooling matters more than encode throughput.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used when none is configured.
//
// This only affects newly written record blobs. Existing blobs are
// self-describing (the frame header stores the codec name) and are decoded by
// selecting the appropriate codec by name.
var Default Codec = GoJSON{}
