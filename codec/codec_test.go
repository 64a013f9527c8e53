package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Label  string   `json:"label"`
	Chunks []string `json:"chunks"`
	Count  uint64   `json:"count"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestCodecsAgreeOnWireFormat(t *testing.T) {
	// go-json is a drop-in stdlib replacement: either codec must decode
	// the other's output.
	want := payload{Label: "quantum computing", Chunks: []string{"c1", "c2"}, Count: 12}

	data := MustMarshal(JSON{}, want)
	var viaGoJSON payload
	require.NoError(t, GoJSON{}.Unmarshal(data, &viaGoJSON))
	assert.Equal(t, want, viaGoJSON)

	data = MustMarshal(GoJSON{}, want)
	var viaJSON payload
	require.NoError(t, JSON{}.Unmarshal(data, &viaJSON))
	assert.Equal(t, want, viaJSON)
}

func TestDefaultCodecRoundTrip(t *testing.T) {
	want := payload{Label: "a", Chunks: []string{"x"}, Count: 1}
	var got payload
	require.NoError(t, Default.Unmarshal(MustMarshal(Default, want), &got))
	assert.Equal(t, want, got)
}
