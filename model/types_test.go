package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierHot < TierWarm)
	assert.True(t, TierWarm < TierCold)

	assert.Equal(t, "hot", TierHot.String())
	assert.Equal(t, "warm", TierWarm.String())
	assert.Equal(t, "cold", TierCold.String())

	below, ok := TierHot.Below()
	require.True(t, ok)
	assert.Equal(t, TierWarm, below)

	below, ok = TierWarm.Below()
	require.True(t, ok)
	assert.Equal(t, TierCold, below)

	_, ok = TierCold.Below()
	assert.False(t, ok, "cold has no tier below it")

	assert.False(t, Tier(7).Valid())
}

func TestTopicKeyValidate(t *testing.T) {
	err := (TopicKey{ModalityFilter: "text"}).Validate()
	require.Error(t, err)
	var invalid *ErrInvalidKey
	assert.ErrorAs(t, err, &invalid)

	assert.NoError(t, TopicKey{TopicLabel: "os"}.Validate())
}

func TestTopicKeyCompare(t *testing.T) {
	a := TopicKey{TopicLabel: "a", ModalityFilter: "text", RetrievalPolicy: "hybrid"}
	b := TopicKey{TopicLabel: "b", ModalityFilter: "text", RetrievalPolicy: "hybrid"}
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a))

	// Label dominates, then modality, then policy.
	c := TopicKey{TopicLabel: "a", ModalityFilter: "image", RetrievalPolicy: "hybrid"}
	assert.Positive(t, a.Compare(c))
	d := TopicKey{TopicLabel: "a", ModalityFilter: "text", RetrievalPolicy: "dense"}
	assert.Positive(t, a.Compare(d))
}

func TestTopicKeyCanonical(t *testing.T) {
	k := TopicKey{TopicLabel: "os", ModalityFilter: ".pdf", RetrievalPolicy: "hybrid"}
	assert.Equal(t, "os|.pdf|hybrid", k.Canonical())
	assert.Equal(t, k.Canonical(), k.String())
}

func TestTopicStateClone(t *testing.T) {
	s := TopicState{CachedChunkIDs: []string{"c1", "c2"}, AccessCount: 3}
	c := s.Clone()
	c.CachedChunkIDs[0] = "mutated"
	assert.Equal(t, "c1", s.CachedChunkIDs[0])
	assert.Equal(t, uint64(3), c.AccessCount)
}
