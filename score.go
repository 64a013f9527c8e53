package topiccache

import "github.com/hupe1980/topiccache/model"

// Score weights: usage dominates, recency contributes a fixed share.
const (
	accessCountWeight = 0.7
	recencyShare      = 0.3
)

// Score computes a topic's current heat from its usage statistics.
//
// recencyWeight is a configured scalar, not a decay function of elapsed time
// since the last access; the last-access timestamp is tracked on the state
// for observability only. Pure and deterministic.
func Score(state model.TopicState, recencyWeight float64) float64 {
	return float64(state.AccessCount)*accessCountWeight + recencyWeight*recencyShare
}
