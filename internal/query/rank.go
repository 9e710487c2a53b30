package query

import (
	"math"
	"sort"
	"time"
)

// RankWeights carries the tunables config.Config exposes for balanced
// and quality ranking, kept as plain fields here so this package never
// imports internal/config (cmd/root.go copies the handful of knobs it
// needs across the boundary).
type RankWeights struct {
	FallbackPenalty float64
	RegexPenalty    float64
	BalancedRelWt   float64
	BalancedTimeWt  float64
	DecayDays       float64
}

// Rank orders hits in place according to mode, using weights for the
// balanced/quality modes. Each hit's Score is read as a [0,1] relevance
// already normalized by the caller (engine.go calls Normalize, which
// divides each score by the result set's max score, before Rank).
func Rank(hits []Hit, mode RankMode, weights RankWeights) {
	switch mode {
	case RankRecent:
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		})
	case RankBalanced:
		now := time.Now()
		sort.SliceStable(hits, func(i, j int) bool {
			return balancedScore(hits[i], now, weights) > balancedScore(hits[j], now, weights)
		})
	case RankQuality:
		sort.SliceStable(hits, func(i, j int) bool {
			return qualityScore(hits[i], weights) > qualityScore(hits[j], weights)
		})
	default: // RankRelevance
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Score > hits[j].Score
		})
	}
}

func balancedScore(h Hit, now time.Time, w RankWeights) float64 {
	ageDays := now.Sub(h.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	decay := math.Exp(-ageDays / nonZero(w.DecayDays, 30))
	return nonZero(w.BalancedRelWt, 0.6)*h.Score + nonZero(w.BalancedTimeWt, 0.4)*decay
}

func qualityScore(h Hit, w RankWeights) float64 {
	penalty := 1.0
	switch h.MatchKind {
	case MatchFallback:
		penalty = nonZero(w.FallbackPenalty, 0.5)
	case MatchWildcard:
		penalty = nonZero(w.RegexPenalty, 0.75)
	}
	return h.Score * penalty
}

func nonZero(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

// Normalize rescales every hit's Score into [0,1] by dividing by the
// maximum score in the set, so balanced/quality ranking can combine it
// meaningfully with a decay term that is already in [0,1].
func Normalize(hits []Hit) {
	if len(hits) == 0 {
		return
	}
	max := hits[0].Score
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	if max <= 0 {
		return
	}
	for i := range hits {
		hits[i].Score = hits[i].Score / max
	}
}

// Dedup removes later occurrences of a ContentHash already seen,
// preserving the first (highest-ranked, since Rank runs before Dedup).
func Dedup(hits []Hit) []Hit {
	seen := make(map[string]bool, len(hits))
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.ContentHash != "" && seen[h.ContentHash] {
			continue
		}
		if h.ContentHash != "" {
			seen[h.ContentHash] = true
		}
		out = append(out, h)
	}
	return out
}
