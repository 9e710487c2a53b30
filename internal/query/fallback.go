package query

// shouldFallback reports whether auto-fuzzy fallback should trigger:
// the query had no explicit wildcard and returned fewer hits than
// threshold, per spec.md §4.4.
func shouldFallback(q ParsedQuery, hitCount, threshold int) bool {
	if q.HasExplicitWildcard() {
		return false
	}
	return hitCount < threshold
}

// mergeFallbackHits appends fallback hits after the original hits,
// deduplicating by ContentHash and capping the total at limit. Original
// hits are never displaced — fallback only tops up a short page.
func mergeFallbackHits(original, fallback []Hit, limit int) []Hit {
	seen := make(map[string]bool, len(original))
	out := make([]Hit, 0, limit)
	for _, h := range original {
		if h.ContentHash != "" {
			seen[h.ContentHash] = true
		}
		out = append(out, h)
	}
	for _, h := range fallback {
		if len(out) >= limit {
			break
		}
		if h.ContentHash != "" && seen[h.ContentHash] {
			continue
		}
		h.MatchKind = MatchFallback
		out = append(out, h)
		if h.ContentHash != "" {
			seen[h.ContentHash] = true
		}
	}
	return out
}
