package query

import (
	"hash/fnv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheKey identifies one cached search: the normalized query string
// plus the active filters, so two identical query strings under
// different filters never collide.
type cacheKey struct {
	NormalizedQuery   string
	FilterFingerprint string
}

func (k cacheKey) shardIndex(shardCount int) int {
	h := fnv.New64a()
	h.Write([]byte(k.NormalizedQuery))
	h.Write([]byte{0})
	h.Write([]byte(k.FilterFingerprint))
	return int(h.Sum64() % uint64(shardCount))
}

// cachedHit mirrors a Hit plus the Bloom mask and lowercased triple
// incremental refinement needs to test a longer query without a real
// search.
type cachedHit struct {
	hit     Hit
	mask    bloomMask
	lTitle  string
	lSnip   string
	lBody   string
}

// cacheEntry is what one cacheKey maps to: the materialized hit list for
// that exact (query, filters) pair.
type cacheEntry struct {
	hits            []cachedHit
	indexSchemaHash string
}

// shard is one LRU partition guarded by its own mutex, so prefix-cache
// traffic on unrelated queries never contends on a single global lock.
type shard struct {
	mu    sync.Mutex
	cache *lru.Cache[cacheKey, *cacheEntry]
}

// PrefixCache is the sharded LRU described in spec.md §5/§4.4: N shards
// selected by a hash of (query, filters), each independently locked and
// bounded, behind a global-cap ceiling on total entries.
type PrefixCache struct {
	shards    []*shard
	globalCap int

	mu    sync.Mutex
	total int
}

// NewPrefixCache builds a PrefixCache with shardCount shards of
// shardSize entries each, refusing to grow past globalCap entries total
// across every shard (a globalCap <= 0 means no cap).
func NewPrefixCache(shardCount, shardSize, globalCap int) *PrefixCache {
	if shardCount <= 0 {
		shardCount = 8
	}
	if shardSize <= 0 {
		shardSize = 256
	}
	pc := &PrefixCache{globalCap: globalCap}
	pc.shards = make([]*shard, shardCount)
	for i := range pc.shards {
		c, err := lru.New[cacheKey, *cacheEntry](shardSize)
		if err != nil {
			// shardSize is always a positive int from config defaults;
			// this only fires on programmer error, e.g. a negative
			// CONVOINDEX_CACHE_SHARD_SIZE slipping past validation.
			panic("query: invalid cache shard size: " + err.Error())
		}
		pc.shards[i] = &shard{cache: c}
	}
	return pc
}

func (pc *PrefixCache) shardFor(key cacheKey) *shard {
	return pc.shards[key.shardIndex(len(pc.shards))]
}

// Get looks up the exact (query, filters) pair.
func (pc *PrefixCache) Get(key cacheKey) (*cacheEntry, bool) {
	sh := pc.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.cache.Get(key)
}

// Put stores entry under key, evicting within its shard per normal LRU
// semantics. pc.total counts entries across every shard; a key not
// already cached is not stored once pc.total has reached globalCap.
func (pc *PrefixCache) Put(key cacheKey, entry *cacheEntry) {
	sh := pc.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	existed := sh.cache.Contains(key)

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !existed && pc.globalCap > 0 && pc.total >= pc.globalCap {
		return
	}
	if evicted := sh.cache.Add(key, entry); !existed && !evicted {
		pc.total++
	}
}

// FindRefinementBase looks for a cached entry whose query is a strict
// string-prefix of query (same filters) — the "superset string" case
// spec.md §4.4 describes, where a longer query can reuse a shorter
// query's cached hits instead of re-searching from scratch.
func (pc *PrefixCache) FindRefinementBase(query, filterFingerprint string) (cacheKey, *cacheEntry, bool) {
	for prefixLen := len(query) - 1; prefixLen >= 1; prefixLen-- {
		candidate := cacheKey{NormalizedQuery: query[:prefixLen], FilterFingerprint: filterFingerprint}
		if entry, ok := pc.Get(candidate); ok {
			return candidate, entry, true
		}
	}
	return cacheKey{}, nil, false
}

// Refine attempts to answer a longer query from a shorter cached entry
// without a real search: for each cached hit, the new query's token
// Bloom mask must be a subset of the hit's mask before a real substring
// check on the lowered content ever runs. Returns ok=false if refinement
// could not produce at least limit hits, signaling the caller to fall
// through to a real Search.
func Refine(entry *cacheEntry, newQuery string, limit int) (hits []Hit, ok bool) {
	suffixTokens := tokenize(newQuery)
	if len(suffixTokens) == 0 {
		return nil, false
	}
	queryMask := newBloomMask(suffixTokens)
	lowerQuery := strings.ToLower(newQuery)

	var out []Hit
	for _, ch := range entry.hits {
		if !ch.mask.MayContain(queryMask) {
			continue
		}
		if strings.Contains(ch.lBody, lowerQuery) || strings.Contains(ch.lTitle, lowerQuery) || strings.Contains(ch.lSnip, lowerQuery) {
			out = append(out, ch.hit)
		}
	}
	if len(out) < limit {
		return nil, false
	}
	return out, true
}

func newCachedHit(h Hit) cachedHit {
	return cachedHit{
		hit:    h,
		mask:   newBloomMask(tokenize(h.Content)),
		lTitle: strings.ToLower(h.Title),
		lSnip:  strings.ToLower(h.Snippet),
		lBody:  strings.ToLower(h.Content),
	}
}
