package ftsindex

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// EdgeNgramAnalyzerName is the registered analyzer used by the
// *_prefix fields: every hyphen-normalized token fanned out to each of
// its prefixes, enabling a plain MatchQuery/PrefixQuery against these
// fields to behave like a prefix-search index.
const EdgeNgramAnalyzerName = "edge-ngram-preview"

// DefaultEdgeNgramMax caps how long a fanned-out prefix can get, so a
// 40-character identifier doesn't explode into 40 index terms.
const DefaultEdgeNgramMax = 15

// edgeNgramFilter wraps hyphen-normalize's token stream and emits, for
// every incoming token, one token per prefix length from 1 to Max
// (capped by the token's own length).
type edgeNgramFilter struct {
	Max int
}

func newEdgeNgramFilter(max int) *edgeNgramFilter {
	if max <= 0 {
		max = DefaultEdgeNgramMax
	}
	return &edgeNgramFilter{Max: max}
}

func (f *edgeNgramFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input)*2)
	pos := 1
	for _, tok := range input {
		runes := []rune(string(tok.Term))
		limit := f.Max
		if limit > len(runes) {
			limit = len(runes)
		}
		for n := 1; n <= limit; n++ {
			out = append(out, &analysis.Token{
				Term:     []byte(string(runes[:n])),
				Start:    tok.Start,
				End:      tok.End,
				Position: pos,
				Type:     tok.Type,
			})
			pos++
		}
	}
	return out
}

func edgeNgramAnalyzerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Analyzer, error) {
	base, err := cache.AnalyzerNamed(HyphenNormalizeName)
	if err != nil {
		return nil, err
	}
	baseAnalyzer, ok := base.(*analysis.DefaultAnalyzer)
	if !ok {
		return nil, errAnalyzerType
	}

	max := DefaultEdgeNgramMax
	if v, ok := config["max"].(float64); ok && v > 0 {
		max = int(v)
	}

	filters := make([]analysis.TokenFilter, 0, len(baseAnalyzer.TokenFilters)+1)
	filters = append(filters, baseAnalyzer.TokenFilters...)
	filters = append(filters, newEdgeNgramFilter(max))

	return &analysis.DefaultAnalyzer{
		Tokenizer:    baseAnalyzer.Tokenizer,
		TokenFilters: filters,
	}, nil
}

var errAnalyzerType = &analyzerTypeError{}

type analyzerTypeError struct{}

func (*analyzerTypeError) Error() string { return "hyphen-normalize analyzer has unexpected type" }

func init() {
	registry.RegisterAnalyzer(EdgeNgramAnalyzerName, edgeNgramAnalyzerConstructor)
}
