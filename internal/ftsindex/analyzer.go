package ftsindex

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/registry"
	"golang.org/x/text/cases"
)

// HyphenNormalizeName is the registered analyzer name used by the
// document mapping's title/content fields.
const HyphenNormalizeName = "hyphen-normalize"

// hyphenTokenizer splits on ASCII whitespace and punctuation, but treats
// '-', '_', '.' and '+' as soft split points: it emits the atomic run
// ("cma-es", "foo.bar", "c++") in addition to the non-empty parts either
// side of those characters ("cma", "es"; "foo", "bar"; "c"), so a search
// for a part or the whole compound matches. Bytes of non-ASCII characters
// stay inside a run, so non-ASCII punctuation does not split a token and
// ideographic text is not split per character.
type hyphenTokenizer struct{}

func newHyphenTokenizer() *hyphenTokenizer { return &hyphenTokenizer{} }

func (t *hyphenTokenizer) Tokenize(input []byte) analysis.TokenStream {
	var stream analysis.TokenStream
	pos := 1
	start := -1

	flushRun := func(end int) {
		if start < 0 {
			return
		}
		run := input[start:end]
		stream = append(stream, &analysis.Token{
			Term:     run,
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		for _, part := range splitSoft(run) {
			if len(part.term) == 0 || (len(part.term) == end-start) {
				continue
			}
			stream = append(stream, &analysis.Token{
				Term:     part.term,
				Start:    start + part.offset,
				End:      start + part.offset + len(part.term),
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
		}
		start = -1
	}

	for i := 0; i < len(input); i++ {
		b := input[i]
		if isTokenByte(b) {
			if start < 0 {
				start = i
			}
			continue
		}
		flushRun(i)
	}
	flushRun(len(input))

	return stream
}

// isTokenByte reports whether b may appear inside a token: ASCII
// alphanumerics, the four soft-split characters, and any byte of a
// non-ASCII UTF-8 sequence.
func isTokenByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '_' || b == '.' || b == '+':
		return true
	case b >= 0x80:
		return true
	default:
		return false
	}
}

type softPart struct {
	term   []byte
	offset int
}

// splitSoft breaks run on '-', '_', '.' and '+' boundaries, dropping
// empty parts.
func splitSoft(run []byte) []softPart {
	var out []softPart
	start := 0
	for i := 0; i <= len(run); i++ {
		if i == len(run) || run[i] == '-' || run[i] == '_' || run[i] == '.' || run[i] == '+' {
			if i > start {
				out = append(out, softPart{term: run[start:i], offset: start})
			}
			start = i + 1
		}
	}
	return out
}

// caseFoldFilter lowercases tokens via golang.org/x/text/cases, used
// instead of bleve's built-in lowercase filter for Unicode-aware folding
// (e.g. German ß, Turkish dotless i) beyond ASCII.
type caseFoldFilter struct {
	caser cases.Caser
}

func newCaseFoldFilter() *caseFoldFilter {
	return &caseFoldFilter{caser: cases.Fold()}
}

func (f *caseFoldFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	for _, tok := range input {
		tok.Term = []byte(f.caser.String(string(tok.Term)))
	}
	return input
}

func hyphenNormalizeConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Analyzer, error) {
	return &analysis.DefaultAnalyzer{
		Tokenizer: newHyphenTokenizer(),
		TokenFilters: []analysis.TokenFilter{
			newCaseFoldFilter(),
			lowercase.NewLowerCaseFilter(),
		},
	}, nil
}

func init() {
	registry.RegisterAnalyzer(HyphenNormalizeName, hyphenNormalizeConstructor)
}
