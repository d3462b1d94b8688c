// Package matcher resolves scraped cosmetic labels to catalog entries.
package matcher

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"github.com/okian/appraiser/internal/domain/catalog"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/logger"
	"github.com/okian/appraiser/pkg/metrics"
	"github.com/patrickmn/go-cache"
)

// Fuzzy matching thresholds.
const (
	minFuzzyLen     = 4    // both sides must be strictly longer
	minOverlapRatio = 0.80 // min(len)/max(len)
)

// MatchKind reports which stage resolved a label.
type MatchKind int

const (
	NoMatch MatchKind = iota
	ExactMatch
	NormalizedMatch
	FuzzyMatch
)

func (k MatchKind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case NormalizedMatch:
		return "normalized"
	case FuzzyMatch:
		return "fuzzy"
	default:
		return "none"
	}
}

// Match is the outcome of a resolution.
type Match struct {
	Entry model.CatalogEntry
	Kind  MatchKind
}

// Suggestion is a ranked near miss.
type Suggestion struct {
	Entry      model.CatalogEntry
	Similarity float64
}

type memoEntry struct {
	match Match
}

// Resolver resolves labels against an immutable catalog index. Resolutions
// are memoised because the catalog never changes during the process.
type Resolver struct {
	index    *catalog.Index
	memo     *cache.Cache
	memoSize int
	logger   logger.Logger
}

// New constructs a Resolver over idx.
func New(idx *catalog.Index, opts ...Option) *Resolver {
	if idx == nil {
		idx = catalog.Empty()
	}
	r := &Resolver{
		index:    idx,
		memoSize: 10_000,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.memoSize > 0 {
		r.memo = cache.New(cache.NoExpiration, 0)
	}
	return r
}

// Resolve maps rawName to a catalog entry. Stages, first hit wins:
//  1. exact match on the lower-cased trimmed name
//  2. exact match on the normalized name
//  3. containment match, when both normalized strings are longer than four
//     characters, their length ratio is at least 0.80 and one contains the
//     other. The first qualifying key in catalog order is taken.
func (r *Resolver) Resolve(ctx context.Context, rawName string) (Match, bool) {
	exact := catalog.ExactKey(rawName)
	if r.memo != nil {
		if v, ok := r.memo.Get(exact); ok {
			metrics.RecordMatchCacheHit()
			m := v.(memoEntry).match
			return m, m.Kind != NoMatch
		}
	}

	m := r.resolve(exact, catalog.NormalizedKey(rawName))
	if r.memo != nil && r.memo.ItemCount() < r.memoSize {
		r.memo.Set(exact, memoEntry{match: m}, cache.NoExpiration)
	}
	if m.Kind == FuzzyMatch {
		r.logger.Debug(ctx, "fuzzy matched label",
			logger.String("label", rawName),
			logger.String("entry", m.Entry.Name),
		)
	}
	return m, m.Kind != NoMatch
}

func (r *Resolver) resolve(exact, normalized string) Match {
	if e, ok := r.index.ByExact(exact); ok {
		return Match{Entry: e, Kind: ExactMatch}
	}
	if e, ok := r.index.ByNormalized(normalized); ok {
		return Match{Entry: e, Kind: NormalizedMatch}
	}

	qLen := utf8.RuneCountInString(normalized)
	if qLen <= minFuzzyLen {
		return Match{}
	}

	var found Match
	r.index.EachNormalized(func(key string, e model.CatalogEntry) bool {
		if overlaps(normalized, qLen, key) {
			found = Match{Entry: e, Kind: FuzzyMatch}
			return false
		}
		return true
	})
	return found
}

func overlaps(query string, qLen int, key string) bool {
	kLen := utf8.RuneCountInString(key)
	if kLen <= minFuzzyLen {
		return false
	}
	short, long := qLen, kLen
	if short > long {
		short, long = long, short
	}
	if float64(short)/float64(long) < minOverlapRatio {
		return false
	}
	return strings.Contains(query, key) || strings.Contains(key, query)
}

// Suggest ranks catalog entries by Jaro-Winkler similarity to name and
// returns at most n of them, best first.
func (r *Resolver) Suggest(name string, n int) []Suggestion {
	q := catalog.NormalizedKey(name)
	if q == "" || n <= 0 {
		return nil
	}
	var out []Suggestion
	r.index.EachNormalized(func(key string, e model.CatalogEntry) bool {
		out = append(out, Suggestion{Entry: e, Similarity: matchr.JaroWinkler(q, key, false)})
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// CatalogSize reports the number of entries behind the resolver.
func (r *Resolver) CatalogSize() int { return r.index.Len() }
