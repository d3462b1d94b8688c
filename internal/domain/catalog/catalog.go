// Package catalog loads the static price list and indexes it for lookups.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/okian/appraiser/internal/domain/currency"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/logger"
	"github.com/titanous/json5"
)

// itemsKey is the top-level collection holding item records.
const itemsKey = "items"

// Index is the immutable lookup structure built from the catalog entries.
// It is safe for concurrent reads.
type Index struct {
	entries    []model.CatalogEntry
	exact      map[string]int
	normalized map[string]int
	// keys holds normalized keys in first-seen order; fuzzy matching walks it.
	keys []string
}

// Empty returns an index without entries; every lookup misses.
func Empty() *Index {
	return &Index{
		exact:      map[string]int{},
		normalized: map[string]int{},
	}
}

// New indexes entries. When two names share a key the later entry wins.
func New(entries []model.CatalogEntry) *Index {
	idx := &Index{
		entries:    make([]model.CatalogEntry, 0, len(entries)),
		exact:      make(map[string]int, len(entries)),
		normalized: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		idx.add(e)
	}
	return idx
}

func (idx *Index) add(e model.CatalogEntry) {
	pos := len(idx.entries)
	idx.entries = append(idx.entries, e)

	if k := ExactKey(e.Name); k != "" {
		idx.exact[k] = pos
	}
	k := NormalizedKey(e.Name)
	if k == "" {
		return
	}
	if _, seen := idx.normalized[k]; !seen {
		idx.keys = append(idx.keys, k)
	}
	idx.normalized[k] = pos
}

// Len returns the number of loaded entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Entries returns a copy of the loaded entries in source order.
func (idx *Index) Entries() []model.CatalogEntry {
	out := make([]model.CatalogEntry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// ByExact looks up an ExactKey.
func (idx *Index) ByExact(key string) (model.CatalogEntry, bool) {
	pos, ok := idx.exact[key]
	if !ok {
		return model.CatalogEntry{}, false
	}
	return idx.entries[pos], true
}

// ByNormalized looks up a NormalizedKey.
func (idx *Index) ByNormalized(key string) (model.CatalogEntry, bool) {
	pos, ok := idx.normalized[key]
	if !ok {
		return model.CatalogEntry{}, false
	}
	return idx.entries[pos], true
}

// EachNormalized calls fn for every normalized key in first-seen order until
// fn returns false.
func (idx *Index) EachNormalized(fn func(key string, e model.CatalogEntry) bool) {
	for _, k := range idx.keys {
		if !fn(k, idx.entries[idx.normalized[k]]) {
			return
		}
	}
}

// Load reads the catalog at path. A missing or malformed source yields an
// empty index and a warning; Load never fails.
func Load(ctx context.Context, log logger.Logger, path string) *Index {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		kind := ErrSourceMalformed
		if errors.Is(err, fs.ErrNotExist) {
			kind = ErrSourceMissing
		}
		log.Warn(ctx, "catalog unavailable, continuing with empty catalog",
			logger.String("path", path), logger.Error(fmt.Errorf("%w: %w", kind, err)))
		return Empty()
	}
	defer func() { _ = f.Close() }()

	idx, err := Read(ctx, log, f)
	if err != nil {
		log.Warn(ctx, "catalog unreadable, continuing with empty catalog",
			logger.String("path", path), logger.Error(err))
		return Empty()
	}
	log.Info(ctx, "catalog loaded",
		logger.String("path", path),
		logger.Int("entries", idx.Len()),
		logger.Duration("took", time.Since(start)),
	)
	return idx
}

// Read decodes a catalog document. The document must be an object with an
// "items" array; each record carries name, usd, coins, shards, type and
// category. Prices may be strings or numbers.
func Read(ctx context.Context, log logger.Logger, r io.Reader) (*Index, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceMalformed, err)
	}

	var doc map[string]any
	if err := json5.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceMalformed, err)
	}
	items, ok := doc[itemsKey].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q collection", ErrSourceMalformed, itemsKey)
	}

	entries := make([]model.CatalogEntry, 0, len(items))
	for i, it := range items {
		rec, ok := it.(map[string]any)
		if !ok {
			log.Warn(ctx, "skipping catalog record that is not an object", logger.Int("index", i))
			continue
		}
		name := field(rec, "name")
		if name == "" {
			log.Warn(ctx, "skipping catalog record without name", logger.Int("index", i))
			continue
		}
		entries = append(entries, model.CatalogEntry{
			Name:        name,
			PriceUSD:    currency.Parse(ctx, log, field(rec, "usd")),
			PriceCoins:  currency.Parse(ctx, log, field(rec, "coins")),
			PriceShards: currency.Parse(ctx, log, field(rec, "shards")),
			ItemType:    field(rec, "type"),
			Category:    field(rec, "category"),
		})
	}
	return New(entries), nil
}

// field renders a scalar record value as text.
func field(rec map[string]any, key string) string {
	switch v := rec[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
