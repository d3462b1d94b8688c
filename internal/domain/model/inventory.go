// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"strings"

	"github.com/okian/appraiser/internal/domain/currency"
)

// Category is one of the fixed cosmetic groupings on a profile page.
type Category string

// Known categories, in the order the site normally renders them.
const (
	CategoryArtifact   Category = "Artifact"
	CategoryCape       Category = "Cape"
	CategoryKillphrase Category = "Killphrase"
	CategoryProjectile Category = "Projectile"
	CategoryMount      Category = "Mount"
)

// Categories returns the fixed set of categories that are valued.
func Categories() []Category {
	return []Category{
		CategoryArtifact,
		CategoryCape,
		CategoryKillphrase,
		CategoryProjectile,
		CategoryMount,
	}
}

// ParseCategory maps a section header to a known category. Matching ignores
// case and surrounding whitespace.
func ParseCategory(header string) (Category, bool) {
	header = strings.TrimSpace(header)
	for _, c := range Categories() {
		if strings.EqualFold(header, string(c)) {
			return c, true
		}
	}
	return "", false
}

// CatalogEntry is an immutable price record loaded from the catalog source.
type CatalogEntry struct {
	Name        string
	PriceUSD    float64
	PriceCoins  float64
	PriceShards float64
	ItemType    string
	Category    string
}

// ScrapedItem is a raw label captured from the profile page.
type ScrapedItem struct {
	RawName  string
	Category Category
}

// ValuedItem is a scraped item resolved against the catalog.
type ValuedItem struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	USD      float64  `json:"usd"`
	Coins    float64  `json:"coins"`
	Shards   float64  `json:"shards"`
}

// ValuationResult is the outcome of one scrape invocation. On failure only
// Success, PlayerID and Error are meaningful.
type ValuationResult struct {
	Success             bool
	PlayerID            string
	Items               []ValuedItem
	TotalUSD            float64
	TotalCoins          float64
	TotalShards         float64
	ItemCount           int
	CategoriesProcessed int
	Error               string
}

type successWire struct {
	Success             bool         `json:"success"`
	PlayerID            string       `json:"ign"`
	Items               []ValuedItem `json:"items"`
	TotalUSD            float64      `json:"total_usd"`
	TotalCoins          float64      `json:"total_coins"`
	TotalShards         float64      `json:"total_shards"`
	ItemCount           int          `json:"item_count"`
	CategoriesProcessed int          `json:"categories_processed"`
}

type failureWire struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	PlayerID string `json:"ign"`
}

// MarshalJSON renders the success or failure wire shape.
func (r ValuationResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failureWire{Error: r.Error, PlayerID: r.PlayerID})
	}
	items := r.Items
	if items == nil {
		items = []ValuedItem{}
	}
	return json.Marshal(successWire{
		Success:             true,
		PlayerID:            r.PlayerID,
		Items:               items,
		TotalUSD:            r.TotalUSD,
		TotalCoins:          r.TotalCoins,
		TotalShards:         r.TotalShards,
		ItemCount:           r.ItemCount,
		CategoriesProcessed: r.CategoriesProcessed,
	})
}

// UnmarshalJSON accepts either wire shape.
func (r *ValuationResult) UnmarshalJSON(data []byte) error {
	var w struct {
		successWire
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = ValuationResult{
		Success:             w.Success,
		PlayerID:            w.PlayerID,
		Items:               w.Items,
		TotalUSD:            w.TotalUSD,
		TotalCoins:          w.TotalCoins,
		TotalShards:         w.TotalShards,
		ItemCount:           w.ItemCount,
		CategoriesProcessed: w.CategoriesProcessed,
		Error:               w.Error,
	}
	return nil
}

// Failed builds a failure result for playerID.
func Failed(playerID, msg string) ValuationResult {
	return ValuationResult{PlayerID: playerID, Error: msg}
}

// Add appends a valued item and folds it into the running totals.
func (r *ValuationResult) Add(item ValuedItem) {
	r.Items = append(r.Items, item)
	r.TotalUSD = currency.Add(r.TotalUSD, item.USD)
	r.TotalCoins = currency.Add(r.TotalCoins, item.Coins)
	r.TotalShards = currency.Add(r.TotalShards, item.Shards)
	r.ItemCount = len(r.Items)
}
