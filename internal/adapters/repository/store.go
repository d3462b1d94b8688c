package repository

import (
	"context"
	"time"

	"github.com/okian/appraiser/internal/domain/model"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank                int       `json:"rank"`
	PlayerID            string    `json:"ign"`
	TotalUSD            float64   `json:"total_usd"`
	TotalCoins          float64   `json:"total_coins"`
	TotalShards         float64   `json:"total_shards"`
	ItemCount           int       `json:"item_count"`
	CategoriesProcessed int       `json:"categories_processed"`
	ValuedAt            time.Time `json:"valued_at"`
}

// Store provides read/write access to the ranking state.
type Store interface {
	// Record replaces the player's entry with res. Failed results are
	// rejected with ErrNotRankable.
	Record(ctx context.Context, res model.ValuationResult) error

	// Rank returns the player's current position. Returns ErrNotFound if the
	// player was never valued.
	Rank(ctx context.Context, playerID string) (Entry, error)

	// TopN returns up to n entries, most valuable first.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of ranked players.
	Count(ctx context.Context) int
}
