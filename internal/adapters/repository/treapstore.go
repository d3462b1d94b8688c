package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: total USD desc, then total coins desc, then player key asc.
// "less" means ranks earlier, so an in-order walk yields the leaderboard.
// Subtree sizes make Rank an O(log n) order-statistic query.

// amountScale keeps six decimal places when amounts become integers.
const amountScale = 1_000_000

type amountFP int64

func toFixedPoint(x float64) amountFP {
	switch {
	case math.IsNaN(x):
		return 0
	case math.IsInf(x, 1):
		return amountFP(math.MaxInt64)
	case math.IsInf(x, -1):
		return amountFP(math.MinInt64)
	}
	scaled := math.Round(x * amountScale)
	if scaled >= float64(math.MaxInt64) {
		return amountFP(math.MaxInt64)
	}
	if scaled <= float64(math.MinInt64) {
		return amountFP(math.MinInt64)
	}
	return amountFP(scaled)
}

type sortKey struct {
	usd   amountFP
	coins amountFP
	id    string
}

// less reports whether a ranks before b.
func less(a, b sortKey) bool {
	if a.usd != b.usd {
		return a.usd > b.usd
	}
	if a.coins != b.coins {
		return a.coins > b.coins
	}
	return a.id < b.id
}

type node struct {
	key   sortKey
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, k sortKey, prio uint64) *node {
	if n == nil {
		return &node{key: k, prio: prio, size: 1}
	}
	if less(k, n.key) {
		n.left = insert(n.left, k, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, k, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, k sortKey) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.key == k:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, k)
		}
	case less(k, n.key):
		n.left = deleteNode(n.left, k)
	default:
		n.right = deleteNode(n.right, k)
	}
	fix(n)
	return n
}

// position returns the 1-based in-order index of k.
func position(n *node, k sortKey) int {
	pos := 0
	for n != nil {
		switch {
		case n.key == k:
			return pos + nsize(n.left) + 1
		case less(k, n.key):
			n = n.left
		default:
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectTopN appends up to limit keys in rank order.
func collectTopN(n *node, limit int, out *[]sortKey) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.key)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore ranks the latest successful valuation of each player.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]Entry
	rng  *rand.Rand
	seed uint64
	now  func() time.Time
}

var _ Store = (*TreapStore)(nil)

// NewTreapStore constructs an empty store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]Entry),
		now:  time.Now,
		seed: rand.Uint64(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	metrics.UpdateRankedPlayers(0)
	return s
}

func playerKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func keyOf(e Entry) sortKey {
	return sortKey{
		usd:   toFixedPoint(e.TotalUSD),
		coins: toFixedPoint(e.TotalCoins),
		id:    playerKey(e.PlayerID),
	}
}

// Record implements Store.Record in O(log n) expected time.
func (s *TreapStore) Record(_ context.Context, res model.ValuationResult) error {
	if !res.Success {
		return ErrNotRankable
	}
	id := playerKey(res.PlayerID)
	if id == "" {
		return ErrNotFound
	}
	e := Entry{
		PlayerID:            strings.TrimSpace(res.PlayerID),
		TotalUSD:            res.TotalUSD,
		TotalCoins:          res.TotalCoins,
		TotalShards:         res.TotalShards,
		ItemCount:           res.ItemCount,
		CategoriesProcessed: res.CategoriesProcessed,
		ValuedAt:            s.now(),
	}

	s.mu.Lock()
	if old, ok := s.byID[id]; ok {
		s.root = deleteNode(s.root, keyOf(old))
	}
	s.byID[id] = e
	s.root = insert(s.root, keyOf(e), s.rng.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateRankedPlayers(count)
	return nil
}

// Rank returns the player's entry with its current position.
func (s *TreapStore) Rank(_ context.Context, playerID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[playerKey(playerID)]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	e.Rank = position(s.root, keyOf(e))
	return e, nil
}

// TopN returns the n most valuable entries.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]sortKey, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &keys)

	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = s.byID[k.id]
		out[i].Rank = i + 1
	}
	return out, nil
}

// Count returns the number of ranked players.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
