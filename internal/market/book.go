// Package market maintains the local order book mirror for the active
// symbol: a thread-safe, in-memory copy of the exchange's top-of-book
// state, kept current by snapshot and delta messages from the depth feed.
package market

import (
	"sort"
	"sync"
	"time"

	"standx-mm/pkg/types"
)

// Book is the local mirror of one symbol's order book. Bids and asks are
// keyed by price so that ApplyDelta can upsert or delete a single level
// without rescanning a slice.
type Book struct {
	mu      sync.RWMutex
	symbol  string
	bids    map[float64]float64 // price -> size
	asks    map[float64]float64
	updated time.Time
}

// NewBook creates an empty book mirror for symbol.
func NewBook(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   make(map[float64]float64),
		asks:   make(map[float64]float64),
	}
}

// ApplySnapshot replaces the entire book with a fresh snapshot, discarding
// any prior state. The engine calls it for each snapshot message from the
// WS depth feed.
func (b *Book) ApplySnapshot(bids, asks []types.PriceLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = make(map[float64]float64, len(bids))
	b.asks = make(map[float64]float64, len(asks))
	for _, lvl := range bids {
		b.bids[lvl.Price] = lvl.Size
	}
	for _, lvl := range asks {
		b.asks[lvl.Price] = lvl.Size
	}
	b.updated = time.Now()
}

// ApplyDelta applies a single incremental price-level update. A size of
// zero or less deletes the level; any positive size upserts it.
func (b *Book) ApplyDelta(side types.Side, price, size float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	book := b.bids
	if side == types.SELL {
		book = b.asks
	}
	if size <= 0 {
		delete(book, price)
	} else {
		book[price] = size
	}
	b.updated = time.Now()
}

// BestBidAsk returns the best bid and ask prices. ok is false if either
// side of the book is empty.
func (b *Book) BestBidAsk() (bid, ask float64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid, bidOK := bestPrice(b.bids, true)
	ask, askOK := bestPrice(b.asks, false)
	return bid, ask, bidOK && askOK
}

func bestPrice(levels map[float64]float64, highest bool) (float64, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	prices := make([]float64, 0, len(levels))
	for p := range levels {
		prices = append(prices, p)
	}
	sort.Float64s(prices)
	if highest {
		return prices[len(prices)-1], true
	}
	return prices[0], true
}

// MidPrice returns (bestBid+bestAsk)/2, or 0, false if the book is one-sided
// or empty.
func (b *Book) MidPrice() (float64, bool) {
	bid, ask, ok := b.BestBidAsk()
	if !ok {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// SpreadBps returns the best bid/ask spread in basis points of mid.
func (b *Book) SpreadBps() (float64, bool) {
	bid, ask, ok := b.BestBidAsk()
	if !ok {
		return 0, false
	}
	mid := (bid + ask) / 2
	if mid == 0 {
		return 0, false
	}
	return (ask - bid) / mid * 10000, true
}

// IsStale reports whether the book has gone longer than maxAge without an
// update.
func (b *Book) IsStale(maxAge time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.updated.IsZero() {
		return true
	}
	return time.Since(b.updated) > maxAge
}

// LastUpdated returns the timestamp of the most recent snapshot or delta.
func (b *Book) LastUpdated() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updated
}

// Symbol returns the symbol this book mirrors.
func (b *Book) Symbol() string {
	return b.symbol
}

// TopLevels returns up to depth bid and ask levels, best first, for the
// status snapshot surface.
func (b *Book) TopLevels(depth int) (bids, asks []types.PriceLevel) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bids = topN(b.bids, depth, true)
	asks = topN(b.asks, depth, false)
	return bids, asks
}

func topN(levels map[float64]float64, depth int, highest bool) []types.PriceLevel {
	prices := make([]float64, 0, len(levels))
	for p := range levels {
		prices = append(prices, p)
	}
	sort.Float64s(prices)
	if highest {
		for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
			prices[i], prices[j] = prices[j], prices[i]
		}
	}
	if len(prices) > depth {
		prices = prices[:depth]
	}
	out := make([]types.PriceLevel, len(prices))
	for i, p := range prices {
		out[i] = types.PriceLevel{Price: p, Size: levels[p]}
	}
	return out
}
