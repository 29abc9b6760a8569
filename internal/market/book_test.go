package market

import (
	"testing"
	"time"

	"standx-mm/pkg/types"
)

const testSymbol = "BTC-PERP"

func newTestBook() *Book {
	return NewBook(testSymbol)
}

func TestApplySnapshot(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	b.ApplySnapshot(
		[]types.PriceLevel{{Price: 0.55, Size: 100}, {Price: 0.54, Size: 200}},
		[]types.PriceLevel{{Price: 0.57, Size: 150}},
	)

	bid, ask, ok := b.BestBidAsk()
	if !ok {
		t.Fatal("BestBidAsk returned ok=false after applying snapshot")
	}
	if bid != 0.55 {
		t.Errorf("bid = %v, want 0.55", bid)
	}
	if ask != 0.57 {
		t.Errorf("ask = %v, want 0.57", ask)
	}
}

func TestApplyDeltaUpsertAndDelete(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	b.ApplyDelta(types.BUY, 0.50, 10)
	b.ApplyDelta(types.SELL, 0.60, 10)

	bid, ask, ok := b.BestBidAsk()
	if !ok || bid != 0.50 || ask != 0.60 {
		t.Fatalf("BestBidAsk = (%v, %v, %v), want (0.50, 0.60, true)", bid, ask, ok)
	}

	// size <= 0 deletes the level
	b.ApplyDelta(types.BUY, 0.50, 0)
	_, _, ok = b.BestBidAsk()
	if ok {
		t.Error("BestBidAsk should return ok=false after deleting the only bid")
	}

	// deleting a level that doesn't exist is a no-op, not an error
	b.ApplyDelta(types.BUY, 0.49, 0)
}

func TestApplyDeltaReplacesSize(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	b.ApplyDelta(types.BUY, 0.50, 10)
	b.ApplyDelta(types.BUY, 0.50, 25)

	bids, _ := b.TopLevels(5)
	if len(bids) != 1 || bids[0].Size != 25 {
		t.Fatalf("bids = %+v, want single level with size 25", bids)
	}
}

func TestSnapshotReplacesPriorDeltaState(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	b.ApplyDelta(types.BUY, 0.40, 5)
	b.ApplySnapshot(
		[]types.PriceLevel{{Price: 0.50, Size: 10}},
		[]types.PriceLevel{{Price: 0.60, Size: 10}},
	)

	bid, ask, ok := b.BestBidAsk()
	if !ok || bid != 0.50 || ask != 0.60 {
		t.Fatalf("BestBidAsk = (%v, %v, %v), snapshot should discard the prior delta entirely", bid, ask, ok)
	}
}

func TestMidPrice(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	mid, ok := b.MidPrice()
	if ok || mid != 0 {
		t.Errorf("MidPrice on empty book = (%v, %v), want (0, false)", mid, ok)
	}

	b.ApplySnapshot(
		[]types.PriceLevel{{Price: 0.50, Size: 100}},
		[]types.PriceLevel{{Price: 0.60, Size: 100}},
	)

	mid, ok = b.MidPrice()
	if !ok || mid != 0.55 {
		t.Fatalf("MidPrice = (%v, %v), want (0.55, true)", mid, ok)
	}
}

func TestBestBidAskOneSided(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	b.ApplySnapshot([]types.PriceLevel{{Price: 0.50, Size: 100}}, nil)

	if _, _, ok := b.BestBidAsk(); ok {
		t.Error("BestBidAsk should return ok=false with only bids")
	}
}

func TestIsStale(t *testing.T) {
	t.Parallel()
	b := newTestBook()

	if !b.IsStale(time.Second) {
		t.Error("new book should be stale")
	}

	b.ApplySnapshot(
		[]types.PriceLevel{{Price: 0.50, Size: 100}},
		[]types.PriceLevel{{Price: 0.60, Size: 100}},
	)

	if b.IsStale(time.Second) {
		t.Error("just-updated book should not be stale")
	}

	time.Sleep(50 * time.Millisecond)
	if !b.IsStale(10 * time.Millisecond) {
		t.Error("book should be stale after maxAge")
	}
}
