package quote

import (
	"testing"

	"standx-mm/pkg/types"
)

func testSpec() types.SymbolSpec {
	return types.SymbolSpec{Symbol: "BTC-PERP", PriceTick: 0.1, SizeTick: 0.001, MinOrderSize: 0.001}
}

func TestGenerateSymmetricAroundMid(t *testing.T) {
	t.Parallel()
	q := Generate(100, Params{SpreadBps: 20, BidNotional: 100, AskNotional: 100, Spec: testSpec()})

	if q.Bid.Price >= q.MidPrice {
		t.Errorf("bid price %v should be below mid %v", q.Bid.Price, q.MidPrice)
	}
	if q.Ask.Price <= q.MidPrice {
		t.Errorf("ask price %v should be above mid %v", q.Ask.Price, q.MidPrice)
	}
	if q.Bid.Price >= q.Ask.Price {
		t.Fatalf("bid %v should be strictly below ask %v", q.Bid.Price, q.Ask.Price)
	}
}

func TestGenerateSizeFromNotional(t *testing.T) {
	t.Parallel()
	q := Generate(100, Params{SpreadBps: 20, BidNotional: 1000, AskNotional: 500, Spec: testSpec()})

	wantBidSize := 1000 / q.Bid.Price
	if diff := wantBidSize - q.Bid.Size; diff < -0.01 || diff > 0.01 {
		t.Errorf("bid size = %v, want ~%v", q.Bid.Size, wantBidSize)
	}
	if q.Ask.Size >= q.Bid.Size {
		t.Errorf("ask size %v should be smaller than bid size %v given smaller notional", q.Ask.Size, q.Bid.Size)
	}
}

func TestGenerateInventorySkewShiftsQuote(t *testing.T) {
	t.Parallel()
	base := Params{SpreadBps: 20, BidNotional: 100, AskNotional: 100, Spec: testSpec()}

	unskewed := Generate(100, base)

	skewed := base
	skewed.InventorySkewEnabled = true
	skewed.SkewFactorBps = 50
	skewed.Position = 1
	skewed.MaxPosition = 1
	withSkew := Generate(100, skewed)

	if withSkew.Bid.Price >= unskewed.Bid.Price {
		t.Errorf("long position should skew bid down: got %v, want < %v", withSkew.Bid.Price, unskewed.Bid.Price)
	}
}

func TestInventorySkewDisabledByDefault(t *testing.T) {
	t.Parallel()
	p := Params{SpreadBps: 20, BidNotional: 100, AskNotional: 100, Spec: testSpec(), Position: 1, MaxPosition: 1, SkewFactorBps: 50}
	q := Generate(100, p)
	// InventorySkewEnabled left false: skew must not apply
	symmetric := Generate(100, Params{SpreadBps: 20, BidNotional: 100, AskNotional: 100, Spec: testSpec()})
	if q.Bid.Price != symmetric.Bid.Price {
		t.Errorf("skew applied despite InventorySkewEnabled=false: bid %v != %v", q.Bid.Price, symmetric.Bid.Price)
	}
}

func TestWithinMaxDeviation(t *testing.T) {
	t.Parallel()
	q := Generate(100, Params{SpreadBps: 20, BidNotional: 100, AskNotional: 100, Spec: testSpec()})
	if !q.WithinMaxDeviation(1000) {
		t.Error("WithinMaxDeviation(1000) = false, want true for a tight quote")
	}
	if q.WithinMaxDeviation(0) {
		t.Error("WithinMaxDeviation(0) = true, want false")
	}
}

func TestGenerateMatchesSpreadBpsDirectly(t *testing.T) {
	t.Parallel()
	spec := types.SymbolSpec{Symbol: "BTC-PERP", PriceTick: 0.1, SizeTick: 0.001, MinOrderSize: 0.001}
	q := Generate(1000, Params{SpreadBps: 5, BidNotional: 100, AskNotional: 100, Spec: spec})

	if q.Bid.Price != 999.5 {
		t.Errorf("Bid.Price = %v, want 999.5", q.Bid.Price)
	}
	if q.Ask.Price != 1000.5 {
		t.Errorf("Ask.Price = %v, want 1000.5", q.Ask.Price)
	}
}

func TestWithinMaxDeviationRejectsBeyondMaxDev(t *testing.T) {
	t.Parallel()
	spec := types.SymbolSpec{Symbol: "BTC-PERP", PriceTick: 0.1, SizeTick: 0.001, MinOrderSize: 0.001}
	q := Generate(1000, Params{SpreadBps: 15, BidNotional: 100, AskNotional: 100, Spec: spec})

	if q.WithinMaxDeviation(10) {
		t.Error("WithinMaxDeviation(10) = true, want false for a 15 bps spread")
	}
}

func TestGenerateRoundsToTick(t *testing.T) {
	t.Parallel()
	spec := types.SymbolSpec{Symbol: "X", PriceTick: 1, SizeTick: 1, MinOrderSize: 1}
	q := Generate(100.37, Params{SpreadBps: 50, BidNotional: 1000, AskNotional: 1000, Spec: spec})

	if q.Bid.Price != float64(int(q.Bid.Price)) {
		t.Errorf("bid price %v not rounded to whole tick", q.Bid.Price)
	}
	if q.Ask.Price != float64(int(q.Ask.Price)) {
		t.Errorf("ask price %v not rounded to whole tick", q.Ask.Price)
	}
}
