// Package quote computes two-sided quotes from a mid price and the
// active strategy configuration. Generate is a pure function: no I/O,
// no locks, safe to call from the control loop on every tick and to
// exercise directly in tests.
package quote

import (
	"math"

	"standx-mm/pkg/types"
)

// Params bundles the inputs Generate needs beyond the current mid price.
type Params struct {
	SpreadBps             float64
	BidNotional           float64
	AskNotional           float64
	MaxSpreadDeviationBps float64
	InventorySkewEnabled  bool
	SkewFactorBps         float64
	Position              float64 // current net position, base asset
	MaxPosition           float64 // risk.max_position, used to normalize skew
	Spec                  types.SymbolSpec
}

// Quote is a two-sided desired quote, plus the metadata needed to judge
// whether it should be replaced.
type Quote struct {
	Bid, Ask         types.DesiredOrder
	MidPrice         float64
	SpreadBps        float64
	BidDeviationBps  float64
	AskDeviationBps  float64
}

// WithinMaxDeviation reports whether both sides are inside the configured
// hard safety rail, independent of the requote threshold.
func (q Quote) WithinMaxDeviation(maxBps float64) bool {
	return q.BidDeviationBps <= maxBps && q.AskDeviationBps <= maxBps
}

// Generate computes a two-sided quote around mid. Inventory skew, when
// enabled, shifts both sides by the same amount in the direction that
// reduces the resting position, scaled linearly by how far position is
// from zero relative to MaxPosition.
func Generate(mid float64, p Params) Quote {
	halfSpread := mid * p.SpreadBps / 10000

	var skew float64
	if p.InventorySkewEnabled && p.MaxPosition > 0 {
		skew = (p.Position / p.MaxPosition) * p.SkewFactorBps / 10000 * mid
	}

	tickDec := p.Spec.PriceDecimals()
	bidRaw := mid - halfSpread - skew
	askRaw := mid + halfSpread - skew

	tick := math.Pow(10, -float64(tickDec))
	if bidRaw >= askRaw {
		bidRaw = askRaw - tick
	}

	bidPrice := roundDownToTick(bidRaw, tickDec)
	askPrice := roundUpToTick(askRaw, tickDec)
	if bidPrice >= askPrice {
		askPrice = bidPrice + tick
	}

	sizeDec := p.Spec.SizeDecimals()
	bidSize := roundDownToTick(p.BidNotional/bidPrice, sizeDec)
	askSize := roundDownToTick(p.AskNotional/askPrice, sizeDec)
	if bidSize < p.Spec.MinOrderSize {
		bidSize = p.Spec.MinOrderSize
	}
	if askSize < p.Spec.MinOrderSize {
		askSize = p.Spec.MinOrderSize
	}

	q := Quote{
		Bid:       types.DesiredOrder{Side: types.BUY, Price: bidPrice, Size: bidSize},
		Ask:       types.DesiredOrder{Side: types.SELL, Price: askPrice, Size: askSize},
		MidPrice:  mid,
		SpreadBps: (askPrice - bidPrice) / mid * 10000,
	}
	q.BidDeviationBps = deviationBps(mid, bidPrice)
	q.AskDeviationBps = deviationBps(mid, askPrice)
	return q
}

func deviationBps(mid, price float64) float64 {
	if mid == 0 {
		return 0
	}
	return math.Abs(price-mid) / mid * 10000
}

func roundDownToTick(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Floor(v*pow) / pow
}

func roundUpToTick(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Ceil(v*pow) / pow
}
