package status

import (
	"time"

	"standx-mm/internal/config"
	"standx-mm/internal/uptime"
	"standx-mm/pkg/types"
)

// Snapshot is the complete state returned by GET /api/status and
// POST /api/config, and pushed over /ws once on connect. Later engine
// events go out over /ws as Event envelopes carrying the engine's own
// event data, not a fresh Snapshot.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Status   string `json:"status"`
	Symbol   string `json:"symbol"`
	DryRun   bool   `json:"dry_run"`

	MidPrice  float64 `json:"mid_price"`
	BestBid   float64 `json:"best_bid"`
	BestAsk   float64 `json:"best_ask"`
	SpreadBps float64 `json:"spread_bps"`

	ActiveOrders []OrderInfo `json:"active_orders"`
	Position     PositionInfo `json:"position"`

	TickCount        int `json:"tick_count"`
	ConsecutiveFails int `json:"consecutive_failures"`

	UptimeStats uptime.Stats  `json:"uptime"`
	Config      ConfigSummary `json:"config"`
}

// OrderInfo is the wire shape for one resting order.
type OrderInfo struct {
	OrderID string  `json:"order_id"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Status  string  `json:"status"`
}

// PositionInfo is the wire shape for the current position.
type PositionInfo struct {
	Size          float64 `json:"size"`
	AvgEntry      float64 `json:"avg_entry"`
	Notional      float64 `json:"notional"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
}

// ConfigSummary is the subset of runtime config surfaced to operators.
type ConfigSummary struct {
	SpreadBps           int     `json:"spread_bps"`
	BidNotional         float64 `json:"bid_notional"`
	AskNotional         float64 `json:"ask_notional"`
	RequoteThresholdBps float64 `json:"requote_threshold_bps"`
	RefreshInterval     string  `json:"refresh_interval"`
	MaxPosition         float64 `json:"max_position"`
}

// Event is the wire envelope pushed over the WS stream.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// toOrderInfo converts the engine's active order list to wire shape.
func toOrderInfo(orders []types.Order) []OrderInfo {
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = OrderInfo{OrderID: o.ID, Side: string(o.Side), Price: o.Price, Size: o.Size, Status: string(o.Status)}
	}
	return out
}

func toPositionInfo(p types.Position) PositionInfo {
	return PositionInfo{
		Size: p.Size, AvgEntry: p.AvgEntry, Notional: p.Notional,
		UnrealizedPnL: p.UnrealizedPnL, RealizedPnL: p.RealizedPnL,
	}
}

func toConfigSummary(strat config.StrategyConfig, risk config.RiskConfig) ConfigSummary {
	return ConfigSummary{
		SpreadBps:           strat.SpreadBps,
		BidNotional:         strat.BidNotional,
		AskNotional:         strat.AskNotional,
		RequoteThresholdBps: strat.RequoteThresholdBps,
		RefreshInterval:     strat.RefreshInterval.String(),
		MaxPosition:         risk.MaxPosition,
	}
}
