package status

import (
	"time"

	"standx-mm/internal/config"
	"standx-mm/internal/engine"
)

// Provider is the read/write surface the status server needs from the
// engine, kept minimal to avoid a status -> engine -> status import cycle:
// status only depends on engine's exported types, never the reverse.
type Provider interface {
	GetFullStatus() engine.FullStatus
	Events() <-chan engine.Event
	ApplyRuntimeUpdate(config.RuntimeUpdate) error
	SwitchSymbol(symbol string) error
}

// BuildSnapshot aggregates the engine's full status into the wire shape.
func BuildSnapshot(p Provider, strat config.StrategyConfig, risk config.RiskConfig, dryRun bool) Snapshot {
	full := p.GetFullStatus()

	return Snapshot{
		Timestamp:        time.Now(),
		Status:           string(full.Status),
		Symbol:           full.Symbol,
		DryRun:           dryRun,
		MidPrice:         full.MidPrice,
		BestBid:          full.BestBid,
		BestAsk:          full.BestAsk,
		SpreadBps:        full.SpreadBps,
		ActiveOrders:     toOrderInfo(full.ActiveOrders),
		Position:         toPositionInfo(full.Position),
		TickCount:        full.TickCount,
		ConsecutiveFails: full.ConsecutiveFails,
		UptimeStats:      full.Uptime,
		Config:           toConfigSummary(strat, risk),
	}
}
