// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the bot — order types, symbol
// metadata, order book levels, and WebSocket event payloads. It has no
// dependencies on internal packages, so it can be imported by any layer.
package types

import "time"

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order: BUY or SELL.
type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// OrderType enumerates the supported order lifecycles.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Til-Cancelled: stays on book until filled or cancelled
)

// OrderStatus tracks the lifecycle of a resting order.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
	OrderGone      OrderStatus = "gone" // already gone at the exchange; the engine does not assign it and records a 404 on cancel as OrderCancelled
)

// ————————————————————————————————————————————————————————————————————————
// Symbols
// ————————————————————————————————————————————————————————————————————————

// SymbolSpec describes the tradeable properties of a supported symbol:
// the price increment and size increment orders must be rounded to.
type SymbolSpec struct {
	Symbol       string
	PriceTick    float64 // minimum price increment
	SizeTick     float64 // minimum size increment
	MinOrderSize float64
}

// PriceDecimals returns the number of decimal places implied by PriceTick.
func (s SymbolSpec) PriceDecimals() int {
	return decimalsOf(s.PriceTick)
}

// SizeDecimals returns the number of decimal places implied by SizeTick.
func (s SymbolSpec) SizeDecimals() int {
	return decimalsOf(s.SizeTick)
}

func decimalsOf(tick float64) int {
	n := 0
	for tick > 0 && tick < 1 && n < 12 {
		tick *= 10
		n++
	}
	return n
}

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

// DesiredOrder is the quote generator's output for one side of the book:
// the price/size the engine wants resting, before reconciliation against
// what's actually live.
type DesiredOrder struct {
	Side  Side
	Price float64
	Size  float64
}

// Order represents a live or recently-live resting order.
type Order struct {
	ID        string
	Side      Side
	Price     float64
	Size      float64
	Filled    float64
	Status    OrderStatus
	PlacedAt  time.Time
}

// IsStale reports whether the order has been resting longer than maxAge.
func (o Order) IsStale(maxAge time.Duration) bool {
	return time.Since(o.PlacedAt) > maxAge
}

// DeviationBps returns the order's distance from mid in basis points.
func (o Order) DeviationBps(mid float64) float64 {
	if mid == 0 {
		return 0
	}
	dev := (o.Price - mid) / mid * 10000
	if dev < 0 {
		dev = -dev
	}
	return dev
}

// OrderRequest is the REST payload shape for placing a new order.
type OrderRequest struct {
	Symbol      string `json:"symbol"`
	Side        Side   `json:"side"`
	Type        string `json:"type"` // "limit"
	Price       string `json:"price"`
	Size        string `json:"size"`
	TimeInForce string `json:"time_in_force"` // "GTC"
	PostOnly    bool   `json:"post_only"`
	ReduceOnly  bool   `json:"reduce_only,omitempty"`
}

// OrderResponse is the REST response after placing an order.
type OrderResponse struct {
	OrderID string `json:"order_id"`
	ID      string `json:"id"`
	Status  string `json:"status"`
}

// ResolvedOrderID returns whichever of OrderID/ID the exchange populated.
func (r OrderResponse) ResolvedOrderID() string {
	if r.OrderID != "" {
		return r.OrderID
	}
	return r.ID
}

// ————————————————————————————————————————————————————————————————————————
// Positions
// ————————————————————————————————————————————————————————————————————————

// Position is the exchange-reported net position for the active symbol.
type Position struct {
	Size          float64 // positive = long, negative = short
	AvgEntry      float64
	Notional      float64
	UnrealizedPnL float64
	RealizedPnL   float64
	UpdatedAt     time.Time
}

// PositionResponse is the REST response shape for GET /positions. StandX
// may return either a single object or a one-element list for a symbol
// query; both are handled by the exchange client.
type PositionResponse struct {
	Size          string `json:"size"`
	Quantity      string `json:"quantity"`
	AvgEntry      string `json:"avg_entry_price"`
	EntryPrice    string `json:"entry_price"`
	UnrealizedPnL string `json:"unrealized_pnl"`
	RealizedPnL   string `json:"realized_pnl"`
}

// ————————————————————————————————————————————————————————————————————————
// Order book
// ————————————————————————————————————————————————————————————————————————

// PriceLevel is a single bid or ask level in the order book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// BookSnapshotResponse is the REST fallback response from GET /orderbook.
type BookSnapshotResponse struct {
	Symbol string       `json:"symbol"`
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
}

// ————————————————————————————————————————————————————————————————————————
// WebSocket messages
// ————————————————————————————————————————————————————————————————————————

// WSSubscribeMsg is sent on connect to subscribe to the orderbook channel.
type WSSubscribeMsg struct {
	Type    string `json:"type"` // "subscribe"
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

// WSUnsubscribeMsg is sent to leave a symbol's channel before subscribing
// to a new one during a runtime symbol switch.
type WSUnsubscribeMsg struct {
	Type    string `json:"type"` // "unsubscribe"
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

// WSRawLevel is a two-element [price, size] pair as sent on the wire.
type WSRawLevel [2]float64

// WSSnapshotMsg is a full order book replacement.
type WSSnapshotMsg struct {
	Type  string       `json:"type"`
	Event string       `json:"event"`
	Bids  []WSRawLevel `json:"bids"`
	Asks  []WSRawLevel `json:"asks"`
}

// WSChange is one incremental price-level update.
type WSChange struct {
	Side  string  `json:"side"` // "bid" or "ask"
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Qty   float64 `json:"quantity"`
}

// ResolvedSize returns whichever of Size/Qty the exchange populated.
func (c WSChange) ResolvedSize() float64 {
	if c.Size != 0 {
		return c.Size
	}
	return c.Qty
}

// WSDeltaMsg carries one or more incremental book changes.
type WSDeltaMsg struct {
	Type    string     `json:"type"`
	Event   string     `json:"event"`
	Changes []WSChange `json:"changes"`
	Updates []WSChange `json:"updates"`
}

// ResolvedChanges returns whichever of Changes/Updates the exchange
// populated.
func (m WSDeltaMsg) ResolvedChanges() []WSChange {
	if len(m.Changes) > 0 {
		return m.Changes
	}
	return m.Updates
}

// WSEnvelope is used to peek the message type before deciding which
// concrete struct to unmarshal into.
type WSEnvelope struct {
	Type  string `json:"type"`
	Event string `json:"event"`
}

// ResolvedType returns whichever of Type/Event is populated, matching the
// exchange's "type, falling back to event" convention.
func (e WSEnvelope) ResolvedType() string {
	if e.Type != "" {
		return e.Type
	}
	return e.Event
}
