// Package engine is the control loop that ties the order book mirror,
// quote generator, and exchange client together into a single-symbol
// market-making bot.
//
// Lifecycle: New() → Start() → [ticks until Stop() or a kill-switch trip].
// Each tick: read the mirrored book, generate a two-sided quote,
// reconcile resting orders against it, sync position, and feed the
// uptime accountant.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"standx-mm/internal/config"
	"standx-mm/internal/exchange"
	"standx-mm/internal/feed"
	"standx-mm/internal/market"
	"standx-mm/internal/quote"
	"standx-mm/internal/uptime"
	"standx-mm/pkg/types"
)

// Status is the engine's lifecycle state.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusError    Status = "error"
	StatusKilled   Status = "killed"
)

// Event is a point-in-time notification for the status surface's event
// stream: fills, order lifecycle transitions, kill-switch trips, and
// quote updates.
type Event struct {
	Type      string
	Timestamp time.Time
	Data      interface{}
}

// OrderEvent reports a resting order's lifecycle transition.
type OrderEvent struct {
	OrderID string
	Side    types.Side
	Status  types.OrderStatus
	Price   float64
	Size    float64
}

// KillEvent reports a kill-switch trip.
type KillEvent struct {
	Reason string
}

// Engine orchestrates the control loop for one actively-quoted symbol.
type Engine struct {
	cfgMu sync.RWMutex
	cfg   *config.Config

	client *exchange.Client
	feed   *feed.Feed
	book   *market.Book
	tracker *uptime.Tracker
	logger  *slog.Logger

	stateMu           sync.RWMutex
	status            Status
	activeOrders      map[types.Side]*types.Order
	position          types.Position
	lastQuote         *quote.Quote
	consecutiveFails  int
	tickCount         int

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires an Engine from its explicit collaborators — no package-level
// singletons are referenced anywhere in the control loop.
func New(cfg *config.Config, client *exchange.Client, f *feed.Feed, book *market.Book, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:          cfg,
		client:       client,
		feed:         f,
		book:         book,
		tracker:      uptime.New(30 * time.Minute),
		logger:       logger.With("component", "engine"),
		status:       StatusStarting,
		activeOrders: make(map[types.Side]*types.Order),
		events:       make(chan Event, 100),
		ctx:          context.Background(),
	}
}

// Events returns the engine's event stream, consumed by the status surface.
func (e *Engine) Events() <-chan Event { return e.events }

// Status returns the current lifecycle state.
func (e *Engine) Status() Status {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.status
}

// Start transitions to running and launches the tick loop. It does not
// block.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.stateMu.Lock()
	e.status = StatusRunning
	e.stateMu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runLoop()
	}()

	e.logger.Info("engine started")
}

// Stop transitions to paused, cancels the tick loop, and cancels all
// resting orders as a safety net. Blocks until the loop goroutine exits.
func (e *Engine) Stop() {
	e.stateMu.Lock()
	if e.status == StatusKilled {
		e.stateMu.Unlock()
		return
	}
	e.status = StatusPaused
	e.stateMu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.client.CancelAllOrders(ctx, e.activeSymbol()); err != nil {
		e.logger.Error("cancel all orders on stop failed", "error", err)
	}

	e.logger.Info("engine stopped")
}

// kill is the automatic kill-switch trip: it moves the engine to the
// error state and cancels everything, but stays resumable by an operator
// (see Kill for the terminal transition).
func (e *Engine) kill(reason string) {
	e.stateMu.Lock()
	e.status = StatusError
	e.stateMu.Unlock()

	e.logger.Error("kill switch triggered", "reason", reason)
	e.emit(Event{Type: "kill", Timestamp: time.Now(), Data: KillEvent{Reason: reason}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.client.CancelAllOrders(ctx, e.activeSymbol()); err != nil {
		e.logger.Error("cancel all orders on kill failed", "error", err)
	}
}

// Kill is the operator-initiated terminal transition out of error or
// paused. Unlike the automatic kill-switch trip, killed is not resumable;
// a new Engine must be constructed to trade again.
func (e *Engine) Kill(reason string) {
	e.stateMu.Lock()
	current := e.status
	if current != StatusError && current != StatusPaused {
		e.stateMu.Unlock()
		return
	}
	e.status = StatusKilled
	e.stateMu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	e.logger.Warn("engine killed", "reason", reason, "previous_status", current)
	e.emit(Event{Type: "kill", Timestamp: time.Now(), Data: KillEvent{Reason: reason}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.client.CancelAllOrders(ctx, e.activeSymbol()); err != nil {
		e.logger.Error("cancel all orders on kill failed", "error", err)
	}
}

func (e *Engine) activeSymbol() string {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg.Symbols.Active
}

func (e *Engine) strategyConfig() config.StrategyConfig {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg.Strategy
}

func (e *Engine) riskConfig() config.RiskConfig {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg.Risk
}

func (e *Engine) symbolSpec() types.SymbolSpec {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	spec, _ := e.cfg.Symbols.Lookup(e.cfg.Symbols.Active)
	return spec
}

func (e *Engine) validateSymbolSwitch(newSymbol string) (types.SymbolSpec, error) {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg.ValidateSymbolSwitch(newSymbol)
}

func (e *Engine) runLoop() {
	interval := e.strategyConfig().RefreshInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case snap := <-e.feed.Snapshots():
			e.book.ApplySnapshot(resolveLevels(snap.Bids), resolveLevels(snap.Asks))
		case delta := <-e.feed.Deltas():
			for _, c := range delta.ResolvedChanges() {
				side := types.BUY
				if c.Side == "ask" || c.Side == "sell" {
					side = types.SELL
				}
				e.book.ApplyDelta(side, c.Price, c.ResolvedSize())
			}
		case <-ticker.C:
			if next := e.strategyConfig().RefreshInterval; next > 0 && next != interval {
				interval = next
				ticker.Reset(interval)
			}
			if e.Status() != StatusRunning {
				continue
			}
			if err := e.tick(); err != nil {
				e.onTickError(err)
			} else {
				e.stateMu.Lock()
				e.consecutiveFails = 0
				e.stateMu.Unlock()
			}
		}
	}
}

func resolveLevels(raw []types.WSRawLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, len(raw))
	for i, lvl := range raw {
		out[i] = types.PriceLevel{Price: lvl[0], Size: lvl[1]}
	}
	return out
}

func (e *Engine) onTickError(err error) {
	e.stateMu.Lock()
	e.consecutiveFails++
	fails := e.consecutiveFails
	e.stateMu.Unlock()

	risk := e.riskConfig()
	e.logger.Error("tick failed", "error", err, "consecutive_failures", fails)

	if fails >= risk.MaxConsecutiveFailures {
		e.kill(fmt.Sprintf("%d consecutive tick failures", fails))
	}
}

// tick runs one iteration: read mid, quote, reconcile, sync position,
// account uptime.
func (e *Engine) tick() error {
	e.stateMu.Lock()
	e.tickCount++
	e.stateMu.Unlock()

	mid, ok := e.book.MidPrice()
	if !ok {
		e.tracker.Tick(false, 0)
		return nil
	}

	if e.book.IsStale(e.strategyConfig().StaleBookTimeout) {
		e.tracker.Tick(false, 0)
		return nil
	}

	strat := e.strategyConfig()
	spec := e.symbolSpec()
	pos := e.Position()

	q := quote.Generate(mid, quote.Params{
		SpreadBps:             float64(strat.SpreadBps),
		BidNotional:           strat.BidNotional,
		AskNotional:           strat.AskNotional,
		MaxSpreadDeviationBps: strat.MaxSpreadDeviationBps,
		InventorySkewEnabled:  strat.InventorySkewEnabled,
		SkewFactorBps:         strat.SkewFactorBps,
		Position:              pos.Size,
		MaxPosition:           e.riskConfig().MaxPosition,
		Spec:                  spec,
	})

	e.stateMu.Lock()
	e.lastQuote = &q
	e.stateMu.Unlock()

	if !q.WithinMaxDeviation(strat.MaxSpreadDeviationBps) {
		e.logger.Warn("quote exceeds max deviation", "bid_dev", q.BidDeviationBps, "ask_dev", q.AskDeviationBps)
		e.tracker.Tick(false, 0)
		return nil
	}

	ctx := e.ctx
	e.cancelStaleOrders(ctx, mid, strat)

	if err := e.reconcileSide(ctx, types.BUY, q.Bid, mid, strat, spec); err != nil {
		return fmt.Errorf("reconcile bid: %w", err)
	}
	if err := e.reconcileSide(ctx, types.SELL, q.Ask, mid, strat, spec); err != nil {
		return fmt.Errorf("reconcile ask: %w", err)
	}

	e.syncPosition(ctx)

	hasBothSides := e.hasOpenOrder(types.BUY) && e.hasOpenOrder(types.SELL)
	e.tracker.Tick(hasBothSides, float64(strat.SpreadBps))

	return nil
}

func (e *Engine) hasOpenOrder(side types.Side) bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	order, ok := e.activeOrders[side]
	return ok && order.Status == types.OrderOpen
}

func (e *Engine) cancelStaleOrders(ctx context.Context, mid float64, strat config.StrategyConfig) {
	maxAge := time.Duration(e.riskConfig().StaleOrderSeconds) * time.Second
	for _, side := range []types.Side{types.BUY, types.SELL} {
		e.stateMu.RLock()
		order, ok := e.activeOrders[side]
		e.stateMu.RUnlock()
		if !ok || order.Status != types.OrderOpen {
			continue
		}

		stale := maxAge > 0 && order.IsStale(maxAge)
		overDeviation := order.DeviationBps(mid) > strat.MaxSpreadDeviationBps
		if !stale && !overDeviation {
			continue
		}

		if err := e.cancelOrder(ctx, order); err != nil {
			e.logger.Error("cancel stale order failed", "order_id", order.ID, "error", err)
		}
	}
}

// reconcileSide diffs the desired quote against the currently resting
// order on one side, cancelling and replacing only when price drifts
// beyond the requote threshold or size drifts beyond tolerance.
func (e *Engine) reconcileSide(ctx context.Context, side types.Side, desired types.DesiredOrder, mid float64, strat config.StrategyConfig, spec types.SymbolSpec) error {
	e.stateMu.RLock()
	current, hasOrder := e.activeOrders[side]
	e.stateMu.RUnlock()

	if hasOrder && current.Status == types.OrderOpen {
		priceDriftBps := priceDeviationBps(current.Price, desired.Price)
		sizeDrift := sizeDeviationFraction(current.Size, desired.Size)

		withinTolerance := priceDriftBps <= strat.RequoteThresholdBps && sizeDrift <= 0.1
		if withinTolerance {
			return nil
		}

		if err := e.cancelOrder(ctx, current); err != nil {
			return err
		}
	}

	return e.placeOrder(ctx, side, desired, spec)
}

func priceDeviationBps(current, desired float64) float64 {
	if desired == 0 {
		return 0
	}
	dev := (current - desired) / desired * 10000
	if dev < 0 {
		dev = -dev
	}
	return dev
}

func sizeDeviationFraction(current, desired float64) float64 {
	if desired == 0 {
		return 0
	}
	dev := (current - desired) / desired
	if dev < 0 {
		dev = -dev
	}
	return dev
}

func (e *Engine) placeOrder(ctx context.Context, side types.Side, desired types.DesiredOrder, spec types.SymbolSpec) error {
	resp, err := e.client.PlaceOrder(ctx, e.activeSymbol(), desired, spec)
	if err != nil {
		e.logger.Warn("place order rejected", "side", side, "price", desired.Price, "error", err)
		e.stateMu.Lock()
		delete(e.activeOrders, side)
		e.stateMu.Unlock()
		return nil
	}

	order := &types.Order{
		ID:       resp.ResolvedOrderID(),
		Side:     side,
		Price:    desired.Price,
		Size:     desired.Size,
		Status:   types.OrderOpen,
		PlacedAt: time.Now(),
	}

	e.stateMu.Lock()
	e.activeOrders[side] = order
	e.stateMu.Unlock()

	e.emit(Event{Type: "order", Timestamp: time.Now(), Data: OrderEvent{
		OrderID: order.ID, Side: side, Status: types.OrderOpen, Price: order.Price, Size: order.Size,
	}})
	return nil
}

func (e *Engine) cancelOrder(ctx context.Context, order *types.Order) error {
	if err := e.client.CancelOrder(ctx, order.ID); err != nil {
		return err
	}

	e.stateMu.Lock()
	order.Status = types.OrderCancelled
	e.stateMu.Unlock()

	e.emit(Event{Type: "order", Timestamp: time.Now(), Data: OrderEvent{
		OrderID: order.ID, Side: order.Side, Status: types.OrderCancelled, Price: order.Price, Size: order.Size,
	}})
	return nil
}

func (e *Engine) syncPosition(ctx context.Context) {
	pos, err := e.client.GetPositions(ctx, e.activeSymbol())
	if err != nil {
		e.logger.Debug("position sync failed", "error", err)
		return
	}

	e.stateMu.Lock()
	prevSize := e.position.Size
	e.position = *pos
	e.stateMu.Unlock()

	e.reactToUnexpectedFill(ctx, prevSize, pos.Size)
}

// reactToUnexpectedFill implements the accidental-fill flattener: if
// position moved on a side with no resting order (a post-only reject
// race, or a fill crossing further than expected), it immediately submits
// an opposite-side order at mid for the full position size rather than
// waiting for the next quote cycle. The order goes through PlaceOrder, so
// it is a post-only GTC limit order: it is not flagged reduce-only, is not
// a market order, and is not tracked in activeOrders.
func (e *Engine) reactToUnexpectedFill(ctx context.Context, prevSize, newSize float64) {
	delta := newSize - prevSize
	if delta == 0 {
		return
	}

	filledSide := types.SELL // position decreased means a sell fill
	if delta > 0 {
		filledSide = types.BUY
	}

	if e.hasOpenOrder(filledSide) {
		return // expected fill path, nothing to flatten
	}

	flattenSide := types.SELL
	if newSize < 0 {
		flattenSide = types.BUY
	}

	spec := e.symbolSpec()
	mid, ok := e.book.MidPrice()
	if !ok {
		return
	}

	size := newSize
	if size < 0 {
		size = -size
	}
	if size == 0 {
		return
	}

	e.logger.Warn("accidental fill detected, flattening", "delta", delta, "flatten_side", flattenSide, "size", size)

	req := types.DesiredOrder{Side: flattenSide, Price: mid, Size: size}
	if _, err := e.client.PlaceOrder(ctx, e.activeSymbol(), req, spec); err != nil {
		e.logger.Error("flatten order failed", "error", err)
	}
}

// Position returns the last-synced position snapshot.
func (e *Engine) Position() types.Position {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.position
}

// FullStatus aggregates the engine's book/quote/position/uptime snapshot
// for the status surface.
type FullStatus struct {
	Status          Status
	Symbol          string
	MidPrice        float64
	BestBid         float64
	BestAsk         float64
	SpreadBps       float64
	ActiveOrders    []types.Order
	Position        types.Position
	LastQuote       *quote.Quote
	TickCount       int
	ConsecutiveFails int
	Uptime          uptime.Stats
}

// GetFullStatus aggregates a full snapshot, matching the scope the A2
// status surface exposes over HTTP.
func (e *Engine) GetFullStatus() FullStatus {
	mid, _ := e.book.MidPrice()
	bid, ask, _ := e.book.BestBidAsk()
	spreadBps, _ := e.book.SpreadBps()

	e.stateMu.RLock()
	orders := make([]types.Order, 0, len(e.activeOrders))
	for _, o := range e.activeOrders {
		orders = append(orders, *o)
	}
	status := e.status
	lastQuote := e.lastQuote
	position := e.position
	tickCount := e.tickCount
	fails := e.consecutiveFails
	e.stateMu.RUnlock()

	return FullStatus{
		Status:           status,
		Symbol:           e.activeSymbol(),
		MidPrice:         mid,
		BestBid:          bid,
		BestAsk:          ask,
		SpreadBps:        spreadBps,
		ActiveOrders:     orders,
		Position:         position,
		LastQuote:        lastQuote,
		TickCount:        tickCount,
		ConsecutiveFails: fails,
		Uptime:           e.tracker.GetStats(),
	}
}

// ApplyRuntimeUpdate applies a validated, non-symbol-switching config
// update. Symbol switches go through SwitchSymbol instead, which
// performs the stop/reset/resubscribe/restart barrier.
func (e *Engine) ApplyRuntimeUpdate(u config.RuntimeUpdate) error {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	if u.ChangesSymbol(e.cfg.Symbols.Active) {
		return fmt.Errorf("symbol changes must go through SwitchSymbol")
	}
	return e.cfg.Apply(u)
}

// SwitchSymbol performs the runtime symbol-switch barrier: stop the
// engine, reset uptime accounting, resubscribe the depth feed to the new
// symbol, settle briefly, then restart if the engine was running.
func (e *Engine) SwitchSymbol(newSymbol string) error {
	if _, err := e.validateSymbolSwitch(newSymbol); err != nil {
		return err
	}

	wasRunning := e.Status() == StatusRunning
	e.Stop()

	e.tracker.Reset()

	if err := e.feed.Resubscribe(newSymbol); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}

	e.cfgMu.Lock()
	e.cfg.Symbols.Active = newSymbol
	e.cfgMu.Unlock()

	e.stateMu.Lock()
	e.activeOrders = make(map[types.Side]*types.Order)
	e.lastQuote = nil
	e.consecutiveFails = 0
	e.stateMu.Unlock()

	time.Sleep(time.Second)

	if wasRunning {
		e.Start(context.Background())
	}
	return nil
}

func (e *Engine) emit(evt Event) {
	select {
	case e.events <- evt:
	default:
		e.logger.Warn("event channel full, dropping event", "type", evt.Type)
	}
}
