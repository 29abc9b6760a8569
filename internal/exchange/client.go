// Package exchange implements the StandX REST client: order placement,
// cancellation, position and order-book reads. Every mutating request is
// signed via the configured Signer and rate-limited per category; the
// client retries 5xx/network failures and treats a 404 on cancel as
// "already gone" rather than an error.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"standx-mm/internal/signer"
	"standx-mm/pkg/types"
)

// Client is the StandX REST API client.
type Client struct {
	http   *resty.Client
	signer *signer.Signer
	rl     *RateLimiter
	dryRun bool
	logger *slog.Logger
}

// New creates a REST client with retry and rate limiting configured.
func New(baseURL string, s *signer.Signer, dryRun bool, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		signer: s,
		rl:     NewRateLimiter(),
		dryRun: dryRun,
		logger: logger.With("component", "exchange"),
	}
}

// GetOrderBookSnapshot fetches a REST snapshot of the book from
// GET /orderbook. The engine does not call it; its book mirror is filled
// from the depth feed only.
func (c *Client) GetOrderBookSnapshot(ctx context.Context, symbol string) (*types.BookSnapshotResponse, error) {
	var result types.BookSnapshotResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get("/orderbook")
	if err != nil {
		return nil, fmt.Errorf("get orderbook: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get orderbook: status %d: %s", resp.StatusCode(), resp.String())
	}
	return &result, nil
}

// PlaceOrder places a single post-only GTC order. A 4xx reject is
// returned as an error; the caller treats the order as never having
// rested and requotes on the next tick rather than retrying immediately.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, desired types.DesiredOrder, spec types.SymbolSpec) (*types.OrderResponse, error) {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would place order", "side", desired.Side, "price", desired.Price, "size", desired.Size)
		return &types.OrderResponse{OrderID: fmt.Sprintf("dry-run-%s-%d", desired.Side, time.Now().UnixNano()), Status: "open"}, nil
	}
	if err := c.rl.waitOrder(ctx); err != nil {
		return nil, err
	}

	req := types.OrderRequest{
		Symbol:      symbol,
		Side:        desired.Side,
		Type:        "limit",
		Price:       decimal.NewFromFloat(desired.Price).StringFixed(int32(spec.PriceDecimals())),
		Size:        decimal.NewFromFloat(desired.Size).StringFixed(int32(spec.SizeDecimals())),
		TimeInForce: string(types.OrderTypeGTC),
		PostOnly:    true,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	headers := c.signer.FullHeaders(string(body))

	var result types.OrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(json.RawMessage(body)).
		SetResult(&result).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return nil, fmt.Errorf("place order rejected: status %d: %s", resp.StatusCode(), resp.String())
	}

	return &result, nil
}

// CancelOrder cancels a single resting order by id. A 404 response means
// the order is already gone (filled or cancelled elsewhere) and is not
// treated as an error.
func (c *Client) CancelOrder(ctx context.Context, id string) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel order", "id", id)
		return nil
	}
	if err := c.rl.waitCancel(ctx); err != nil {
		return err
	}

	headers := c.signer.FullHeaders("")

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Delete("/orders/" + id)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("cancel order %s: status %d: %s", id, resp.StatusCode(), resp.String())
	}
	return nil
}

// CancelAllOrders is a best-effort safety net: a bulk cancel for the
// symbol, used by the engine on stop, on a kill-switch trip, and on Kill.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	if c.dryRun {
		c.logger.Info("DRY-RUN: would cancel all orders", "symbol", symbol)
		return nil
	}
	if err := c.rl.waitCancel(ctx); err != nil {
		return err
	}

	headers := c.signer.FullHeaders("")

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("symbol", symbol).
		Delete("/orders")
	if err != nil {
		return fmt.Errorf("cancel all orders: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("cancel all orders: status %d: %s", resp.StatusCode(), resp.String())
	}
	c.logger.Warn("all orders cancelled", "symbol", symbol)
	return nil
}

// GetPositions fetches the current position for symbol. Tolerant of the
// exchange returning either a single object or a one-element array.
func (c *Client) GetPositions(ctx context.Context, symbol string) (*types.Position, error) {
	headers := c.signer.FullHeaders("")

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("symbol", symbol).
		Get("/positions")
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("get positions: status %d: %s", resp.StatusCode(), resp.String())
	}

	pos, err := parsePositionResponse(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("parse positions: %w", err)
	}
	return pos, nil
}

func parsePositionResponse(body []byte) (*types.Position, error) {
	var single types.PositionResponse
	if err := json.Unmarshal(body, &single); err == nil && (single.Size != "" || single.Quantity != "") {
		return toPosition(single), nil
	}

	var list []types.PositionResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return &types.Position{UpdatedAt: time.Now()}, nil
	}
	return toPosition(list[0]), nil
}

func toPosition(r types.PositionResponse) *types.Position {
	size := parseFloatOr(r.Size, r.Quantity)
	avgEntry := parseFloatOr(r.AvgEntry, r.EntryPrice)
	return &types.Position{
		Size:          size,
		AvgEntry:      avgEntry,
		Notional:      size * avgEntry,
		UnrealizedPnL: parseFloatOr(r.UnrealizedPnL, ""),
		RealizedPnL:   parseFloatOr(r.RealizedPnL, ""),
		UpdatedAt:     time.Now(),
	}
}

func parseFloatOr(primary, fallback string) float64 {
	v := primary
	if v == "" {
		v = fallback
	}
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
