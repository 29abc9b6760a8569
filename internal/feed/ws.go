// Package feed implements the WebSocket depth feed client: a single
// connection subscribed to one symbol's order book, emitting snapshot and
// delta messages with automatic reconnection. Timing constants (ping
// interval, pong wait, backoff schedule) match this exchange's heartbeat
// contract.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"standx-mm/pkg/types"
)

const (
	initialBackoff  = time.Second
	maxBackoff      = 60 * time.Second
	pingInterval    = 20 * time.Second
	pongWait        = 10 * time.Second
	writeTimeout    = 10 * time.Second
	snapshotBufSize = 16
	deltaBufSize    = 256
)

// Feed manages a single depth-feed WebSocket connection for one symbol.
type Feed struct {
	url    string
	symbol string

	connMu sync.Mutex
	conn   *websocket.Conn

	snapshotCh chan types.WSSnapshotMsg
	deltaCh    chan types.WSDeltaMsg

	logger *slog.Logger
}

// New creates a depth feed client for symbol against wsURL.
func New(wsURL, symbol string, logger *slog.Logger) *Feed {
	return &Feed{
		url:        wsURL,
		symbol:     symbol,
		snapshotCh: make(chan types.WSSnapshotMsg, snapshotBufSize),
		deltaCh:    make(chan types.WSDeltaMsg, deltaBufSize),
		logger:     logger.With("component", "feed", "symbol", symbol),
	}
}

// Snapshots returns a read-only channel of full book snapshots.
func (f *Feed) Snapshots() <-chan types.WSSnapshotMsg { return f.snapshotCh }

// Deltas returns a read-only channel of incremental book updates.
func (f *Feed) Deltas() <-chan types.WSDeltaMsg { return f.deltaCh }

// Run connects and maintains the connection with exponential backoff,
// resubscribing to the symbol on every reconnect. Blocks until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("depth feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Resubscribe leaves the current symbol's channel and joins newSymbol's,
// used for the runtime symbol-switch barrier instead of reconnecting.
func (f *Feed) Resubscribe(newSymbol string) error {
	if err := f.writeJSON(types.WSUnsubscribeMsg{Type: "unsubscribe", Channel: "orderbook", Symbol: f.symbol}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", f.symbol, err)
	}
	f.symbol = newSymbol
	if err := f.writeJSON(types.WSSubscribeMsg{Type: "subscribe", Channel: "orderbook", Symbol: newSymbol}); err != nil {
		return fmt.Errorf("subscribe %s: %w", newSymbol, err)
	}
	f.logger = f.logger.With("symbol", newSymbol)
	return nil
}

// Close closes the active connection, if any.
func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		return nil
	})

	if err := f.writeJSON(types.WSSubscribeMsg{Type: "subscribe", Channel: "orderbook", Symbol: f.symbol}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	f.logger.Info("depth feed connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f.dispatchMessage(msg)
	}
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (f *Feed) dispatchMessage(data []byte) {
	var env types.WSEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		f.logger.Debug("ignoring non-json feed message", "data", string(data))
		return
	}

	switch env.ResolvedType() {
	case "snapshot", "orderbook_snapshot":
		var msg types.WSSnapshotMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Error("unmarshal snapshot", "error", err)
			return
		}
		select {
		case f.snapshotCh <- msg:
		default:
			f.logger.Warn("snapshot channel full, dropping message")
		}

	case "delta", "update", "orderbook_update":
		var msg types.WSDeltaMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Error("unmarshal delta", "error", err)
			return
		}
		select {
		case f.deltaCh <- msg:
		default:
			f.logger.Warn("delta channel full, dropping message")
		}

	case "subscribed", "pong", "heartbeat":
		// acks and heartbeats, nothing to do

	default:
		f.logger.Debug("unknown feed message type", "type", env.ResolvedType())
	}
}

func (f *Feed) writeJSON(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("feed not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *Feed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("feed not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}
