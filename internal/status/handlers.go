package status

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"standx-mm/internal/config"
)

// Handlers holds the dependencies shared by every route.
type Handlers struct {
	provider Provider
	cfg      *config.Config
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandlers wires a Handlers set for the given provider and config.
func NewHandlers(provider Provider, cfg *config.Config, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		cfg:      cfg,
		hub:      hub,
		logger:   logger.With("component", "status-handlers"),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

// HandleHealth answers a bare liveness check.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleStatus returns the current full status snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := BuildSnapshot(h.provider, h.cfg.Strategy, h.cfg.Risk, h.cfg.DryRun)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("encode status snapshot failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// HandleConfigUpdate applies a runtime config change. A symbol change goes
// through the engine's symbol-switch barrier; anything else is applied
// in-place.
func (h *Handlers) HandleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	var update config.RuntimeUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if update.IsEmpty() {
		http.Error(w, "request has no fields to update", http.StatusBadRequest)
		return
	}

	if update.Symbol != nil {
		if err := h.provider.SwitchSymbol(*update.Symbol); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		update.Symbol = nil
	}
	if !update.IsEmpty() {
		if err := h.provider.ApplyRuntimeUpdate(update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BuildSnapshot(h.provider, h.cfg.Strategy, h.cfg.Risk, h.cfg.DryRun))
}

// HandleWebSocket upgrades the connection and streams status events.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	snapshot := BuildSnapshot(h.provider, h.cfg.Strategy, h.cfg.Risk, h.cfg.DryRun)
	evt := Event{Type: "snapshot", Data: snapshot}

	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("marshal initial snapshot failed", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}
