package messaging

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ledgercell/ledgercell-go/internal/domain/entities/ledger"
	"github.com/ledgercell/ledgercell-go/internal/infrastructure/observability/logging"
)

// UpdateClient represents a single connected workbook host.
type UpdateClient struct {
	Conn        *websocket.Conn
	WorkspaceID string
	Send        chan []byte
}

// resolvedKey is the wire form of one settled balance key.
type resolvedKey struct {
	Account     string `json:"account"`
	Period      string `json:"period"`
	Fingerprint string `json:"fingerprint"`
}

// updateEvent is the envelope pushed to connected hosts.
type updateEvent struct {
	Event  string        `json:"event"`
	Reason string        `json:"reason,omitempty"`
	Keys   []resolvedKey `json:"keys,omitempty"`
	SentAt time.Time     `json:"sentAt"`
}

// UpdateBroadcaster fans resolution and invalidation events out to every
// host connected for a workspace. Slow clients never block the scheduler:
// a full send buffer drops the event for that client only.
type UpdateBroadcaster struct {
	workspaceClients map[string]map[*UpdateClient]bool
	register         chan *UpdateClient
	unregister       chan *UpdateClient
	logger           *logging.ChanneledLogger
	mu               sync.RWMutex
}

// NewUpdateBroadcaster creates a broadcaster; Run must be started as a
// goroutine before clients connect.
func NewUpdateBroadcaster(logger *logging.ChanneledLogger) *UpdateBroadcaster {
	return &UpdateBroadcaster{
		workspaceClients: make(map[string]map[*UpdateClient]bool),
		register:         make(chan *UpdateClient),
		unregister:       make(chan *UpdateClient),
		logger:           logger,
	}
}

// Run drives client registration for the broadcaster's lifetime.
func (b *UpdateBroadcaster) Run() {
	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			if _, ok := b.workspaceClients[client.WorkspaceID]; !ok {
				b.workspaceClients[client.WorkspaceID] = make(map[*UpdateClient]bool)
			}
			b.workspaceClients[client.WorkspaceID][client] = true
			b.mu.Unlock()
			if b.logger != nil {
				b.logger.Workspace().Debug("Update client registered",
					slog.String("workspaceId", client.WorkspaceID))
			}

		case client := <-b.unregister:
			b.mu.Lock()
			if clients, ok := b.workspaceClients[client.WorkspaceID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(b.workspaceClients, client.WorkspaceID)
					}
				}
			}
			b.mu.Unlock()
			if b.logger != nil {
				b.logger.Workspace().Debug("Update client unregistered",
					slog.String("workspaceId", client.WorkspaceID))
			}
		}
	}
}

// Register queues a client for registration.
func (b *UpdateBroadcaster) Register(client *UpdateClient) {
	b.register <- client
}

// Unregister queues a client for unregistration.
func (b *UpdateBroadcaster) Unregister(client *UpdateClient) {
	b.unregister <- client
}

// ConnectionCount reports how many hosts are connected for a workspace.
func (b *UpdateBroadcaster) ConnectionCount(workspaceID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.workspaceClients[workspaceID])
}

// NotifyResolved pushes a batch of settled keys to every host connected for
// the workspace.
func (b *UpdateBroadcaster) NotifyResolved(workspaceID string, keys []ledger.BalanceKey) {
	if len(keys) == 0 {
		return
	}
	wire := make([]resolvedKey, 0, len(keys))
	for _, k := range keys {
		wire = append(wire, resolvedKey{
			Account:     k.Account,
			Period:      k.Period.String(),
			Fingerprint: string(k.Fingerprint),
		})
	}
	b.send(workspaceID, updateEvent{Event: "balances_resolved", Keys: wire, SentAt: time.Now().UTC()})
}

// NotifyInvalidated tells hosts that cached values for the workspace are no
// longer trustworthy and formulas should re-request.
func (b *UpdateBroadcaster) NotifyInvalidated(workspaceID, reason string) {
	b.send(workspaceID, updateEvent{Event: "cache_invalidated", Reason: reason, SentAt: time.Now().UTC()})
}

func (b *UpdateBroadcaster) send(workspaceID string, ev updateEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.workspaceClients[workspaceID] {
		select {
		case client.Send <- payload:
		default:
			if b.logger != nil {
				b.logger.Workspace().Warn("Update channel full, event dropped",
					slog.String("workspaceId", workspaceID),
					slog.String("event", ev.Event))
			}
		}
	}
}

// WritePump drains a client's send channel onto its websocket connection.
// Intended to run as a goroutine owned by the connection handler.
func (b *UpdateBroadcaster) WritePump(client *UpdateClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-client.Send:
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump consumes (and discards) client frames so pings and close frames
// are processed, unregistering on disconnect.
func (b *UpdateBroadcaster) ReadPump(client *UpdateClient) {
	defer func() {
		b.Unregister(client)
		client.Conn.Close()
	}()
	client.Conn.SetReadLimit(1024)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
