package controllers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"chathelper/internal/models"
	"chathelper/internal/persist"
	"chathelper/internal/providers"
	"chathelper/internal/storage"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const maxMessageSize = 1 << 20 // 1 MB

// WSController serves the storage message protocol: revisioned get/set
// against the file store, a settings snapshot on connect, settings-changed
// broadcasts when a client writes the settings record, and an
// extension-reloaded broadcast on shutdown.
type WSController struct {
	logger  providers.Logger
	store   persist.FileStoreInterface
	metrics providers.MetricsProviderInterface

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) send(msg *storage.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func NewWSController(logger providers.Logger, store persist.FileStoreInterface, metrics providers.MetricsProviderInterface) *WSController {
	return &WSController{
		logger:  logger,
		store:   store,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: map[*wsClient]struct{}{},
	}
}

func (wc *WSController) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wc.logger.Warnf(providers.TypeApp, "WebSocket upgrade failed: %s", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &wsClient{conn: conn}
	wc.register(client)
	defer wc.unregister(client)

	settings := wc.store.CurrentSettings()
	if err := client.send(&storage.Message{
		Source:   storage.SourceContent,
		Type:     storage.TypeSettingsInit,
		Settings: &settings,
	}); err != nil {
		wc.logger.Warnf(providers.TypeApp, "Settings snapshot send failed: %s", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg storage.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			wc.logger.Warnf(providers.TypeApp, "Unreadable protocol message: %s", err)
			continue
		}
		wc.dispatch(r.Context(), client, &msg)
	}
}

func (wc *WSController) dispatch(ctx context.Context, client *wsClient, msg *storage.Message) {
	switch msg.Type {
	case storage.TypeStorageGet:
		wc.metrics.IncStorageOps("get")
		data, revision, err := wc.store.Get(ctx, msg.Key)
		resp := &storage.Message{
			Source:    storage.SourceContent,
			Type:      storage.TypeStorageGetResponse,
			RequestID: msg.RequestID,
			Revision:  revision,
			Success:   true,
		}
		if err != nil {
			resp.Success = false
			resp.Error = err.Error()
		} else {
			resp.Data = data
		}
		if err := client.send(resp); err != nil {
			wc.logger.Warnf(providers.TypeApp, "Response send failed: %s", err)
		}

	case storage.TypeStorageSet:
		wc.metrics.IncStorageOps("set")
		revision, err := wc.store.Set(ctx, msg.Key, msg.Value, msg.Revision)
		resp := &storage.Message{
			Source:    storage.SourceContent,
			Type:      storage.TypeStorageSetResponse,
			RequestID: msg.RequestID,
		}
		switch {
		case errors.Is(err, storage.ErrConflict):
			wc.metrics.IncStoreConflicts()
			resp.Error = "revision conflict"
		case err != nil:
			resp.Error = err.Error()
		default:
			resp.Success = true
			resp.Revision = revision
		}
		if err := client.send(resp); err != nil {
			wc.logger.Warnf(providers.TypeApp, "Response send failed: %s", err)
		}
		if resp.Success && msg.Key == models.SettingsKey {
			wc.broadcastSettings(client)
		}

	default:
		wc.logger.Debugf(providers.TypeApp, "Ignoring protocol message type %q", msg.Type)
	}
}

// broadcastSettings pushes the new settings to every client except the
// writer, which already knows them.
func (wc *WSController) broadcastSettings(from *wsClient) {
	settings := wc.store.CurrentSettings()
	msg := &storage.Message{
		Source:   storage.SourceContent,
		Type:     storage.TypeSettingsChanged,
		Settings: &settings,
	}
	for _, client := range wc.snapshot() {
		if client == from {
			continue
		}
		if err := client.send(msg); err != nil {
			wc.logger.Debugf(providers.TypeApp, "Settings broadcast to a client failed: %s", err)
		}
	}
}

// BroadcastReloaded tells every connected client the backend is going
// away, which trips their terminal invalidation path.
func (wc *WSController) BroadcastReloaded() {
	msg := &storage.Message{Type: storage.TypeExtensionReloaded}
	for _, client := range wc.snapshot() {
		if err := client.send(msg); err != nil {
			wc.logger.Debugf(providers.TypeApp, "Reload broadcast to a client failed: %s", err)
		}
	}
}

func (wc *WSController) ClientCount() int {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return len(wc.clients)
}

func (wc *WSController) snapshot() []*wsClient {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	out := make([]*wsClient, 0, len(wc.clients))
	for client := range wc.clients {
		out = append(out, client)
	}
	return out
}

func (wc *WSController) register(client *wsClient) {
	wc.mu.Lock()
	wc.clients[client] = struct{}{}
	count := len(wc.clients)
	wc.mu.Unlock()
	wc.metrics.SetConnectedClients(count)
}

func (wc *WSController) unregister(client *wsClient) {
	client.conn.Close()
	wc.mu.Lock()
	delete(wc.clients, client)
	count := len(wc.clients)
	wc.mu.Unlock()
	wc.metrics.SetConnectedClients(count)
}
