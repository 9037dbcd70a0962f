// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"lms-admin-service/internal/domain/installment"
	"lms-admin-service/internal/domain/liveclass"
	wstypes "lms-admin-service/internal/domain/websocket"
	"lms-admin-service/internal/pkg/jwt"
	"lms-admin-service/internal/pkg/session"

	"go.uber.org/zap"
)

// Hub fans dashboard events out to connected admin clients.
type Hub struct {
	// Registered clients by identity ID
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	stopOnce   sync.Once

	handlerRegistry *HandlerRegistry

	jwtVerifier *jwt.Verifier
	blacklist   session.RevocationChecker
	logger      *zap.Logger
}

type BroadcastMessage struct {
	// IdentityIDs limits delivery; nil means every subscribed client.
	IdentityIDs []int64
	Channel     wstypes.ChannelType
	Message     *wstypes.WSMessage
}

func NewHub(jwtVerifier *jwt.Verifier, blacklist session.RevocationChecker, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[int64]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		jwtVerifier:     jwtVerifier,
		blacklist:       blacklist,
		logger:          logger,
	}
}

// AuthenticateClient validates an admin access token for a new connection.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := h.jwtVerifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() {
		return nil, ErrForbidden
	}

	if h.blacklist != nil {
		blacklisted, err := h.blacklist.IsTokenBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if blacklisted {
			// Sockets opened before the revocation must not outlive it.
			h.DisconnectUser(claims.IdentityID, "token revoked")
			return nil, ErrTokenBlacklisted
		}
	}

	return &ClientAuth{
		IdentityID: claims.IdentityID,
		TokenID:    claims.ID,
		Token:      token,
		Roles:      claims.Roles,
		Device:     claims.Device,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage routes a client message to its registered handler.
// It reports false when no handler claims the event.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Register hands a connected client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.identityID] == nil {
		h.clients[client.identityID] = make(map[*Client]bool)
	}
	h.clients[client.identityID][client] = true
	total := h.totalClientsLocked()
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.Int64("identity_id", client.identityID),
		zap.String("device", client.device),
		zap.Int("total", total))

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"identity_id": client.identityID,
		"roles":       client.roles,
		"channels":    []wstypes.ChannelType{wstypes.ChannelLiveClasses, wstypes.ChannelInstallments},
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.identityID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.identityID)
			}

			h.logger.Info("websocket client disconnected",
				zap.Int64("identity_id", client.identityID),
				zap.Int("total", h.totalClientsLocked()))
		}
	}
}

// BroadcastMessage delivers msg synchronously.
func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.IdentityIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
		return
	}

	for _, identityID := range msg.IdentityIDs {
		for client := range h.clients[identityID] {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}
}

// enqueue never blocks the caller; pollers must not stall on slow dashboards.
func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event",
			zap.String("type", string(msg.Message.Type)))
	}
}

// BroadcastLiveClassStatus pushes a class's latest snapshot.
func (h *Hub) BroadcastLiveClassStatus(class liveclass.LiveClass, snap liveclass.Snapshot) {
	h.enqueue(&BroadcastMessage{
		Channel: wstypes.ChannelLiveClasses,
		Message: wstypes.NewMessage(wstypes.EventTypeLiveClassStatus, wstypes.LiveClassStatusData{
			ClassID:   class.ID,
			CourseIDs: class.CourseIDs,
			Snapshot:  snap,
		}),
	})
}

// BroadcastInstallmentUpdated tells dashboards a course's plans were saved.
func (h *Hub) BroadcastInstallmentUpdated(result *installment.SubmitResult) {
	h.enqueue(&BroadcastMessage{
		Channel: wstypes.ChannelInstallments,
		Message: wstypes.NewMessage(wstypes.EventTypeInstallmentUpdated, wstypes.InstallmentUpdatedData{
			CourseID:  result.CourseID,
			SessionID: result.SessionID,
			Saved:     result.Succeeded,
		}),
	})
}

func (h *Hub) BroadcastSystemAlert(alert *wstypes.SystemAlertData) {
	h.enqueue(&BroadcastMessage{
		Channel: wstypes.ChannelSystem,
		Message: wstypes.NewMessage(wstypes.EventTypeSystemAlert, alert),
	})
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClientsLocked()
}

// Stats summarizes connections for the admin stats endpoint.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]interface{}{
		"total_clients":    h.totalClientsLocked(),
		"identities":       len(h.clients),
		"queued_events":    len(h.broadcast),
		"handled_messages": h.handlerRegistry.Events(),
	}
}

// DisconnectUser closes every connection of an identity, e.g. after its token is revoked.
func (h *Hub) DisconnectUser(identityID int64, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[identityID]
	if !ok {
		return
	}

	msg := wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
		"reason": reason,
	})
	for client := range clients {
		client.SendMessage(msg)
		client.Close()
	}
	delete(h.clients, identityID)
	h.logger.Info("disconnected identity", zap.Int64("identity_id", identityID), zap.String("reason", reason))
}

func (h *Hub) totalClientsLocked() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}
