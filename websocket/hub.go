package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"aegis/models"
)

// Hub fans the live activity state out to connected lock-screen surfaces.
// It retains the latest state per user so a surface that connects after an
// update still renders the current session immediately.
type Hub struct {
	// Registered clients per user
	clients     map[*Client]bool
	userClients map[string][]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Activity state updates to fan out
	publish chan activityUpdate

	// Last published state per user, replayed on connect
	lastState map[string]models.LiveActivityState

	mutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc

	cleanupTicker *time.Ticker
}

type activityUpdate struct {
	UserID string
	State  models.LiveActivityState
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	hub := &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string][]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		publish:     make(chan activityUpdate, 64),
		lastState:   make(map[string]models.LiveActivityState),
		ctx:         ctx,
		cancel:      cancel,
	}

	hub.cleanupTicker = time.NewTicker(5 * time.Minute)

	return hub
}

func (h *Hub) Run() {
	logrus.Info("Activity Hub starting...")

	go h.runCleanup()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case update := <-h.publish:
			h.fanOut(update)

		case <-h.ctx.Done():
			logrus.Info("Activity Hub shutting down...")
			return
		}
	}
}

// PublishActivity queues the latest state for a user's surfaces. Non-blocking:
// if the hub is saturated the update is dropped, a fresher one follows.
func (h *Hub) PublishActivity(userID string, state models.LiveActivityState) {
	select {
	case h.publish <- activityUpdate{UserID: userID, State: state}:
	default:
		logrus.Warn("Publish channel full, dropping activity update")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	h.userClients[client.userID] = append(h.userClients[client.userID], client)
	state, hasState := h.lastState[client.userID]
	total := len(h.clients)
	h.mutex.Unlock()

	if hasState {
		client.SendActivity(state)
	}

	logrus.Infof("Surface connected: %s (Total: %d)", client.userID, total)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	remaining := h.userClients[client.userID][:0]
	for _, c := range h.userClients[client.userID] {
		if c != client {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		delete(h.userClients, client.userID)
	} else {
		h.userClients[client.userID] = remaining
	}

	logrus.Infof("Surface disconnected: %s (Total: %d)", client.userID, len(h.clients))
}

func (h *Hub) fanOut(update activityUpdate) {
	h.mutex.Lock()
	h.lastState[update.UserID] = update.State
	targets := append([]*Client(nil), h.userClients[update.UserID]...)
	h.mutex.Unlock()

	for _, client := range targets {
		client.SendActivity(update.State)
	}
}

// IsUserConnected reports whether any surface for the user is live.
func (h *Hub) IsUserConnected(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.userClients[userID]) > 0
}

// ConnectedSurfaces returns the live surface count across all users.
func (h *Hub) ConnectedSurfaces() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.clients)
}

func (h *Hub) runCleanup() {
	for {
		select {
		case <-h.cleanupTicker.C:
			h.performCleanup()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) performCleanup() {
	h.mutex.RLock()
	var stale []*Client
	for client := range h.clients {
		if !client.isActive || time.Since(client.lastActivity) > 5*time.Minute {
			stale = append(stale, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range stale {
		logrus.Warnf("Removing inactive surface: %s", client.userID)
		go client.cleanup()
	}
}

func (h *Hub) Shutdown() {
	logrus.Info("Shutting down Activity Hub...")

	h.cleanupTicker.Stop()
	h.cancel()

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.cleanup()
	}

	logrus.Info("Activity Hub shutdown complete")
}
