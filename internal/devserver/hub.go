package devserver

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Presence records which users hold a live session. *services.RedisService
// satisfies it.
type Presence interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// Pushed notification ids remembered for read_ack
const maxKnownIDs = 4096

type Hub struct {
	// Registered sessions
	sessions map[*Session]bool

	// Session lookup by user ID
	userSessions map[string]map[*Session]bool

	register   chan *Session
	unregister chan *Session

	// Notification ids pushed so far, oldest first in knownOrder
	known      map[string]struct{}
	knownOrder []string

	pushed   atomic.Int64
	presence Presence

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHub creates a hub. presence may be nil.
func NewHub(presence Presence, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		sessions:     make(map[*Session]bool),
		userSessions: make(map[string]map[*Session]bool),
		register:     make(chan *Session),
		unregister:   make(chan *Session),
		known:        make(map[string]struct{}),
		presence:     presence,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			h.registerSession(s)

		case s := <-h.unregister:
			h.unregisterSession(s)

		case <-h.ctx.Done():
			h.logger.Info("Dev server hub shutting down")
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// Register hands s to the hub loop. It reports false once the hub stopped.
func (h *Hub) Register(s *Session) bool {
	select {
	case h.register <- s:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerSession(s *Session) {
	h.mu.Lock()
	h.sessions[s] = true
	if h.userSessions[s.userID] == nil {
		h.userSessions[s.userID] = make(map[*Session]bool)
	}
	h.userSessions[s.userID][s] = true
	h.mu.Unlock()

	// Writes start only once pushes can find the session.
	go s.writePump()

	h.logger.Info("Session registered", "connectionID", s.id, "userID", s.userID)

	if h.presence != nil {
		if err := h.presence.SetUserOnline(h.ctx, s.userID); err != nil {
			h.logger.Error("Failed to set user online", "userID", s.userID, "error", err)
		}
	}
}

func (h *Hub) unregisterSession(s *Session) {
	h.mu.Lock()
	if !h.sessions[s] {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s)
	lastForUser := false
	if userSet, ok := h.userSessions[s.userID]; ok {
		delete(userSet, s)
		if len(userSet) == 0 {
			delete(h.userSessions, s.userID)
			lastForUser = true
		}
	}
	h.mu.Unlock()

	s.closeSend()
	h.logger.Info("Session unregistered", "connectionID", s.id, "userID", s.userID)

	if lastForUser && h.presence != nil {
		if err := h.presence.SetUserOffline(h.ctx, s.userID); err != nil {
			h.logger.Error("Failed to set user offline", "userID", s.userID, "error", err)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		s.closeSend()
	}
	h.sessions = make(map[*Session]bool)
	h.userSessions = make(map[string]map[*Session]bool)
}

// Push sends frame to every session of userID, or to every session when
// userID is empty, and remembers notificationID for read_ack. It returns the
// number of sessions the frame was queued for.
func (h *Hub) Push(userID, notificationID string, frame []byte) int {
	h.remember(notificationID)
	h.pushed.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.sessions
	if userID != "" {
		targets = h.userSessions[userID]
	}

	delivered := 0
	for s := range targets {
		if s.queue(frame) {
			delivered++
		} else {
			h.logger.Warn("Session send buffer full, dropping notification",
				"connectionID", s.id, "notificationID", notificationID)
		}
	}
	return delivered
}

func (h *Hub) remember(id string) {
	if id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.known[id]; ok {
		return
	}
	if len(h.knownOrder) >= maxKnownIDs {
		delete(h.known, h.knownOrder[0])
		h.knownOrder = h.knownOrder[1:]
	}
	h.known[id] = struct{}{}
	h.knownOrder = append(h.knownOrder, id)
}

// Known reports whether id was pushed by this hub
func (h *Hub) Known(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.known[id]
	return ok
}

// Stats is the dev server's counters
type Stats struct {
	Sessions int   `json:"sessions"`
	Users    int   `json:"users"`
	Pushed   int64 `json:"pushed"`
	KnownIDs int   `json:"knownIds"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Sessions: len(h.sessions),
		Users:    len(h.userSessions),
		Pushed:   h.pushed.Load(),
		KnownIDs: len(h.known),
	}
}
