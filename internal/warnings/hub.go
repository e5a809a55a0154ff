package warnings

import "sync"

// Hub tracks the live warning channel per user so request handlers (the
// acknowledge endpoint) can reach the channel owned by the streaming
// handler. A user has at most one active client context; a second stream
// for the same user replaces the registration.
type Hub struct {
	mu       sync.Mutex
	channels map[uint]*Channel
}

func NewHub() *Hub {
	return &Hub{channels: make(map[uint]*Channel)}
}

// Register installs the channel as the live one for its user.
func (h *Hub) Register(ch *Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.channels[ch.userID] = ch
}

// Unregister removes the channel if it is still the registered one.
func (h *Hub) Unregister(ch *Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[ch.userID] == ch {
		delete(h.channels, ch.userID)
	}
}

// Get returns the live channel for a user, or nil.
func (h *Hub) Get(userID uint) *Channel {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.channels[userID]
}
