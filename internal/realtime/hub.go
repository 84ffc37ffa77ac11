package realtime

import (
	"log"
	"os"
	"sync"
)

// Subscriber is one connected session in a room. Frames queued for it are
// read from C; a subscriber that stops draining gets its messages dropped,
// never blocks the room.
type Subscriber struct {
	ownerID string
	send    chan []byte
}

// C returns the subscriber's outbound frame queue.
func (s *Subscriber) C() <-chan []byte {
	return s.send
}

// Hub fans frames out between sessions of the same owner. It is transport
// agnostic: the HTTP layer pumps frames between WebSocket connections and
// their Subscriber handles.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscriber]bool
	logger *log.Logger
}

// NewHub creates an empty hub. If logger is nil a stderr logger is used.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(os.Stderr, "[realtime] ", log.LstdFlags)
	}
	return &Hub{
		rooms:  make(map[string]map[*Subscriber]bool),
		logger: logger,
	}
}

// Join adds a session to its owner's room and returns its handle.
func (h *Hub) Join(ownerID string) *Subscriber {
	sub := &Subscriber{
		ownerID: ownerID,
		send:    make(chan []byte, 16),
	}

	h.mu.Lock()
	room := h.rooms[ownerID]
	if room == nil {
		room = make(map[*Subscriber]bool)
		h.rooms[ownerID] = room
	}
	room[sub] = true
	size := len(room)
	h.mu.Unlock()

	h.logger.Printf("session joined room %s (sessions: %d)", ownerID, size)
	return sub
}

// Leave removes a session from its room.
func (h *Hub) Leave(sub *Subscriber) {
	h.mu.Lock()
	room := h.rooms[sub.ownerID]
	if room != nil && room[sub] {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, sub.ownerID)
		}
	}
	h.mu.Unlock()
}

// Broadcast relays a frame to every session in the owner's room except the
// sender. A full subscriber queue drops the frame: the channel is
// best-effort and the receiver's fallback poll covers the loss.
func (h *Hub) Broadcast(ownerID string, from *Subscriber, frame []byte) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.rooms[ownerID]))
	for sub := range h.rooms[ownerID] {
		if sub != from {
			subs = append(subs, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.send <- frame:
		default:
			h.logger.Printf("WARNING: dropping frame for slow session in room %s", ownerID)
		}
	}
}

// RoomSize returns the number of sessions currently in an owner's room.
func (h *Hub) RoomSize(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ownerID])
}
