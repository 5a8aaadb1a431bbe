// Package feed pushes persisted chat turns to websocket subscribers of a character.
package feed

import (
	"context"
	"encoding/json"
	"sync"

	"character-chat/backend/internal/models"
	"character-chat/backend/pkg/logger"
)

// Event is the envelope written to subscribers
type Event struct {
	Type    string          `json:"type"`
	Content *models.Message `json:"content"`
}

const EventMessage = "message"

type broadcast struct {
	characterID string
	payload     []byte
}

// Hub fans persisted messages out to the subscribers of their character
type Hub struct {
	subscribers map[string]map[*subscriber]bool
	register    chan *subscriber
	unregister  chan *subscriber
	broadcast   chan broadcast
	done        chan struct{}
	mu          sync.RWMutex
	log         *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]bool),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		broadcast:   make(chan broadcast, 256),
		done:        make(chan struct{}),
		log:         log,
	}
}

// Run serves registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, subs := range h.subscribers {
				for s := range subs {
					close(s.send)
				}
			}
			h.subscribers = make(map[string]map[*subscriber]bool)
			h.mu.Unlock()
			return

		case s := <-h.register:
			h.mu.Lock()
			if h.subscribers[s.characterID] == nil {
				h.subscribers[s.characterID] = make(map[*subscriber]bool)
			}
			h.subscribers[s.characterID][s] = true
			h.mu.Unlock()
			h.log.Debug("Feed subscriber registered", "character_id", s.characterID)

		case s := <-h.unregister:
			h.mu.Lock()
			h.remove(s)
			h.mu.Unlock()

		case b := <-h.broadcast:
			h.mu.Lock()
			for s := range h.subscribers[b.characterID] {
				select {
				case s.send <- b.payload:
				default:
					h.remove(s)
					h.log.Warn("Feed subscriber dropped, send buffer full", "character_id", b.characterID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(s *subscriber) {
	subs := h.subscribers[s.characterID]
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	close(s.send)
	if len(subs) == 0 {
		delete(h.subscribers, s.characterID)
	}
}

// Publish queues a persisted message for its character's subscribers.
// It never blocks; when the queue is full the message is dropped.
func (h *Hub) Publish(msg models.Message) {
	payload, err := json.Marshal(Event{Type: EventMessage, Content: &msg})
	if err != nil {
		h.log.LogError(err, "Failed to encode feed event", "message_id", msg.ID)
		return
	}

	select {
	case h.broadcast <- broadcast{characterID: msg.CharacterID, payload: payload}:
	default:
		h.log.Warn("Feed queue full, dropping message", "message_id", msg.ID)
	}
}

// Subscribers returns the number of live subscribers for a character
func (h *Hub) Subscribers(characterID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[characterID])
}
