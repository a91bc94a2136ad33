package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Hub tracks live websocket clients by channel key and fans events out to
// them. It satisfies the notification Publisher seam for in-process delivery.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]bool
	log      zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		channels: make(map[string]map[*Client]bool),
		log:      log.With().Str("component", "ws").Logger(),
	}
}

type event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Subscribe attaches the client to a channel key.
func (h *Hub) Subscribe(channel string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][c] = true
}

// Unsubscribe detaches the client from every channel it joined.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel, clients := range h.channels {
		if clients[c] {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.channels, channel)
			}
		}
	}
}

// Publish delivers an event to the channel's current subscribers. A client
// whose send buffer is full is dropped rather than blocking the publisher.
func (h *Hub) Publish(ctx context.Context, channel, eventName string, payload any) error {
	body, err := json.Marshal(event{Event: eventName, Payload: payload})
	if err != nil {
		return fmt.Errorf("ws: marshal event: %w", err)
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.channels[channel]))
	for c := range h.channels[channel] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.trySend(body) {
			h.log.Debug().Str("channel", channel).Msg("dropping slow client")
			go c.Close()
		}
	}
	return nil
}
