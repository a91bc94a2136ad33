package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func testClient(h *Hub) *Client {
	return &Client{hub: h, send: make(chan []byte, 16)}
}

func TestPublish_DeliversToSubscribers(t *testing.T) {
	h := NewHub(zerolog.Nop())
	c := testClient(h)
	h.Subscribe("user:user-1", c)

	if err := h.Publish(context.Background(), "user:user-1", "notification", map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case body := <-c.send:
		var ev struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(body, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Event != "notification" {
			t.Errorf("expected a notification event, got %s", ev.Event)
		}
	default:
		t.Fatalf("expected the subscriber to receive the event")
	}
}

func TestPublish_ChannelIsolation(t *testing.T) {
	h := NewHub(zerolog.Nop())
	mine := testClient(h)
	other := testClient(h)
	h.Subscribe("conversation:conv-1", mine)
	h.Subscribe("conversation:conv-2", other)

	if err := h.Publish(context.Background(), "conversation:conv-1", "message", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(mine.send) != 1 {
		t.Errorf("expected the conv-1 subscriber to receive the event")
	}
	if len(other.send) != 0 {
		t.Errorf("expected the conv-2 subscriber to see nothing")
	}
}

func TestUnsubscribe_DetachesFromEveryChannel(t *testing.T) {
	h := NewHub(zerolog.Nop())
	c := testClient(h)
	h.Subscribe("user:user-1", c)
	h.Subscribe("conversation:conv-1", c)

	h.Unsubscribe(c)

	if err := h.Publish(context.Background(), "user:user-1", "notification", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := h.Publish(context.Background(), "conversation:conv-1", "message", nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(c.send) != 0 {
		t.Errorf("expected no delivery after unsubscribe")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.channels) != 0 {
		t.Errorf("expected empty channels to be pruned, got %d", len(h.channels))
	}
}

func TestPublish_RacesClientDisconnect(t *testing.T) {
	h := NewHub(zerolog.Nop())
	for i := 0; i < 200; i++ {
		// tiny buffer so the slow-client drop path races the disconnect too
		c := &Client{hub: h, send: make(chan []byte, 1)}
		h.Subscribe("user:race", c)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 20; j++ {
				if err := h.Publish(context.Background(), "user:race", "notification", j); err != nil {
					t.Errorf("publish: %v", err)
					return
				}
			}
		}()
		c.Close()
		<-done
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	h := NewHub(zerolog.Nop())
	if err := h.Publish(context.Background(), "user:nobody", "notification", nil); err != nil {
		t.Fatalf("expected publishing into the void to succeed, got %v", err)
	}
}
