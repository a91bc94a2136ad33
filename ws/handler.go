package ws

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"gigflow/auth"
	"gigflow/notify"
)

// NewUpgrader builds the websocket upgrader with an origin allowlist. Requests
// without an Origin header (non-browser clients) and same-host origins always
// pass; anything else must match the configured list.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			allowed[strings.ToLower(o)] = true
		}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if allowed[strings.ToLower(strings.TrimRight(origin, "/"))] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// TokenVerifier validates a bearer token and yields the authenticated user.
type TokenVerifier interface {
	VerifyToken(token string) (string, auth.Role, error)
}

// ParticipantChecker gates subscriptions to conversation channels.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// Handle upgrades the request and subscribes the client to its own
// notification channel, plus a conversation channel when requested and the
// caller is a participant.
func Handle(h *Hub, upgrader websocket.Upgrader, verifier TokenVerifier, conversations ParticipantChecker, w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, _, err := verifier.VerifyToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	convID := r.URL.Query().Get("conversation_id")
	if convID != "" {
		ok, err := conversations.IsParticipant(r.Context(), convID, userID)
		if err != nil || !ok {
			http.Error(w, "not in conversation", http.StatusForbidden)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := newClient(h, conn)
	h.Subscribe(notify.UserChannel(userID), c)
	if convID != "" {
		h.Subscribe("conversation:"+convID, c)
	}

	go c.writePump()
	go c.readPump()
}
