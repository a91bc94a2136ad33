package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Publisher delivers an event to whatever live subscribers a channel has.
// There is no offline queue; delivery is at most once.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// Notification is the advisory payload pushed to a user's channel. It is not
// persisted by the core; clients may mirror it locally.
type Notification struct {
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatcher publishes notifications to per-user channels. Failures are
// logged and swallowed: a notification must never fail the state transition
// that triggered it.
type Dispatcher struct {
	pub Publisher
	log zerolog.Logger
	now func() time.Time
}

func NewDispatcher(pub Publisher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		pub: pub,
		log: log.With().Str("component", "notify").Logger(),
		now: time.Now,
	}
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// UserChannel is the channel key notifications for a user are published on.
func UserChannel(userID string) string {
	return "user:" + userID
}

// Notify publishes a notification to the recipient's channel. Best effort by
// contract: the caller has already committed its primary state.
func (d *Dispatcher) Notify(ctx context.Context, userID, message, link string) {
	if d.pub == nil {
		return
	}

	n := Notification{
		Message:   message,
		Link:      link,
		CreatedAt: d.now().UTC(),
	}

	if err := d.pub.Publish(ctx, UserChannel(userID), "notification", n); err != nil {
		d.log.Warn().Err(err).Str("user_id", userID).Msg("notification publish failed")
	}
}
