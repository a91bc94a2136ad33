package conversation

import "time"

// Conversation is the chat thread scoped 1:1 to an application.
type Conversation struct {
	ID            string
	ApplicationID string
	IsLocked      bool
	CreatedAt     time.Time
}

// Message is an append-only chat turn. SenderID is nil for system messages
// narrating lifecycle events.
type Message struct {
	ID             string
	ConversationID string
	SenderID       *string
	Content        string
	IsSystem       bool
	CreatedAt      time.Time
}
