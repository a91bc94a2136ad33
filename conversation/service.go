package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// ErrAccessDenied signals the sender is not a participant of the
	// application behind the conversation.
	ErrAccessDenied = errors.New("conversation: access denied")
)

// ParticipantSource resolves the two parties of an application. Implemented
// by the application repository; declared here so this package stays free of
// that dependency.
type ParticipantSource interface {
	Participants(ctx context.Context, applicationID string) (applicantID string, clientID string, err error)
}

// Publisher delivers live events to subscribers of a channel. Delivery is
// best effort.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// Service coordinates the per-application chat side channel.
type Service struct {
	repo         Repository
	participants ParticipantSource
	publisher    Publisher
	log          zerolog.Logger
}

func NewService(repo Repository, participants ParticipantSource, publisher Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		participants: participants,
		publisher:    publisher,
		log:          log.With().Str("component", "conversation").Logger(),
	}
}

// GetOrCreate returns the conversation for the application, creating it on
// first contact. Two concurrent first-contact events race on the unique
// application_id constraint; the loser re-selects the winner's row.
func (s *Service) GetOrCreate(ctx context.Context, applicationID string) (Conversation, error) {
	if applicationID == "" {
		return Conversation{}, fmt.Errorf("conversation: missing application id")
	}

	conv, err := s.repo.Create(ctx, applicationID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrAlreadyExists) {
		return Conversation{}, err
	}
	return s.repo.GetByApplication(ctx, applicationID)
}

// Find returns the conversation for the application without creating one.
func (s *Service) Find(ctx context.Context, applicationID string) (Conversation, error) {
	return s.repo.GetByApplication(ctx, applicationID)
}

// Append adds a message from a human participant. The sender must be a party
// of the underlying application and the conversation must be unlocked.
func (s *Service) Append(ctx context.Context, conversationID, senderID, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, fmt.Errorf("conversation: empty message content")
	}

	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return Message{}, err
	}
	if conv.IsLocked {
		return Message{}, ErrLocked
	}

	applicantID, clientID, err := s.participants.Participants(ctx, conv.ApplicationID)
	if err != nil {
		return Message{}, err
	}
	if senderID != applicantID && senderID != clientID {
		return Message{}, ErrAccessDenied
	}

	msg, err := s.repo.InsertMessage(ctx, Message{
		ConversationID: conversationID,
		SenderID:       &senderID,
		Content:        content,
	})
	if err != nil {
		return Message{}, err
	}

	s.broadcast(ctx, msg)
	return msg, nil
}

// AppendSystem adds a platform-authored message narrating a lifecycle event.
// It bypasses the participant check and carries no sender.
func (s *Service) AppendSystem(ctx context.Context, conversationID, content string) (Message, error) {
	msg, err := s.repo.InsertMessage(ctx, Message{
		ConversationID: conversationID,
		Content:        content,
		IsSystem:       true,
	})
	if err != nil {
		return Message{}, err
	}

	s.broadcast(ctx, msg)
	return msg, nil
}

// Lock irreversibly closes the conversation to further writes. Idempotent.
func (s *Service) Lock(ctx context.Context, conversationID string) error {
	return s.repo.Lock(ctx, conversationID)
}

// Messages lists the conversation history, oldest first. The caller must be
// a participant.
func (s *Service) Messages(ctx context.Context, conversationID, callerID string) ([]Message, error) {
	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	applicantID, clientID, err := s.participants.Participants(ctx, conv.ApplicationID)
	if err != nil {
		return nil, err
	}
	if callerID != applicantID && callerID != clientID {
		return nil, ErrAccessDenied
	}

	return s.repo.Messages(ctx, conversationID)
}

// IsParticipant reports whether userID is a party of the application behind
// the conversation. Used by the realtime layer to gate channel subscriptions.
func (s *Service) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return false, err
	}
	applicantID, clientID, err := s.participants.Participants(ctx, conv.ApplicationID)
	if err != nil {
		return false, err
	}
	return userID == applicantID || userID == clientID, nil
}

func (s *Service) broadcast(ctx context.Context, msg Message) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, "conversation:"+msg.ConversationID, "message", msg); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", msg.ConversationID).Msg("broadcast failed")
	}
}
