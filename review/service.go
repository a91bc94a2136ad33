package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"gigflow/application"
)

var (
	// ErrAccessDenied signals the reviewer is not a participant.
	ErrAccessDenied = errors.New("review: access denied")
	// ErrClosureNotConfirmed signals the work is not completed yet.
	ErrClosureNotConfirmed = errors.New("review: closure not confirmed")
	// ErrInvalidRating signals the rating falls outside 1..5.
	ErrInvalidRating = errors.New("review: rating must be between 1 and 5")
	// ErrCommentRequired signals a freelancer review of the client was
	// submitted without a comment.
	ErrCommentRequired = errors.New("review: comment required")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier publishes an advisory notification to a user. Best effort.
type Notifier interface {
	Notify(ctx context.Context, userID, message, link string)
}

// Service gates review submission on the application lifecycle and advances
// it to REVIEWED once both directions exist.
type Service struct {
	pool     TxBeginner
	repo     Repository
	notifier Notifier
	log      zerolog.Logger
}

func NewService(pool TxBeginner, repo Repository, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		pool:     pool,
		repo:     repo,
		notifier: notifier,
		log:      log.With().Str("component", "review").Logger(),
	}
}

// Submit records the reviewer's rating of the other party. The freelancer
// reviews the client (comment required); the client reviews the freelancer
// (comment optional). Requires the work to be COMPLETED or REVIEWED.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return Review{}, ErrInvalidRating
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Review{}, fmt.Errorf("review: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := s.repo.GetApplicationForUpdate(ctx, tx, params.ApplicationID)
	if err != nil {
		return Review{}, err
	}

	var rev Review
	switch params.ReviewerID {
	case state.ApplicantID:
		// Freelancer reviewing the client; the comment is mandatory in this
		// direction only.
		if strings.TrimSpace(params.Comment) == "" {
			return Review{}, ErrCommentRequired
		}
		rev = Review{
			ApplicationID: state.ID,
			AuthorID:      state.ApplicantID,
			RecipientID:   state.ClientID,
			Direction:     DirectionClient,
		}
	case state.ClientID:
		rev = Review{
			ApplicationID: state.ID,
			AuthorID:      state.ClientID,
			RecipientID:   state.ApplicantID,
			Direction:     DirectionFreelancer,
		}
	default:
		return Review{}, ErrAccessDenied
	}

	if state.JobStatus != application.JobStatusCompleted && state.JobStatus != application.JobStatusReviewed {
		return Review{}, ErrClosureNotConfirmed
	}

	rev.Rating = params.Rating
	rev.Comment = strings.TrimSpace(params.Comment)

	inserted, err := s.repo.Insert(ctx, tx, rev)
	if err != nil {
		return Review{}, err
	}

	both, err := s.repo.BothExist(ctx, tx, state.ID)
	if err != nil {
		return Review{}, err
	}
	if both {
		if err := s.repo.MarkReviewed(ctx, tx, state.ID); err != nil {
			return Review{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Review{}, fmt.Errorf("review: commit: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, inserted.RecipientID, "You received a new review.", "/reviews")
	}

	return inserted, nil
}

// ListForUser returns the reviews a user has received.
func (s *Service) ListForUser(ctx context.Context, recipientID string) ([]Review, error) {
	return s.repo.ListForUser(ctx, recipientID)
}
