package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"gigflow/conversation"
	"gigflow/job"
)

var (
	// ErrAccessDenied signals the caller is not a permitted participant or
	// owner for the attempted transition.
	ErrAccessDenied = errors.New("application: access denied")
	// ErrInvalidStatus signals the requested review status is not a value
	// update_status accepts.
	ErrInvalidStatus = errors.New("application: invalid status")
	// ErrInvalidState signals the transition is not allowed from the current
	// state.
	ErrInvalidState = errors.New("application: invalid state for transition")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ConversationChannel is the slice of the conversation service the lifecycle
// needs. All calls run after the primary state has committed and failures are
// logged, never surfaced.
type ConversationChannel interface {
	GetOrCreate(ctx context.Context, applicationID string) (conversation.Conversation, error)
	Find(ctx context.Context, applicationID string) (conversation.Conversation, error)
	AppendSystem(ctx context.Context, conversationID, content string) (conversation.Message, error)
	Lock(ctx context.Context, conversationID string) error
}

// Notifier publishes an advisory notification to a user. Best effort; never
// returns an error.
type Notifier interface {
	Notify(ctx context.Context, userID, message, link string)
}

// JobSource exposes the job-store lookup used to authorize client actions.
type JobSource interface {
	GetWithAuthor(ctx context.Context, jobID string) (job.Summary, error)
}

// Directory resolves user ids to display names for system messages.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Service is the lifecycle controller: it owns every transition of an
// application's status and job status, and coordinates the conversation side
// channel and notification dispatch around them.
//
// Contract: the primary state write commits first; conversation and message
// side effects run after the commit and are swallowed on failure; the
// notification publish always comes last.
type Service struct {
	pool          TxBeginner
	repo          Repository
	conversations ConversationChannel
	jobs          JobSource
	directory     Directory
	notifier      Notifier
	log           zerolog.Logger
	idGenerator   func() string
	now           func() time.Time
}

func NewService(pool TxBeginner, repo Repository, conversations ConversationChannel, jobs JobSource, directory Directory, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		pool:          pool,
		repo:          repo,
		conversations: conversations,
		jobs:          jobs,
		directory:     directory,
		notifier:      notifier,
		log:           log.With().Str("component", "application").Logger(),
		idGenerator:   func() string { return uuid.NewString() },
		now:           time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Apply registers applicantID as a candidate for the job. A second apply to
// the same job fails with ErrDuplicateApplication.
func (s *Service) Apply(ctx context.Context, jobID, applicantID string) (Application, error) {
	if jobID == "" || applicantID == "" {
		return Application{}, fmt.Errorf("application: job id and applicant id required")
	}

	summary, err := s.jobs.GetWithAuthor(ctx, jobID)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	if summary.AuthorID == applicantID {
		return Application{}, ErrAccessDenied
	}

	created, err := s.repo.Create(ctx, Application{
		ID:          s.idGenerator(),
		JobID:       jobID,
		ApplicantID: applicantID,
		Status:      StatusPending,
		JobStatus:   JobStatusActive,
	})
	if err != nil {
		return Application{}, err
	}

	name := s.displayName(ctx, applicantID)
	s.notifier.Notify(ctx, summary.AuthorID,
		fmt.Sprintf("%s applied to %q.", name, summary.Title),
		"/jobs/"+jobID)

	return created, nil
}

// UpdateStatusParams carries the client's verdict on a candidacy.
type UpdateStatusParams struct {
	ApplicationID string
	NextStatus    Status
	ActorID       string
}

// UpdateStatus moves the review status out of PENDING. Only the job's author
// may call it.
func (s *Service) UpdateStatus(ctx context.Context, params UpdateStatusParams) (Details, error) {
	if !ValidStatus(params.NextStatus) || params.NextStatus == StatusPending {
		return Details{}, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Details{}, fmt.Errorf("application: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	det, err := s.repo.GetForUpdate(ctx, tx, params.ApplicationID)
	if err != nil {
		return Details{}, err
	}
	if det.JobAuthorID != params.ActorID {
		return Details{}, ErrAccessDenied
	}
	if !ValidStatusTransition(det.Status, params.NextStatus) {
		return Details{}, ErrInvalidState
	}

	if err := s.repo.UpdateStatus(ctx, tx, det.ID, params.NextStatus); err != nil {
		return Details{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Details{}, fmt.Errorf("application: commit status update: %w", err)
	}
	det.Status = params.NextStatus

	conv, convOK := s.ensureConversation(ctx, det.ID)

	switch params.NextStatus {
	case StatusShortlisted:
		if convOK {
			s.appendSystem(ctx, conv.ID, fmt.Sprintf("You have been shortlisted for %q.", det.JobTitle))
		}
		s.notifier.Notify(ctx, det.ApplicantID,
			fmt.Sprintf("You have been shortlisted for %q.", det.JobTitle),
			s.conversationLink(conv, convOK))
	case StatusRejected:
		if convOK {
			s.appendSystem(ctx, conv.ID, fmt.Sprintf("Your application for %q was not successful. This conversation is now closed.", det.JobTitle))
			s.lockConversation(ctx, conv.ID)
		}
		s.notifier.Notify(ctx, det.ApplicantID,
			fmt.Sprintf("Your application for %q was not successful.", det.JobTitle),
			s.conversationLink(conv, convOK))
	}

	return det, nil
}

// RequestClosure flags the work as awaiting the other party's confirmation.
// Either participant may request; a repeated request is an idempotent no-op
// observable only through the resent message and notification.
func (s *Service) RequestClosure(ctx context.Context, applicationID, requesterID string) (Details, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Details{}, fmt.Errorf("application: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	det, err := s.repo.GetForUpdate(ctx, tx, applicationID)
	if err != nil {
		return Details{}, err
	}
	if !det.IsParticipant(requesterID) {
		return Details{}, ErrAccessDenied
	}
	if !ValidJobStatusTransition(det.JobStatus, JobStatusPendingClose) {
		return Details{}, ErrInvalidState
	}

	if err := s.repo.UpdateJobStatus(ctx, tx, det.ID, JobStatusPendingClose); err != nil {
		return Details{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Details{}, fmt.Errorf("application: commit closure request: %w", err)
	}
	det.JobStatus = JobStatusPendingClose

	name := s.displayName(ctx, requesterID)
	conv, convOK := s.ensureConversation(ctx, det.ID)
	if convOK {
		s.appendSystem(ctx, conv.ID, fmt.Sprintf("%s requested to close %q.", name, det.JobTitle))
	}

	other := det.OtherParty(requesterID)
	s.notifier.Notify(ctx, other,
		fmt.Sprintf("%s requested closure of %q.", name, det.JobTitle),
		s.conversationLink(conv, convOK))

	return det, nil
}

// ConfirmClosure completes the work. Requires the application to be in
// PENDING_CLOSE; either participant may confirm, including the original
// requester.
func (s *Service) ConfirmClosure(ctx context.Context, applicationID, confirmerID string) (Details, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Details{}, fmt.Errorf("application: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	det, err := s.repo.GetForUpdate(ctx, tx, applicationID)
	if err != nil {
		return Details{}, err
	}
	if !det.IsParticipant(confirmerID) {
		return Details{}, ErrAccessDenied
	}
	if det.JobStatus != JobStatusPendingClose {
		return Details{}, ErrInvalidState
	}

	if err := s.repo.UpdateJobStatus(ctx, tx, det.ID, JobStatusCompleted); err != nil {
		return Details{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Details{}, fmt.Errorf("application: commit closure confirm: %w", err)
	}
	det.JobStatus = JobStatusCompleted

	conv, err := s.conversations.Find(ctx, det.ID)
	convOK := err == nil
	if err != nil && !errors.Is(err, conversation.ErrNotFound) {
		s.log.Warn().Err(err).Str("application_id", det.ID).Msg("find conversation failed")
	}
	if convOK {
		s.appendSystem(ctx, conv.ID, fmt.Sprintf("%q has been confirmed as completed. This conversation is now closed.", det.JobTitle))
		s.lockConversation(ctx, conv.ID)
	}

	other := det.OtherParty(confirmerID)
	s.notifier.Notify(ctx, other,
		fmt.Sprintf("%q has been marked as completed.", det.JobTitle),
		s.conversationLink(conv, convOK))

	return det, nil
}

// Delete removes the application regardless of its state. Only the owning
// applicant may delete; non-ownership is reported as not found so existence
// does not leak.
func (s *Service) Delete(ctx context.Context, applicationID, applicantID string) error {
	deleted, err := s.repo.Delete(ctx, applicationID, applicantID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Cancel is the stricter withdrawal variant: it requires the candidacy to
// still be PENDING and refuses when the conversation has been locked. The
// client is notified on success.
func (s *Service) Cancel(ctx context.Context, applicationID, applicantID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("application: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	det, err := s.repo.GetForUpdate(ctx, tx, applicationID)
	if err != nil {
		return err
	}
	if det.ApplicantID != applicantID {
		return ErrNotFound
	}
	if det.Status != StatusPending {
		return ErrInvalidState
	}

	if err := s.repo.CancelTx(ctx, tx, det.ID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("application: commit cancel: %w", err)
	}

	name := s.displayName(ctx, applicantID)
	s.notifier.Notify(ctx, det.JobAuthorID,
		fmt.Sprintf("%s withdrew their application for %q.", name, det.JobTitle),
		"/jobs/"+det.JobID)

	return nil
}

// Get returns the application when the caller is a participant; otherwise it
// reports not found.
func (s *Service) Get(ctx context.Context, applicationID, callerID string) (Details, error) {
	det, err := s.repo.Get(ctx, applicationID)
	if err != nil {
		return Details{}, err
	}
	if !det.IsParticipant(callerID) {
		return Details{}, ErrNotFound
	}
	return det, nil
}

// ListForJob returns the candidacies for a job. Only the job's author may
// list them.
func (s *Service) ListForJob(ctx context.Context, jobID, callerID string) ([]Details, error) {
	summary, err := s.jobs.GetWithAuthor(ctx, jobID)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if summary.AuthorID != callerID {
		return nil, ErrAccessDenied
	}
	return s.repo.ListForJob(ctx, jobID)
}

// ListForApplicant returns the caller's own candidacies.
func (s *Service) ListForApplicant(ctx context.Context, applicantID string) ([]Details, error) {
	return s.repo.ListForApplicant(ctx, applicantID)
}

func (s *Service) ensureConversation(ctx context.Context, applicationID string) (conversation.Conversation, bool) {
	conv, err := s.conversations.GetOrCreate(ctx, applicationID)
	if err != nil {
		s.log.Warn().Err(err).Str("application_id", applicationID).Msg("ensure conversation failed")
		return conversation.Conversation{}, false
	}
	return conv, true
}

func (s *Service) appendSystem(ctx context.Context, conversationID, content string) {
	if _, err := s.conversations.AppendSystem(ctx, conversationID, content); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("append system message failed")
	}
}

func (s *Service) lockConversation(ctx context.Context, conversationID string) {
	if err := s.conversations.Lock(ctx, conversationID); err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("lock conversation failed")
	}
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	name, err := s.directory.DisplayName(ctx, userID)
	if err != nil || name == "" {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("display name lookup failed")
		return "A participant"
	}
	return name
}

// conversationLink points the notification at the conversation when the side
// channel materialized, and at the applicant's job list otherwise.
func (s *Service) conversationLink(conv conversation.Conversation, ok bool) string {
	if ok {
		return "/conversations/" + conv.ID
	}
	return "/applications"
}
