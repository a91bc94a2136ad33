package review

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"gigflow/application"
)

func newTestService(repo *fakeRepo) (*Service, *fakePool, *fakeNotifier) {
	pool := &fakePool{}
	notifier := &fakeNotifier{}
	return NewService(pool, repo, notifier, zerolog.Nop()), pool, notifier
}

func completedState() ApplicationState {
	return ApplicationState{
		ID:          "app-1",
		ApplicantID: "freelancer-1",
		ClientID:    "client-1",
		JobStatus:   application.JobStatusCompleted,
	}
}

func TestSubmit_RatingBounds(t *testing.T) {
	repo := newFakeRepo(completedState())
	svc, pool, _ := newTestService(repo)

	for _, rating := range []int{0, -1, 6, 100} {
		_, err := svc.Submit(context.Background(), SubmitParams{
			ApplicationID: "app-1",
			ReviewerID:    "client-1",
			Rating:        rating,
		})
		if !errors.Is(err, ErrInvalidRating) {
			t.Errorf("Submit(rating=%d): expected ErrInvalidRating, got %v", rating, err)
		}
	}
	if len(pool.txs) != 0 {
		t.Errorf("expected the rating check to run before any transaction")
	}
}

func TestSubmit_StrangerDenied(t *testing.T) {
	repo := newFakeRepo(completedState())
	svc, _, _ := newTestService(repo)

	_, err := svc.Submit(context.Background(), SubmitParams{
		ApplicationID: "app-1",
		ReviewerID:    "stranger",
		Rating:        5,
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestSubmit_FreelancerCommentRequired(t *testing.T) {
	repo := newFakeRepo(completedState())
	svc, _, _ := newTestService(repo)

	_, err := svc.Submit(context.Background(), SubmitParams{
		ApplicationID: "app-1",
		ReviewerID:    "freelancer-1",
		Rating:        4,
		Comment:       "   ",
	})
	if !errors.Is(err, ErrCommentRequired) {
		t.Fatalf("expected ErrCommentRequired, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Errorf("expected the comment rule to fire before any write")
	}
}

func TestSubmit_ClientCommentOptional(t *testing.T) {
	repo := newFakeRepo(completedState())
	svc, _, _ := newTestService(repo)

	rev, err := svc.Submit(context.Background(), SubmitParams{
		ApplicationID: "app-1",
		ReviewerID:    "client-1",
		Rating:        5,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if rev.Direction != DirectionFreelancer {
		t.Errorf("expected a freelancer-directed review, got %s", rev.Direction)
	}
	if rev.RecipientID != "freelancer-1" {
		t.Errorf("expected the freelancer to receive the review, got %s", rev.RecipientID)
	}
}

func TestSubmit_RequiresConfirmedClosure(t *testing.T) {
	for _, status := range []application.JobStatus{
		application.JobStatusActive,
		application.JobStatusPendingClose,
	} {
		state := completedState()
		state.JobStatus = status
		repo := newFakeRepo(state)
		svc, pool, _ := newTestService(repo)

		_, err := svc.Submit(context.Background(), SubmitParams{
			ApplicationID: "app-1",
			ReviewerID:    "client-1",
			Rating:        5,
		})
		if !errors.Is(err, ErrClosureNotConfirmed) {
			t.Errorf("Submit(job_status=%s): expected ErrClosureNotConfirmed, got %v", status, err)
		}
		if tx := pool.last(); tx == nil || tx.committed {
			t.Errorf("Submit(job_status=%s): expected no commit", status)
		}
	}
}

func TestSubmit_SecondDirectionAdvancesToReviewed(t *testing.T) {
	repo := newFakeRepo(completedState())
	svc, _, notifier := newTestService(repo)

	if _, err := svc.Submit(context.Background(), SubmitParams{
		ApplicationID: "app-1",
		ReviewerID:    "client-1",
		Rating:        5,
	}); err != nil {
		t.Fatalf("client review: %v", err)
	}
	if repo.markedReviewed {
		t.Fatalf("expected one-sided reviews to leave the application COMPLETED")
	}

	if _, err := svc.Submit(context.Background(), SubmitParams{
		ApplicationID: "app-1",
		ReviewerID:    "freelancer-1",
		Rating:        4,
		Comment:       "Great client to work with.",
	}); err != nil {
		t.Fatalf("freelancer review: %v", err)
	}
	if !repo.markedReviewed {
		t.Errorf("expected both directions to advance the application to REVIEWED")
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("expected each recipient to be notified, got %d", len(notifier.sent))
	}
	if notifier.sent[0].userID != "freelancer-1" || notifier.sent[1].userID != "client-1" {
		t.Errorf("expected the review recipients to be notified in order")
	}
}

func TestSubmit_DuplicateDirectionRefused(t *testing.T) {
	repo := newFakeRepo(completedState())
	svc, pool, notifier := newTestService(repo)

	if _, err := svc.Submit(context.Background(), SubmitParams{
		ApplicationID: "app-1",
		ReviewerID:    "client-1",
		Rating:        5,
	}); err != nil {
		t.Fatalf("first review: %v", err)
	}

	_, err := svc.Submit(context.Background(), SubmitParams{
		ApplicationID: "app-1",
		ReviewerID:    "client-1",
		Rating:        3,
	})
	if !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
	if tx := pool.last(); tx == nil || tx.committed {
		t.Errorf("expected the duplicate to abort the transaction")
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected no notification for the refused duplicate")
	}
}

func TestSubmit_ReviewedStateStillAcceptsLateDirection(t *testing.T) {
	state := completedState()
	state.JobStatus = application.JobStatusReviewed
	repo := newFakeRepo(state)
	svc, _, _ := newTestService(repo)

	if _, err := svc.Submit(context.Background(), SubmitParams{
		ApplicationID: "app-1",
		ReviewerID:    "client-1",
		Rating:        5,
	}); err != nil {
		t.Fatalf("expected a REVIEWED application to still accept a review, got %v", err)
	}
}

type note struct {
	userID string
	link   string
}

type fakeNotifier struct {
	sent []note
}

func (f *fakeNotifier) Notify(_ context.Context, userID, _, link string) {
	f.sent = append(f.sent, note{userID: userID, link: link})
}

type fakeRepo struct {
	state          ApplicationState
	inserted       []Review
	byDirection    map[Direction]bool
	markedReviewed bool
}

func newFakeRepo(state ApplicationState) *fakeRepo {
	return &fakeRepo{state: state, byDirection: map[Direction]bool{}}
}

func (f *fakeRepo) GetApplicationForUpdate(_ context.Context, _ pgx.Tx, applicationID string) (ApplicationState, error) {
	if applicationID != f.state.ID {
		return ApplicationState{}, ErrNotFound
	}
	return f.state, nil
}

func (f *fakeRepo) Insert(_ context.Context, _ pgx.Tx, r Review) (Review, error) {
	if f.byDirection[r.Direction] {
		return Review{}, ErrAlreadyReviewed
	}
	f.byDirection[r.Direction] = true
	r.ID = "rev-1"
	f.inserted = append(f.inserted, r)
	return r, nil
}

func (f *fakeRepo) BothExist(_ context.Context, _ pgx.Tx, _ string) (bool, error) {
	return f.byDirection[DirectionClient] && f.byDirection[DirectionFreelancer], nil
}

func (f *fakeRepo) MarkReviewed(_ context.Context, _ pgx.Tx, _ string) error {
	f.markedReviewed = true
	f.state.JobStatus = application.JobStatusReviewed
	return nil
}

func (f *fakeRepo) ListForUser(_ context.Context, recipientID string) ([]Review, error) {
	var out []Review
	for _, r := range f.inserted {
		if r.RecipientID == recipientID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakePool struct {
	txs []*fakeTx
}

func (f *fakePool) Begin(context.Context) (pgx.Tx, error) {
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return tx, nil
}

func (f *fakePool) last() *fakeTx {
	if len(f.txs) == 0 {
		return nil
	}
	return f.txs[len(f.txs)-1]
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
