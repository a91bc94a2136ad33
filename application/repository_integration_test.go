package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gigflow/conversation"
)

// TestApplicationRepository_Integration connects to a real PostgreSQL via
// DATABASE_URL and verifies the candidacy constraints and the cancel path
// end to end.
func TestApplicationRepository_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	if !tableExists(ctx, t, pool, "applications") || !tableExists(ctx, t, pool, "conversations") {
		t.Skip("database schema missing; apply migrations/ first")
	}

	var clientID, freelancerID, jobID string
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1, 'Itest Client', 'x', 'client') RETURNING id`,
		fmt.Sprintf("itest-client+%d@example.com", time.Now().UnixNano())).Scan(&clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1, 'Itest Freelancer', 'x', 'freelancer') RETURNING id`,
		fmt.Sprintf("itest-freelancer+%d@example.com", time.Now().UnixNano())).Scan(&freelancerID); err != nil {
		t.Fatalf("seed freelancer: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO jobs (author_id, title, description, budget) VALUES ($1, $2, 'integration test job', 100) RETURNING id`,
		clientID, fmt.Sprintf("Itest Job %d", time.Now().UnixNano())).Scan(&jobID); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM jobs WHERE id = $1`, jobID)
		pool.Exec(ctx2, `DELETE FROM users WHERE id IN ($1, $2)`, clientID, freelancerID)
	})

	repo := NewRepository(pool)

	created, err := repo.Create(ctx, Application{
		JobID:       jobID,
		ApplicantID: freelancerID,
		Status:      StatusPending,
		JobStatus:   JobStatusActive,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != StatusPending || created.JobStatus != JobStatusActive {
		t.Fatalf("unexpected fresh state: %s/%s", created.Status, created.JobStatus)
	}

	// second apply to the same job must hit the unique candidacy constraint
	if _, err := repo.Create(ctx, Application{
		JobID:       jobID,
		ApplicantID: freelancerID,
		Status:      StatusPending,
		JobStatus:   JobStatusActive,
	}); !errors.Is(err, ErrDuplicateApplication) {
		t.Fatalf("expected ErrDuplicateApplication, got %v", err)
	}

	// missing job surfaces through the foreign key
	if _, err := repo.Create(ctx, Application{
		JobID:       "00000000-0000-0000-0000-000000000000",
		ApplicantID: freelancerID,
		Status:      StatusPending,
		JobStatus:   JobStatusActive,
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a missing job, got %v", err)
	}

	det, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if det.JobAuthorID != clientID {
		t.Fatalf("expected the job author to be joined in, got %s", det.JobAuthorID)
	}

	applicant, client, err := repo.Participants(ctx, created.ID)
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if applicant != freelancerID || client != clientID {
		t.Fatalf("unexpected participants: %s/%s", applicant, client)
	}

	// transition under a row lock
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	locked, err := repo.GetForUpdate(ctx, tx, created.ID)
	if err != nil {
		t.Fatalf("get for update: %v", err)
	}
	if err := repo.UpdateJobStatus(ctx, tx, locked.ID, JobStatusPendingClose); err != nil {
		t.Fatalf("update job status: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// a locked conversation blocks cancellation
	var convID string
	if err := pool.QueryRow(ctx, `INSERT INTO conversations (application_id, is_locked) VALUES ($1, TRUE) RETURNING id`, created.ID).Scan(&convID); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	tx2, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.CancelTx(ctx, tx2, created.ID); !errors.Is(err, conversation.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	_ = tx2.Rollback(ctx)

	// unlock and cancel for real; the conversation goes with it
	if _, err := pool.Exec(ctx, `UPDATE conversations SET is_locked = FALSE WHERE id = $1`, convID); err != nil {
		t.Fatalf("unlock conversation: %v", err)
	}
	tx3, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.CancelTx(ctx, tx3, created.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := tx3.Commit(ctx); err != nil {
		t.Fatalf("commit cancel: %v", err)
	}

	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected the application to be gone, got %v", err)
	}
	var convCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE id = $1`, convID).Scan(&convCount); err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if convCount != 0 {
		t.Fatalf("expected the conversation to be removed with the application")
	}

	// a reviewed application is still deletable; the review rows go with it
	reviewed, err := repo.Create(ctx, Application{
		JobID:       jobID,
		ApplicantID: freelancerID,
		Status:      StatusShortlisted,
		JobStatus:   JobStatusCompleted,
	})
	if err != nil {
		t.Fatalf("create reviewed application: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO client_reviews (application_id, rating, comment, author_id, recipient_id) VALUES ($1, 5, 'great client', $2, $3)`,
		reviewed.ID, freelancerID, clientID); err != nil {
		t.Fatalf("seed client review: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO freelancer_reviews (application_id, rating, comment, author_id, recipient_id) VALUES ($1, 4, 'solid work', $2, $3)`,
		reviewed.ID, clientID, freelancerID); err != nil {
		t.Fatalf("seed freelancer review: %v", err)
	}

	deleted, err := repo.Delete(ctx, reviewed.ID, freelancerID)
	if err != nil {
		t.Fatalf("delete reviewed application: %v", err)
	}
	if !deleted {
		t.Fatalf("expected the reviewed application to be deleted")
	}
	var reviewCount int
	if err := pool.QueryRow(ctx, `SELECT
			(SELECT COUNT(*) FROM client_reviews WHERE application_id = $1) +
			(SELECT COUNT(*) FROM freelancer_reviews WHERE application_id = $1)`,
		reviewed.ID).Scan(&reviewCount); err != nil {
		t.Fatalf("count reviews: %v", err)
	}
	if reviewCount != 0 {
		t.Fatalf("expected the reviews to be removed with the application, found %d", reviewCount)
	}
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}
