package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Applicant hammers the same (job, applicant) pair with inserts. All but the
// first must fail on the unique candidacy constraint.
func Applicant(ctx context.Context, pool *pgxpool.Pool, jobID, applicantID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `INSERT INTO applications (job_id, applicant_id, status, job_status)
                                  VALUES ($1, $2, 'PENDING', 'ACTIVE')`, jobID, applicantID)
		if err != nil && !uniqueViolation(err) {
			return fmt.Errorf("applicant insert: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Shortlister locks a pending candidacy and moves it out of PENDING, the way
// the lifecycle service does.
func Shortlister(ctx context.Context, pool *pgxpool.Pool, jobID string, stop <-chan struct{}) error {
	verdicts := []string{"SHORTLISTED", "REJECTED"}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var appID string
		err = tx.QueryRow(ctx, `SELECT id FROM applications WHERE job_id=$1 AND status='PENDING' LIMIT 1 FOR UPDATE SKIP LOCKED`, jobID).Scan(&appID)
		if err == nil {
			verdict := verdicts[rand.Intn(len(verdicts))]
			if _, err := tx.Exec(ctx, `UPDATE applications SET status=$1 WHERE id=$2 AND status='PENDING'`, verdict, appID); err == nil {
				_ = tx.Commit(ctx)
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Closer pushes an application's work lifecycle forward under row locks:
// ACTIVE to PENDING_CLOSE, PENDING_CLOSE to COMPLETED. Never backward.
func Closer(ctx context.Context, pool *pgxpool.Pool, applicationID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var jobStatus string
		if err := tx.QueryRow(ctx, `SELECT job_status FROM applications WHERE id=$1 FOR UPDATE`, applicationID).Scan(&jobStatus); err == nil {
			switch jobStatus {
			case "ACTIVE":
				_, err = tx.Exec(ctx, `UPDATE applications SET job_status='PENDING_CLOSE' WHERE id=$1 AND job_status='ACTIVE'`, applicationID)
			case "PENDING_CLOSE":
				_, err = tx.Exec(ctx, `UPDATE applications SET job_status='COMPLETED' WHERE id=$1 AND job_status='PENDING_CLOSE'`, applicationID)
			}
			if err == nil {
				_ = tx.Commit(ctx)
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// Reviewer races to insert a review in one direction once the work completes,
// then advances the application to REVIEWED when both directions exist. The
// duplicate insert is expected to lose on the unique constraint.
func Reviewer(ctx context.Context, pool *pgxpool.Pool, applicationID, authorID, recipientID, table string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var jobStatus string
		if err := tx.QueryRow(ctx, `SELECT job_status FROM applications WHERE id=$1 FOR UPDATE`, applicationID).Scan(&jobStatus); err == nil {
			if jobStatus == "COMPLETED" || jobStatus == "REVIEWED" {
				insertSQL := fmt.Sprintf(`INSERT INTO %s (application_id, rating, comment, author_id, recipient_id)
                                          VALUES ($1, $2, 'Solid work on both sides.', $3, $4)`, table)
				_, err = tx.Exec(ctx, insertSQL, applicationID, 1+rand.Intn(5), authorID, recipientID)
				if err == nil || uniqueViolation(err) {
					var both bool
					if qErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM client_reviews WHERE application_id=$1)
                                                 AND EXISTS (SELECT 1 FROM freelancer_reviews WHERE application_id=$1)`, applicationID).Scan(&both); qErr == nil && both && err == nil {
						_, _ = tx.Exec(ctx, `UPDATE applications SET job_status='REVIEWED' WHERE id=$1 AND job_status='COMPLETED'`, applicationID)
					}
					if err == nil {
						_ = tx.Commit(ctx)
					}
				} else {
					_ = tx.Rollback(ctx)
					return fmt.Errorf("reviewer insert: %w", err)
				}
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

// Opener races first contact: insert the conversation, lose gracefully on the
// unique application_id constraint.
func Opener(ctx context.Context, pool *pgxpool.Pool, applicationID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `INSERT INTO conversations (application_id) VALUES ($1)`, applicationID)
		if err != nil && !uniqueViolation(err) {
			return fmt.Errorf("opener insert: %w", err)
		}
		time.Sleep(time.Duration(15+rand.Intn(30)) * time.Millisecond)
	}
}

// Messenger appends messages through the lock-guarded insert. Once another
// actor locks the conversation the insert silently writes nothing.
func Messenger(ctx context.Context, pool *pgxpool.Pool, applicationID, senderID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `INSERT INTO messages (conversation_id, sender_id, content, is_system_message)
                                  SELECT c.id, $2, 'stress chatter', FALSE
                                  FROM conversations c
                                  WHERE c.application_id = $1 AND c.is_locked = FALSE`, applicationID, senderID)
		if err != nil {
			return fmt.Errorf("messenger insert: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(30)) * time.Millisecond)
	}
}

// Locker occasionally freezes the conversation, as a rejection or completion
// would.
func Locker(ctx context.Context, pool *pgxpool.Pool, applicationID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if rand.Intn(10) == 0 {
			if _, err := pool.Exec(ctx, `UPDATE conversations SET is_locked=TRUE WHERE application_id=$1`, applicationID); err != nil {
				return fmt.Errorf("locker update: %w", err)
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
}
