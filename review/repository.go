package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigflow/application"
)

var (
	// ErrNotFound is returned when the application does not exist.
	ErrNotFound = errors.New("review: application not found")
	// ErrAlreadyReviewed signals the unique per-direction constraint fired.
	ErrAlreadyReviewed = errors.New("review: already reviewed this application")
)

// ApplicationState is the slice of the application row the review gate needs.
type ApplicationState struct {
	ID          string
	ApplicantID string
	ClientID    string
	JobStatus   application.JobStatus
}

// Repository defines the data access required by the service.
type Repository interface {
	GetApplicationForUpdate(ctx context.Context, tx pgx.Tx, applicationID string) (ApplicationState, error)
	Insert(ctx context.Context, tx pgx.Tx, r Review) (Review, error)
	BothExist(ctx context.Context, tx pgx.Tx, applicationID string) (bool, error)
	MarkReviewed(ctx context.Context, tx pgx.Tx, applicationID string) error
	ListForUser(ctx context.Context, recipientID string) ([]Review, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetApplicationForUpdate locks the application row so the review insert and
// the possible REVIEWED advance serialize with concurrent submissions.
func (r *PGRepository) GetApplicationForUpdate(ctx context.Context, tx pgx.Tx, applicationID string) (ApplicationState, error) {
	const query = `
		SELECT a.id, a.applicant_id, j.author_id, a.job_status
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.id = $1
		FOR UPDATE OF a
	`

	var state ApplicationState
	err := tx.QueryRow(ctx, query, applicationID).Scan(&state.ID, &state.ApplicantID, &state.ClientID, &state.JobStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ApplicationState{}, ErrNotFound
		}
		return ApplicationState{}, fmt.Errorf("review: load application: %w", err)
	}
	return state, nil
}

// Insert writes the review row for its direction. The unique application_id
// constraint on each table turns a duplicate into ErrAlreadyReviewed.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, rev Review) (Review, error) {
	table := "client_reviews"
	if rev.Direction == DirectionFreelancer {
		table = "freelancer_reviews"
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (application_id, rating, comment, author_id, recipient_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, application_id, rating, comment, author_id, recipient_id, created_at
	`, table)

	var inserted Review
	err := tx.QueryRow(ctx, query,
		rev.ApplicationID, rev.Rating, rev.Comment, rev.AuthorID, rev.RecipientID,
	).Scan(&inserted.ID, &inserted.ApplicationID, &inserted.Rating, &inserted.Comment,
		&inserted.AuthorID, &inserted.RecipientID, &inserted.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Review{}, ErrAlreadyReviewed
		}
		return Review{}, fmt.Errorf("review: insert: %w", err)
	}

	inserted.Direction = rev.Direction
	return inserted, nil
}

// BothExist reports whether the application has a review in each direction.
func (r *PGRepository) BothExist(ctx context.Context, tx pgx.Tx, applicationID string) (bool, error) {
	const query = `
		SELECT EXISTS (SELECT 1 FROM client_reviews WHERE application_id = $1)
		   AND EXISTS (SELECT 1 FROM freelancer_reviews WHERE application_id = $1)
	`

	var both bool
	if err := tx.QueryRow(ctx, query, applicationID).Scan(&both); err != nil {
		return false, fmt.Errorf("review: check both directions: %w", err)
	}
	return both, nil
}

// MarkReviewed advances the application's work status. The WHERE guard keeps
// the transition strictly forward.
func (r *PGRepository) MarkReviewed(ctx context.Context, tx pgx.Tx, applicationID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE applications
		SET job_status = $1
		WHERE id = $2 AND job_status = $3
	`, application.JobStatusReviewed, applicationID, application.JobStatusCompleted)
	if err != nil {
		return fmt.Errorf("review: mark reviewed: %w", err)
	}
	return nil
}

// ListForUser returns reviews received by a user, both directions merged,
// newest first.
func (r *PGRepository) ListForUser(ctx context.Context, recipientID string) ([]Review, error) {
	const query = `
		SELECT id, application_id, rating, comment, author_id, recipient_id, created_at, 'client' AS direction
		FROM client_reviews
		WHERE recipient_id = $1
		UNION ALL
		SELECT id, application_id, rating, comment, author_id, recipient_id, created_at, 'freelancer' AS direction
		FROM freelancer_reviews
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("review: list for user: %w", err)
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ID, &rev.ApplicationID, &rev.Rating, &rev.Comment,
			&rev.AuthorID, &rev.RecipientID, &rev.CreatedAt, &rev.Direction); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}
