package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gigflow/conversation"
)

var (
	// ErrNotFound is returned when no application row exists for the provided
	// identifier, and when the caller has no visibility into it.
	ErrNotFound = errors.New("application: not found")
	// ErrDuplicateApplication signals the freelancer already applied to the job.
	ErrDuplicateApplication = errors.New("application: already applied to this job")
)

const detailColumns = `
	a.id, a.job_id, a.applicant_id, a.status, a.job_status, a.created_at,
	j.author_id, j.title
`

// Repository defines the data access required by the lifecycle service.
type Repository interface {
	Create(ctx context.Context, app Application) (Application, error)
	Get(ctx context.Context, id string) (Details, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Details, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) error
	UpdateJobStatus(ctx context.Context, tx pgx.Tx, id string, status JobStatus) error
	Delete(ctx context.Context, id, applicantID string) (bool, error)
	CancelTx(ctx context.Context, tx pgx.Tx, id string) error
	ListForJob(ctx context.Context, jobID string) ([]Details, error)
	ListForApplicant(ctx context.Context, applicantID string) ([]Details, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a fresh candidacy. The unique (job_id, applicant_id)
// constraint turns a repeat apply into ErrDuplicateApplication; a missing job
// surfaces as ErrNotFound via the foreign key.
func (r *PGRepository) Create(ctx context.Context, app Application) (Application, error) {
	const insertSQL = `
		INSERT INTO applications (id, job_id, applicant_id, status, job_status)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5)
		RETURNING id, job_id, applicant_id, status, job_status, created_at
	`

	var created Application
	err := r.pool.QueryRow(ctx, insertSQL,
		app.ID, app.JobID, app.ApplicantID, app.Status, app.JobStatus,
	).Scan(&created.ID, &created.JobID, &created.ApplicantID, &created.Status, &created.JobStatus, &created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Application{}, ErrDuplicateApplication
			case "23503":
				return Application{}, ErrNotFound
			}
		}
		return Application{}, fmt.Errorf("application: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Details, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.id = $1
	`, detailColumns)

	det, err := scanDetails(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Details{}, ErrNotFound
		}
		return Details{}, fmt.Errorf("application: get: %w", err)
	}
	return det, nil
}

// GetForUpdate locks the application row for the duration of the enclosing
// transaction so concurrent transitions serialize.
func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Details, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.id = $1
		FOR UPDATE OF a
	`, detailColumns)

	det, err := scanDetails(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Details{}, ErrNotFound
		}
		return Details{}, fmt.Errorf("application: get for update: %w", err)
	}
	return det, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) error {
	if _, err := tx.Exec(ctx, `UPDATE applications SET status = $1 WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("application: update status: %w", err)
	}
	return nil
}

func (r *PGRepository) UpdateJobStatus(ctx context.Context, tx pgx.Tx, id string, status JobStatus) error {
	if _, err := tx.Exec(ctx, `UPDATE applications SET job_status = $1 WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("application: update job status: %w", err)
	}
	return nil
}

// Delete removes the application iff applicantID owns it. Dependent rows go
// with it via cascades. Returns false when nothing matched, which the caller
// reports as not found regardless of why.
func (r *PGRepository) Delete(ctx context.Context, id, applicantID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM applications WHERE id = $1 AND applicant_id = $2`, id, applicantID)
	if err != nil {
		return false, fmt.Errorf("application: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CancelTx removes the application and its conversation inside the caller's
// transaction. A locked conversation blocks the cancellation.
func (r *PGRepository) CancelTx(ctx context.Context, tx pgx.Tx, id string) error {
	var (
		convID   string
		isLocked bool
	)
	err := tx.QueryRow(ctx,
		`SELECT id, is_locked FROM conversations WHERE application_id = $1 FOR UPDATE`, id,
	).Scan(&convID, &isLocked)
	switch {
	case err == nil:
		if isLocked {
			return conversation.ErrLocked
		}
		if _, err := tx.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, convID); err != nil {
			return fmt.Errorf("application: delete conversation: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// no side channel yet
	default:
		return fmt.Errorf("application: inspect conversation: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("application: cancel delete: %w", err)
	}
	return nil
}

func (r *PGRepository) ListForJob(ctx context.Context, jobID string) ([]Details, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.job_id = $1
		ORDER BY a.created_at ASC
	`, detailColumns)

	return r.listDetails(ctx, query, jobID)
}

func (r *PGRepository) ListForApplicant(ctx context.Context, applicantID string) ([]Details, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.applicant_id = $1
		ORDER BY a.created_at DESC
	`, detailColumns)

	return r.listDetails(ctx, query, applicantID)
}

// Participants implements conversation.ParticipantSource.
func (r *PGRepository) Participants(ctx context.Context, applicationID string) (string, string, error) {
	const query = `
		SELECT a.applicant_id, j.author_id
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.id = $1
	`

	var applicantID, clientID string
	if err := r.pool.QueryRow(ctx, query, applicationID).Scan(&applicantID, &clientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("application: participants: %w", err)
	}
	return applicantID, clientID, nil
}

func (r *PGRepository) listDetails(ctx context.Context, query string, args ...any) ([]Details, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("application: list: %w", err)
	}
	defer rows.Close()

	items := []Details{}
	for rows.Next() {
		var det Details
		if err := rows.Scan(
			&det.ID, &det.JobID, &det.ApplicantID, &det.Status, &det.JobStatus, &det.CreatedAt,
			&det.JobAuthorID, &det.JobTitle,
		); err != nil {
			return nil, err
		}
		items = append(items, det)
	}
	return items, rows.Err()
}

func scanDetails(row pgx.Row) (Details, error) {
	var det Details
	err := row.Scan(
		&det.ID, &det.JobID, &det.ApplicantID, &det.Status, &det.JobStatus, &det.CreatedAt,
		&det.JobAuthorID, &det.JobTitle,
	)
	if err != nil {
		return Details{}, err
	}
	return det, nil
}
