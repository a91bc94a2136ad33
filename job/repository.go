package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no job row exists for the identifier.
	ErrNotFound = errors.New("job: not found")
)

// Repository defines the data access required by the service.
type Repository interface {
	Create(ctx context.Context, j Job) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	GetWithAuthor(ctx context.Context, id string) (Summary, error)
	List(ctx context.Context, filters Filters) ([]Job, int, error)
	AddSkill(ctx context.Context, jobID, skill string) error
	RemoveSkill(ctx context.Context, jobID, skill string) error
	ListSkills(ctx context.Context, jobID string) ([]string, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, j Job) (Job, error) {
	const insertSQL = `
		INSERT INTO jobs (id, author_id, title, description, budget, status)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6)
		RETURNING id, author_id, title, description, budget, status, created_at, updated_at
	`

	created, err := scanJob(r.pool.QueryRow(ctx, insertSQL,
		j.ID, j.AuthorID, j.Title, j.Description, j.Budget, j.Status))
	if err != nil {
		return Job{}, fmt.Errorf("job: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Job, error) {
	const selectSQL = `
		SELECT id, author_id, title, description, budget, status, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	j, err := scanJob(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, fmt.Errorf("job: get: %w", err)
	}

	skills, err := r.ListSkills(ctx, j.ID)
	if err != nil {
		return Job{}, err
	}
	j.Skills = skills
	return j, nil
}

// GetWithAuthor returns the minimal job projection used by other domains for
// ownership checks and notification text.
func (r *PGRepository) GetWithAuthor(ctx context.Context, id string) (Summary, error) {
	const selectSQL = `SELECT id, author_id, title FROM jobs WHERE id = $1`

	var s Summary
	if err := r.pool.QueryRow(ctx, selectSQL, id).Scan(&s.ID, &s.AuthorID, &s.Title); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, fmt.Errorf("job: get with author: %w", err)
	}
	return s, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Job, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	base := `SELECT j.id, j.author_id, j.title, j.description, j.budget, j.status, j.created_at, j.updated_at
             FROM jobs j`
	where := []string{"1=1"}
	args := []any{}

	if filters.AuthorID != "" {
		where = append(where, fmt.Sprintf("j.author_id=$%d", len(args)+1))
		args = append(args, filters.AuthorID)
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("j.status=$%d", len(args)+1))
		args = append(args, filters.Status)
	}
	if filters.Skill != "" {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM job_skills js JOIN skills s ON s.id=js.skill_id WHERE js.job_id=j.id AND s.name=$%d)",
			len(args)+1))
		args = append(args, filters.Skill)
	}

	whereSQL := ""
	for i, w := range where {
		if i == 0 {
			whereSQL = " WHERE " + w
			continue
		}
		whereSQL += " AND " + w
	}

	query := fmt.Sprintf("%s%s ORDER BY j.created_at DESC LIMIT $%d OFFSET $%d",
		base, whereSQL, len(args)+1, len(args)+2)
	listArgs := append(append([]any{}, args...), filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := r.pool.Query(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("job: list: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("job: list rows: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM jobs j%s", whereSQL)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("job: count: %w", err)
	}

	return jobs, total, nil
}

// AddSkill is a set-membership operation on the job_skills join table. The
// skill row is upserted by name; the composite primary key makes repeats
// no-ops.
func (r *PGRepository) AddSkill(ctx context.Context, jobID, skill string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("job: begin add skill: %w", err)
	}
	defer tx.Rollback(ctx)

	var skillID string
	const upsertSQL = `
		INSERT INTO skills (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	if err := tx.QueryRow(ctx, upsertSQL, skill).Scan(&skillID); err != nil {
		return fmt.Errorf("job: upsert skill: %w", err)
	}

	const linkSQL = `
		INSERT INTO job_skills (job_id, skill_id) VALUES ($1, $2)
		ON CONFLICT (job_id, skill_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, linkSQL, jobID, skillID); err != nil {
		return fmt.Errorf("job: link skill: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("job: commit add skill: %w", err)
	}
	return nil
}

func (r *PGRepository) RemoveSkill(ctx context.Context, jobID, skill string) error {
	const deleteSQL = `
		DELETE FROM job_skills js
		USING skills s
		WHERE js.job_id = $1 AND js.skill_id = s.id AND s.name = $2
	`
	if _, err := r.pool.Exec(ctx, deleteSQL, jobID, skill); err != nil {
		return fmt.Errorf("job: remove skill: %w", err)
	}
	return nil
}

func (r *PGRepository) ListSkills(ctx context.Context, jobID string) ([]string, error) {
	const selectSQL = `
		SELECT s.name
		FROM job_skills js
		JOIN skills s ON s.id = js.skill_id
		WHERE js.job_id = $1
		ORDER BY s.name
	`

	rows, err := r.pool.Query(ctx, selectSQL, jobID)
	if err != nil {
		return nil, fmt.Errorf("job: list skills: %w", err)
	}
	defer rows.Close()

	skills := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		skills = append(skills, name)
	}
	return skills, rows.Err()
}

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.AuthorID, &j.Title, &j.Description, &j.Budget, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return Job{}, err
	}
	return j, nil
}

func scanJobRows(rows pgx.Rows) (Job, error) {
	var j Job
	err := rows.Scan(&j.ID, &j.AuthorID, &j.Title, &j.Description, &j.Budget, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return Job{}, err
	}
	return j, nil
}
