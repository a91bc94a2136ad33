package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no user exists for the identifier.
	ErrNotFound = errors.New("profile: not found")
)

// PGRepository reads public profiles backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Received reviews from both directions feed the rating aggregate.
const ratingSQL = `
	SELECT COALESCE(AVG(rating), 0), COUNT(*)
	FROM (
		SELECT rating FROM client_reviews WHERE recipient_id = $1
		UNION ALL
		SELECT rating FROM freelancer_reviews WHERE recipient_id = $1
	) received
`

// GetByID returns the public profile for the given identifier.
func (r *PGRepository) GetByID(ctx context.Context, id string) (Profile, error) {
	const userSQL = `
		SELECT id, full_name, role, bio, created_at
		FROM users
		WHERE id = $1
	`

	var p Profile
	err := r.pool.QueryRow(ctx, userSQL, id).Scan(&p.ID, &p.FullName, &p.Role, &p.Bio, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("profile: get user: %w", err)
	}

	if err := r.pool.QueryRow(ctx, ratingSQL, id).Scan(&p.Rating, &p.ReviewCount); err != nil {
		return Profile{}, fmt.Errorf("profile: rating aggregate: %w", err)
	}

	skills, err := r.listSkills(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	p.Skills = skills

	return p, nil
}

// List returns up to limit profiles, most recently registered first.
func (r *PGRepository) List(ctx context.Context, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	const listSQL = `
		SELECT id, full_name, role, bio, created_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, listSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("profile: list: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Role, &p.Bio, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// AddSkill attaches a skill to a freelancer profile, upserting the skill row
// by name. Repeats are no-ops on the composite key.
func (r *PGRepository) AddSkill(ctx context.Context, userID, skill string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("profile: begin add skill: %w", err)
	}
	defer tx.Rollback(ctx)

	var skillID string
	const upsertSQL = `
		INSERT INTO skills (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	if err := tx.QueryRow(ctx, upsertSQL, skill).Scan(&skillID); err != nil {
		return fmt.Errorf("profile: upsert skill: %w", err)
	}

	const linkSQL = `
		INSERT INTO freelancer_skills (user_id, skill_id) VALUES ($1, $2)
		ON CONFLICT (user_id, skill_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, linkSQL, userID, skillID); err != nil {
		return fmt.Errorf("profile: link skill: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("profile: commit add skill: %w", err)
	}
	return nil
}

// RemoveSkill detaches a skill from a freelancer profile.
func (r *PGRepository) RemoveSkill(ctx context.Context, userID, skill string) error {
	const deleteSQL = `
		DELETE FROM freelancer_skills fs
		USING skills s
		WHERE fs.user_id = $1 AND fs.skill_id = s.id AND s.name = $2
	`
	if _, err := r.pool.Exec(ctx, deleteSQL, userID, skill); err != nil {
		return fmt.Errorf("profile: remove skill: %w", err)
	}
	return nil
}

func (r *PGRepository) listSkills(ctx context.Context, userID string) ([]string, error) {
	const selectSQL = `
		SELECT s.name
		FROM freelancer_skills fs
		JOIN skills s ON s.id = fs.skill_id
		WHERE fs.user_id = $1
		ORDER BY s.name
	`

	rows, err := r.pool.Query(ctx, selectSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("profile: list skills: %w", err)
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
