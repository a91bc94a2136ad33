package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_unique_candidacy",
			SQL: `SELECT job_id, applicant_id, COUNT(*) FROM applications
                  GROUP BY job_id, applicant_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_review_per_direction_unique",
			SQL: `SELECT application_id, COUNT(*) FROM client_reviews
                  GROUP BY application_id HAVING COUNT(*) > 1
                  UNION ALL
                  SELECT application_id, COUNT(*) FROM freelancer_reviews
                  GROUP BY application_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_reviewed_requires_both_directions",
			SQL: `SELECT a.id FROM applications a
                  WHERE a.job_status = 'REVIEWED'
                    AND NOT (EXISTS (SELECT 1 FROM client_reviews WHERE application_id = a.id)
                         AND EXISTS (SELECT 1 FROM freelancer_reviews WHERE application_id = a.id))`,
		},
		{
			Name: "O4_review_requires_completion",
			SQL: `SELECT a.id, a.job_status FROM applications a
                  WHERE a.job_status IN ('ACTIVE', 'PENDING_CLOSE')
                    AND (EXISTS (SELECT 1 FROM client_reviews WHERE application_id = a.id)
                      OR EXISTS (SELECT 1 FROM freelancer_reviews WHERE application_id = a.id))`,
		},
		{
			Name: "O5_conversation_per_application",
			SQL: `SELECT application_id, COUNT(*) FROM conversations
                  GROUP BY application_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O6_system_messages_have_no_sender",
			SQL:  `SELECT id FROM messages WHERE is_system_message AND sender_id IS NOT NULL`,
		},
		{
			Name: "O7_rating_bounds",
			SQL: `SELECT id, rating FROM client_reviews WHERE rating NOT BETWEEN 1 AND 5
                  UNION ALL
                  SELECT id, rating FROM freelancer_reviews WHERE rating NOT BETWEEN 1 AND 5`,
		},
		{
			Name: "O8_status_domains",
			SQL: `SELECT id FROM applications
                  WHERE status NOT IN ('PENDING', 'SHORTLISTED', 'REJECTED')
                     OR job_status NOT IN ('ACTIVE', 'PENDING_CLOSE', 'COMPLETED', 'REVIEWED')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row
// text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
