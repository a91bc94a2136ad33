package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"gigflow/test/actors"
	"gigflow/test/chaos"
	"gigflow/test/infra"
	"gigflow/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func TestMarketplaceConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	rand.Seed(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seedData := mustSeed(t, ctx, pool)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// candidacy uniqueness under contention: many appliers, one pair
	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error {
			return actors.Applicant(ctx2, pool, seedData.jobID, seedData.racingFreelancer, stop)
		})
		g.Go(func() error { return actors.Opener(ctx2, pool, seedData.applicationID, stop) })
	}

	g.Go(func() error { return actors.Shortlister(ctx2, pool, seedData.jobID, stop) })
	g.Go(func() error { return actors.Closer(ctx2, pool, seedData.applicationID, stop) })
	g.Go(func() error {
		return actors.Reviewer(ctx2, pool, seedData.applicationID, seedData.clientID, seedData.freelancerID, "freelancer_reviews", stop)
	})
	g.Go(func() error {
		return actors.Reviewer(ctx2, pool, seedData.applicationID, seedData.freelancerID, seedData.clientID, "client_reviews", stop)
	})
	g.Go(func() error { return actors.Messenger(ctx2, pool, seedData.applicationID, seedData.clientID, stop) })
	g.Go(func() error { return actors.Messenger(ctx2, pool, seedData.applicationID, seedData.freelancerID, stop) })
	g.Go(func() error { return actors.Locker(ctx2, pool, seedData.applicationID, stop) })
	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	clientID         string
	freelancerID     string
	racingFreelancer string
	jobID            string
	applicationID    string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()
	var s seedIDs

	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1, 'Stress Client', 'x', 'client') RETURNING id`,
		fmt.Sprintf("client%d@example.com", rand.Int63())).Scan(&s.clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1, 'Stress Freelancer', 'x', 'freelancer') RETURNING id`,
		fmt.Sprintf("freelancer%d@example.com", rand.Int63())).Scan(&s.freelancerID); err != nil {
		t.Fatalf("seed freelancer: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1, 'Racing Freelancer', 'x', 'freelancer') RETURNING id`,
		fmt.Sprintf("racer%d@example.com", rand.Int63())).Scan(&s.racingFreelancer); err != nil {
		t.Fatalf("seed racing freelancer: %v", err)
	}

	if err := pool.QueryRow(ctx, `INSERT INTO jobs (author_id, title, description, budget) VALUES ($1, $2, 'stress job', 1000) RETURNING id`,
		s.clientID, fmt.Sprintf("Stress Job %d", rand.Int63())).Scan(&s.jobID); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	// one settled candidacy for the lifecycle, review and messaging actors
	if err := pool.QueryRow(ctx, `INSERT INTO applications (job_id, applicant_id, status, job_status)
                                  VALUES ($1, $2, 'SHORTLISTED', 'ACTIVE') RETURNING id`,
		s.jobID, s.freelancerID).Scan(&s.applicationID); err != nil {
		t.Fatalf("seed application: %v", err)
	}

	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"applications", `SELECT id, job_id, applicant_id, status, job_status, created_at FROM applications ORDER BY created_at DESC LIMIT 50`},
		{"conversations", `SELECT id, application_id, is_locked, created_at FROM conversations ORDER BY created_at DESC LIMIT 50`},
		{"messages", `SELECT id, conversation_id, sender_id, is_system_message, created_at FROM messages ORDER BY created_at DESC LIMIT 50`},
		{"client_reviews", `SELECT id, application_id, rating, author_id, created_at FROM client_reviews ORDER BY created_at DESC LIMIT 50`},
		{"freelancer_reviews", `SELECT id, application_id, rating, author_id, created_at FROM freelancer_reviews ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
