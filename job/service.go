package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotOwner signals the caller does not own the job being modified.
	ErrNotOwner = errors.New("job: caller does not own job")
)

// CreateParams carries the fields a client supplies when posting a job.
type CreateParams struct {
	AuthorID    string
	Title       string
	Description string
	Budget      int64
	Skills      []string
}

// ListResult bundles a page of jobs with the total match count.
type ListResult struct {
	Items []Job
	Total int
}

// Service exposes business-level job operations.
type Service struct {
	repo        Repository
	idGenerator func() string
	now         func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) Create(ctx context.Context, params CreateParams) (Job, error) {
	if params.AuthorID == "" {
		return Job{}, fmt.Errorf("job: missing author id")
	}
	if strings.TrimSpace(params.Title) == "" {
		return Job{}, fmt.Errorf("job: title required")
	}
	if params.Budget < 0 {
		return Job{}, fmt.Errorf("job: invalid budget")
	}

	created, err := s.repo.Create(ctx, Job{
		ID:          s.idGenerator(),
		AuthorID:    params.AuthorID,
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		Budget:      params.Budget,
		Status:      StatusOpen,
	})
	if err != nil {
		return Job{}, err
	}

	for _, skill := range params.Skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if err := s.repo.AddSkill(ctx, created.ID, skill); err != nil {
			return Job{}, err
		}
	}

	return s.repo.Get(ctx, created.ID)
}

func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	return s.repo.Get(ctx, id)
}

// GetWithAuthor exposes the job-store lookup other domains use for
// authorization.
func (s *Service) GetWithAuthor(ctx context.Context, id string) (Summary, error) {
	return s.repo.GetWithAuthor(ctx, id)
}

func (s *Service) List(ctx context.Context, filters Filters) (ListResult, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// AddSkill attaches a skill to a job owned by actorID.
func (s *Service) AddSkill(ctx context.Context, jobID, actorID, skill string) error {
	if err := s.requireOwner(ctx, jobID, actorID); err != nil {
		return err
	}
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return fmt.Errorf("job: skill name required")
	}
	return s.repo.AddSkill(ctx, jobID, skill)
}

// RemoveSkill detaches a skill from a job owned by actorID.
func (s *Service) RemoveSkill(ctx context.Context, jobID, actorID, skill string) error {
	if err := s.requireOwner(ctx, jobID, actorID); err != nil {
		return err
	}
	return s.repo.RemoveSkill(ctx, jobID, skill)
}

func (s *Service) requireOwner(ctx context.Context, jobID, actorID string) error {
	summary, err := s.repo.GetWithAuthor(ctx, jobID)
	if err != nil {
		return err
	}
	if summary.AuthorID != actorID {
		return ErrNotOwner
	}
	return nil
}
