package profile

import (
	"context"
	"fmt"
	"strings"
)

// ProfileReader abstracts repository operations for the service.
type ProfileReader interface {
	GetByID(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context, limit int) ([]Profile, error)
	AddSkill(ctx context.Context, userID, skill string) error
	RemoveSkill(ctx context.Context, userID, skill string) error
}

// Service exposes business-level profile operations.
type Service struct {
	repo ProfileReader
}

// NewService builds a Service using the provided repository.
func NewService(repo ProfileReader) *Service {
	return &Service{repo: repo}
}

// GetByID returns the public profile for the given identifier.
func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns up to limit profiles.
func (s *Service) List(ctx context.Context, limit int) ([]Profile, error) {
	return s.repo.List(ctx, limit)
}

// AddSkill attaches a skill to the caller's own profile.
func (s *Service) AddSkill(ctx context.Context, userID, skill string) error {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return fmt.Errorf("profile: skill name required")
	}
	return s.repo.AddSkill(ctx, userID, skill)
}

// RemoveSkill detaches a skill from the caller's own profile.
func (s *Service) RemoveSkill(ctx context.Context, userID, skill string) error {
	return s.repo.RemoveSkill(ctx, userID, skill)
}
