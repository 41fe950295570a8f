package matching

import (
	"context"

	"github.com/google/uuid"
)

// Suggestion is a learned interpretation of a raw statement description.
type Suggestion struct {
	Description string
	Category    string
}

type Repository interface {
	FindMatch(ctx context.Context, userID uuid.UUID, rawDescription string) (*Suggestion, error)
	CreateMapping(ctx context.Context, userID uuid.UUID, rawPattern string, s Suggestion) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest tries to find a clean description and category for the given raw
// statement description. Returns nil if nothing matches.
func (s *Service) Suggest(ctx context.Context, userID uuid.UUID, rawDescription string) (*Suggestion, error) {
	return s.repo.FindMatch(ctx, userID, rawDescription)
}

// Learn remembers how the user interpreted a raw pattern, so future imports
// matching it are pre-filled.
func (s *Service) Learn(ctx context.Context, userID uuid.UUID, rawPattern string, suggestion Suggestion) error {
	return s.repo.CreateMapping(ctx, userID, rawPattern, suggestion)
}
