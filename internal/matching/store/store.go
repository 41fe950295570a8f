package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendy/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindMatch(ctx context.Context, userID uuid.UUID, rawDescription string) (*matching.Suggestion, error) {
	query := `
		SELECT preferred_description, category
		FROM description_mappings
		WHERE user_id = $1 AND $2 ILIKE '%' || raw_pattern || '%'
		ORDER BY LENGTH(raw_pattern) DESC, created_at DESC
		LIMIT 1
	`

	var sg matching.Suggestion

	err := s.db.QueryRowContext(ctx, query, userID, rawDescription).Scan(&sg.Description, &sg.Category)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("finding match: %w", err)
	}

	return &sg, nil
}

func (s *Store) CreateMapping(ctx context.Context, userID uuid.UUID, rawPattern string, sg matching.Suggestion) error {
	query := `
		INSERT INTO description_mappings (user_id, raw_pattern, preferred_description, category, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := s.db.ExecContext(ctx, query, userID, rawPattern, sg.Description, sg.Category)
	if err != nil {
		return fmt.Errorf("creating mapping: %w", err)
	}

	return nil
}
