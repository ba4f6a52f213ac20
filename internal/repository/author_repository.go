package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// AuthorRepository handles author persistence and authorship links.
// Author names are the identity key: the same name seen on papers from
// different sources resolves to one author row.
type AuthorRepository interface {
	// UpsertByName inserts the author or returns the existing row with the
	// same name. Existing non-empty profile fields win; empty email,
	// affiliation, and ORCID fields are backfilled from the candidate.
	// Returns domain.ErrInvalidInput if the author is nil or has an empty name.
	UpsertByName(ctx context.Context, author *domain.Author) (*domain.Author, error)

	// GetByName retrieves an author by exact name.
	// Returns domain.ErrNotFound if no matching author exists.
	GetByName(ctx context.Context, name string) (*domain.Author, error)

	// LinkAuthors records the authorship of a paper in one batch, preserving
	// author order through the position column. Links that already exist are
	// left untouched, so replays are safe.
	// Returns domain.ErrNotFound if the paper or an author does not exist.
	LinkAuthors(ctx context.Context, paperID uuid.UUID, authorIDs []uuid.UUID) error

	// AuthorsByFrequency returns authors ranked by number of stored papers,
	// descending, ties broken by name ascending. The network expansion rounds
	// feed on this ranking to pick the next authors to search.
	// Non-positive limits fall back to the default filter limit.
	AuthorsByFrequency(ctx context.Context, limit int) ([]AuthorPaperCount, error)

	// MostProductive returns the top n authors by stored paper count.
	// It is the stats view of the AuthorsByFrequency ranking.
	MostProductive(ctx context.Context, n int) ([]AuthorPaperCount, error)
}

// AuthorPaperCount pairs an author with the number of stored papers they
// appear on.
type AuthorPaperCount struct {
	Author     domain.Author `json:"author"`
	PaperCount int           `json:"paper_count"`
}
