package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// PaperRepository handles persistence of papers in the central repository.
// Deduplication lookups follow the identifier priority order (arXiv ID, then
// PubMed ID, then DOI, then title with publication date); the merge store
// drives that order, the repository provides the individual lookups.
type PaperRepository interface {
	// Create inserts a new paper and returns it with its assigned ID and
	// timestamps. Authors are not persisted here; link them through
	// AuthorRepository after upserting.
	// Returns domain.ErrInvalidInput if the paper is nil, has an empty title,
	// or has no publication date.
	// Returns domain.ErrAlreadyExists if an identifier or the
	// (title, publication date) pair collides with an existing paper.
	Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// GetByID retrieves a paper by its internal UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// FindByIdentifier searches for a paper by one of its external identifiers.
	// The idType parameter selects the identifier column (arxiv_id, pubmed_id,
	// or doi). DOI comparisons expect lowercased values; normalization
	// lowercases DOIs before they reach storage.
	// Returns domain.ErrNotFound if no matching paper exists.
	FindByIdentifier(ctx context.Context, idType domain.IdentifierType, value string) (*domain.Paper, error)

	// FindByTitleAndDate searches for a paper by title and publication date.
	// This is the last-resort deduplication lookup for papers without any
	// external identifier. Title comparison is case-insensitive.
	// Returns domain.ErrNotFound if no matching paper exists.
	FindByTitleAndDate(ctx context.Context, title string, date time.Time) (*domain.Paper, error)

	// List retrieves papers matching the filter criteria, newest first.
	// Returns the matching papers and total count for pagination.
	// The total count reflects all matching records regardless of limit/offset.
	List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error)

	// CountBySource returns the number of stored papers per source API.
	CountBySource(ctx context.Context) (map[domain.SourceType]int, error)

	// CountByYear returns the number of stored papers per publication year.
	CountByYear(ctx context.Context) (map[int]int, error)

	// TopCited returns the n most cited papers, ties broken by title.
	// Non-positive n falls back to the default filter limit.
	TopCited(ctx context.Context, n int) ([]*domain.Paper, error)

	// Stats returns aggregate counts across the whole repository.
	Stats(ctx context.Context) (*PaperStats, error)
}

// PaperStats holds aggregate repository counts for the stats report.
type PaperStats struct {
	TotalPapers         int64 `json:"total_papers"`
	TotalAuthors        int64 `json:"total_authors"`
	TotalCollaborations int64 `json:"total_collaborations"`
	TotalCollections    int64 `json:"total_collections"`
}

// PaperFilter specifies criteria for listing papers.
type PaperFilter struct {
	// Source filters to papers from a specific source API (optional).
	Source *domain.SourceType

	// Year filters to papers published in a specific year (optional).
	Year *int

	// AuthorName filters to papers authored by the named author (optional).
	// The name must match the stored author name exactly.
	AuthorName *string

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
