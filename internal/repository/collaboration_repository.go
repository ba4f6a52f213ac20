package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// CollaborationRepository handles pairwise co-authorship records. Each
// unordered author pair has exactly one row; callers pass the pair in
// canonical order (author1's name sorts before author2's), which
// domain.OrderAuthorPair produces.
type CollaborationRepository interface {
	// RecordPaper registers that the two authors co-wrote the given paper.
	// It upserts the pair row, links the paper, recomputes the paper count
	// from the link table, and folds the paper's publication date into the
	// first/last collaboration dates. A nil date leaves the dates untouched.
	// Replaying the same paper for a pair does not inflate the count.
	//
	// The three statements are not atomic on a plain pool; run RecordPaper
	// inside a transaction when other writes must move with it.
	//
	// Returns domain.ErrInvalidInput if the author IDs are equal or nil.
	// Returns domain.ErrNotFound if an author or the paper does not exist.
	RecordPaper(ctx context.Context, author1ID, author2ID, paperID uuid.UUID, date *time.Time) (*domain.Collaboration, error)

	// ListAll returns every collaboration as a name-level edge, ordered by
	// paper count descending and then by author names. The graph builder
	// loads the network from this.
	ListAll(ctx context.Context) ([]domain.CollaborationEdge, error)

	// Count returns the total number of collaboration pairs.
	Count(ctx context.Context) (int64, error)
}
