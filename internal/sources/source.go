// Package sources provides interfaces and types for academic paper source clients.
//
// This package defines the foundational abstractions that all paper source
// implementations must follow. Each academic database (arXiv, PubMed, Semantic
// Scholar) implements the Collector interface, allowing the collection service
// to search multiple sources concurrently with a unified API.
//
// Example usage:
//
//	source := arxiv.New(cfg)
//	result, err := source.SearchByAuthor(ctx, "Jane Doe", 50)
package sources

import (
	"context"
	"time"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// SearchResult contains the results from a paper source search operation.
type SearchResult struct {
	// Papers contains the papers returned by the search.
	// May be empty if no papers match the search criteria.
	Papers []*domain.Paper

	// TotalResults is the total number of papers matching the query,
	// regardless of the requested limit. This value is provided by the
	// source API and may be an estimate for large result sets.
	TotalResults int

	// Source identifies which paper source provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search,
	// including network latency and response parsing.
	SearchDuration time.Duration
}

// Collector defines the interface that all paper source clients must implement.
// Each academic database or API (arXiv, PubMed, Semantic Scholar) provides its
// own implementation of this interface.
type Collector interface {
	// SearchByAuthor queries the source for papers written by the named
	// author. limit caps the number of papers returned; a value of 0 uses
	// the source's default limit. The context should be used for
	// cancellation and deadline propagation.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting before each request
	//   - Transform source-specific responses to domain.Paper
	//   - Include appropriate error wrapping with source context
	SearchByAuthor(ctx context.Context, author string, limit int) (*SearchResult, error)

	// SearchByKeywords queries the source for papers matching all of the
	// given keywords. limit caps the number of papers returned; a value of
	// 0 uses the source's default limit.
	SearchByKeywords(ctx context.Context, keywords []string, limit int) (*SearchResult, error)

	// SourceType returns the type identifier for this paper source.
	// Used for attribution, deduplication, and routing.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this paper source.
	// Used for logging, metrics, and display purposes.
	Name() string

	// IsEnabled returns whether this paper source is currently enabled
	// and available for searches. A source may be disabled due to
	// configuration, missing API keys, or temporary outages.
	IsEnabled() bool
}
