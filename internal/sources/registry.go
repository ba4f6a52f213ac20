package sources

import (
	"context"
	"sync"
	"time"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// SourceResult holds the result of a search from one source.
type SourceResult struct {
	// Source identifies which paper source provided the result.
	Source domain.SourceType

	// Result contains the search results if the search succeeded.
	// Will be nil if Error is non-nil.
	Result *SearchResult

	// Error contains the error if the search failed.
	// Will be nil if Result is non-nil.
	Error error

	// Duration is the wall-clock time of this source's search as measured
	// by the registry. Unlike SearchResult.SearchDuration it is populated
	// even when the search failed.
	Duration time.Duration
}

// Registry manages paper sources and coordinates concurrent searches.
// It provides thread-safe registration and retrieval of paper sources,
// as well as concurrent search operations across multiple sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]Collector
}

// NewRegistry creates a new source registry with an empty source map.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]Collector),
	}
}

// Register adds a source to the registry.
// If a source with the same type already exists, it will be replaced.
// This method is thread-safe.
func (r *Registry) Register(source Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns a source by type, or nil if not found.
// This method is thread-safe.
func (r *Registry) Get(sourceType domain.SourceType) Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// AllSources returns all registered sources.
// The returned slice is a snapshot and is safe to iterate even if
// sources are added or removed concurrently.
// This method is thread-safe.
func (r *Registry) AllSources() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Collector, 0, len(r.sources))
	for _, source := range r.sources {
		sources = append(sources, source)
	}
	return sources
}

// EnabledSources returns only enabled sources.
// Sources are considered enabled if their IsEnabled() method returns true.
// The returned slice is a snapshot and is safe to iterate even if
// sources are added or removed concurrently.
// This method is thread-safe.
func (r *Registry) EnabledSources() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Collector, 0, len(r.sources))
	for _, source := range r.sources {
		if source.IsEnabled() {
			sources = append(sources, source)
		}
	}
	return sources
}

// SearchAllByAuthor searches all enabled sources concurrently for papers by
// the named author. Returns results for each source (including errors).
// Errors are not filtered; the caller is responsible for handling them.
// If the context is canceled, ongoing searches are interrupted and their
// errors returned. This method is thread-safe.
func (r *Registry) SearchAllByAuthor(ctx context.Context, author string, limit int) []SourceResult {
	return r.fanOut(func(s Collector) (*SearchResult, error) {
		return s.SearchByAuthor(ctx, author, limit)
	})
}

// SearchAllByKeywords searches all enabled sources concurrently for papers
// matching the given keywords. Returns results for each source (including
// errors). Errors are not filtered; the caller is responsible for handling
// them. This method is thread-safe.
func (r *Registry) SearchAllByKeywords(ctx context.Context, keywords []string, limit int) []SourceResult {
	return r.fanOut(func(s Collector) (*SearchResult, error) {
		return s.SearchByKeywords(ctx, keywords, limit)
	})
}

// fanOut runs the search against every enabled source in its own goroutine
// and collects the per-source results. Each source applies its own rate
// limiting, so sources at different quotas do not slow each other down.
func (r *Registry) fanOut(search func(Collector) (*SearchResult, error)) []SourceResult {
	sources := r.EnabledSources()
	if len(sources) == 0 {
		return nil
	}

	resultChan := make(chan SourceResult, len(sources))
	var wg sync.WaitGroup

	for _, source := range sources {
		wg.Add(1)
		go func(s Collector) {
			defer wg.Done()

			start := time.Now()
			result, err := search(s)
			resultChan <- SourceResult{
				Source:   s.SourceType(),
				Result:   result,
				Error:    err,
				Duration: time.Since(start),
			}
		}(source)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]SourceResult, 0, len(sources))
	for result := range resultChan {
		results = append(results, result)
	}

	return results
}
