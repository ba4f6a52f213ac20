package sources

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// mockCollector is a mock implementation of Collector for testing.
type mockCollector struct {
	sourceType domain.SourceType
	name       string
	enabled    bool

	// authorFunc allows customizing SearchByAuthor behavior in tests
	authorFunc func(ctx context.Context, author string, limit int) (*SearchResult, error)

	// keywordsFunc allows customizing SearchByKeywords behavior in tests
	keywordsFunc func(ctx context.Context, keywords []string, limit int) (*SearchResult, error)

	// Track calls for verification
	authorCalls   atomic.Int32
	keywordsCalls atomic.Int32
}

func newMockCollector(sourceType domain.SourceType, name string, enabled bool) *mockCollector {
	return &mockCollector{
		sourceType: sourceType,
		name:       name,
		enabled:    enabled,
	}
}

func (m *mockCollector) SearchByAuthor(ctx context.Context, author string, limit int) (*SearchResult, error) {
	m.authorCalls.Add(1)
	if m.authorFunc != nil {
		return m.authorFunc(ctx, author, limit)
	}
	return &SearchResult{
		Papers: []*domain.Paper{},
		Source: m.sourceType,
	}, nil
}

func (m *mockCollector) SearchByKeywords(ctx context.Context, keywords []string, limit int) (*SearchResult, error) {
	m.keywordsCalls.Add(1)
	if m.keywordsFunc != nil {
		return m.keywordsFunc(ctx, keywords, limit)
	}
	return &SearchResult{
		Papers: []*domain.Paper{},
		Source: m.sourceType,
	}, nil
}

func (m *mockCollector) SourceType() domain.SourceType {
	return m.sourceType
}

func (m *mockCollector) Name() string {
	return m.name
}

func (m *mockCollector) IsEnabled() bool {
	return m.enabled
}

func (m *mockCollector) AuthorCallCount() int {
	return int(m.authorCalls.Load())
}

func TestNewRegistry(t *testing.T) {
	t.Run("creates empty registry", func(t *testing.T) {
		registry := NewRegistry()

		require.NotNil(t, registry)
		require.NotNil(t, registry.sources)
		assert.Empty(t, registry.sources)
	})

	t.Run("registry is ready to use", func(t *testing.T) {
		registry := NewRegistry()

		// Should be able to get sources (returns nil for non-existent)
		source := registry.Get(domain.SourceTypeArXiv)
		assert.Nil(t, source)

		// Should be able to list sources (returns empty)
		sources := registry.AllSources()
		assert.Empty(t, sources)
	})
}

func TestRegistry_Register(t *testing.T) {
	t.Run("registers single source", func(t *testing.T) {
		registry := NewRegistry()
		source := newMockCollector(domain.SourceTypeArXiv, "arXiv", true)

		registry.Register(source)

		retrieved := registry.Get(domain.SourceTypeArXiv)
		require.NotNil(t, retrieved)
		assert.Equal(t, source, retrieved)
	})

	t.Run("registers multiple sources", func(t *testing.T) {
		registry := NewRegistry()

		sources := []*mockCollector{
			newMockCollector(domain.SourceTypeArXiv, "arXiv", true),
			newMockCollector(domain.SourceTypePubMed, "PubMed", true),
			newMockCollector(domain.SourceTypeSemanticScholar, "Semantic Scholar", true),
		}

		for _, s := range sources {
			registry.Register(s)
		}

		assert.Len(t, registry.AllSources(), 3)
		for _, s := range sources {
			retrieved := registry.Get(s.SourceType())
			require.NotNil(t, retrieved)
			assert.Equal(t, s, retrieved)
		}
	})

	t.Run("replaces existing source with same type", func(t *testing.T) {
		registry := NewRegistry()

		original := newMockCollector(domain.SourceTypeArXiv, "Original", true)
		replacement := newMockCollector(domain.SourceTypeArXiv, "Replacement", true)

		registry.Register(original)
		registry.Register(replacement)

		retrieved := registry.Get(domain.SourceTypeArXiv)
		require.NotNil(t, retrieved)
		assert.Equal(t, "Replacement", retrieved.Name())
		assert.Len(t, registry.AllSources(), 1)
	})

	t.Run("concurrent registration is safe", func(t *testing.T) {
		registry := NewRegistry()
		var wg sync.WaitGroup

		sourceTypes := domain.AllSourceTypes()

		// Register sources concurrently
		for i := 0; i < 10; i++ {
			for _, st := range sourceTypes {
				wg.Add(1)
				go func(sourceType domain.SourceType) {
					defer wg.Done()
					registry.Register(newMockCollector(sourceType, string(sourceType), true))
				}(st)
			}
		}

		wg.Wait()

		// One registered source per type
		assert.Len(t, registry.AllSources(), len(sourceTypes))
	})
}

func TestRegistry_Get(t *testing.T) {
	t.Run("returns source when found", func(t *testing.T) {
		registry := NewRegistry()
		source := newMockCollector(domain.SourceTypeSemanticScholar, "Semantic Scholar", true)
		registry.Register(source)

		retrieved := registry.Get(domain.SourceTypeSemanticScholar)

		require.NotNil(t, retrieved)
		assert.Equal(t, domain.SourceTypeSemanticScholar, retrieved.SourceType())
		assert.Equal(t, "Semantic Scholar", retrieved.Name())
	})

	t.Run("returns nil when not found", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(newMockCollector(domain.SourceTypePubMed, "PubMed", true))

		retrieved := registry.Get(domain.SourceTypeArXiv)

		assert.Nil(t, retrieved)
	})

	t.Run("concurrent get is safe", func(t *testing.T) {
		registry := NewRegistry()
		source := newMockCollector(domain.SourceTypeArXiv, "arXiv", true)
		registry.Register(source)

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				retrieved := registry.Get(domain.SourceTypeArXiv)
				assert.NotNil(t, retrieved)
			}()
		}
		wg.Wait()
	})
}

func TestRegistry_EnabledSources(t *testing.T) {
	t.Run("returns empty slice for empty registry", func(t *testing.T) {
		registry := NewRegistry()

		sources := registry.EnabledSources()

		assert.NotNil(t, sources)
		assert.Empty(t, sources)
	})

	t.Run("returns only enabled sources", func(t *testing.T) {
		registry := NewRegistry()

		// Register mix of enabled and disabled sources
		registry.Register(newMockCollector(domain.SourceTypeArXiv, "arXiv", true))
		registry.Register(newMockCollector(domain.SourceTypePubMed, "PubMed", false))
		registry.Register(newMockCollector(domain.SourceTypeSemanticScholar, "Semantic Scholar", true))

		sources := registry.EnabledSources()

		assert.Len(t, sources, 2)
		for _, s := range sources {
			assert.True(t, s.IsEnabled(), "source %s should be enabled", s.Name())
		}

		sourceTypes := make(map[domain.SourceType]bool)
		for _, s := range sources {
			sourceTypes[s.SourceType()] = true
		}
		assert.True(t, sourceTypes[domain.SourceTypeArXiv])
		assert.True(t, sourceTypes[domain.SourceTypeSemanticScholar])
		assert.False(t, sourceTypes[domain.SourceTypePubMed])
	})

	t.Run("returns empty when all sources disabled", func(t *testing.T) {
		registry := NewRegistry()

		registry.Register(newMockCollector(domain.SourceTypeArXiv, "arXiv", false))
		registry.Register(newMockCollector(domain.SourceTypePubMed, "PubMed", false))

		sources := registry.EnabledSources()

		assert.Empty(t, sources)
	})

	t.Run("snapshot is independent of registry modifications", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(newMockCollector(domain.SourceTypeArXiv, "arXiv", true))

		sources := registry.AllSources()
		assert.Len(t, sources, 1)

		registry.Register(newMockCollector(domain.SourceTypePubMed, "PubMed", true))

		// Original snapshot should be unchanged
		assert.Len(t, sources, 1)
		assert.Len(t, registry.AllSources(), 2)
	})
}

func TestRegistry_SearchAllByAuthor(t *testing.T) {
	t.Run("searches all enabled sources concurrently", func(t *testing.T) {
		registry := NewRegistry()

		sources := []*mockCollector{
			newMockCollector(domain.SourceTypeArXiv, "arXiv", true),
			newMockCollector(domain.SourceTypePubMed, "PubMed", true),
			newMockCollector(domain.SourceTypeSemanticScholar, "Semantic Scholar", true),
		}

		for _, s := range sources {
			s := s
			s.authorFunc = func(ctx context.Context, author string, limit int) (*SearchResult, error) {
				return &SearchResult{
					Papers:       []*domain.Paper{{Title: "Test Paper"}},
					TotalResults: 1,
					Source:       s.sourceType,
				}, nil
			}
			registry.Register(s)
		}

		results := registry.SearchAllByAuthor(context.Background(), "Jane Doe", 50)

		assert.Len(t, results, 3)
		for _, s := range sources {
			assert.Equal(t, 1, s.AuthorCallCount(), "source %s should be searched once", s.Name())
		}
	})

	t.Run("skips disabled sources", func(t *testing.T) {
		registry := NewRegistry()

		enabled := newMockCollector(domain.SourceTypeArXiv, "arXiv", true)
		disabled := newMockCollector(domain.SourceTypePubMed, "PubMed", false)

		registry.Register(enabled)
		registry.Register(disabled)

		results := registry.SearchAllByAuthor(context.Background(), "Jane Doe", 50)

		assert.Len(t, results, 1)
		assert.Equal(t, 1, enabled.AuthorCallCount())
		assert.Equal(t, 0, disabled.AuthorCallCount())
	})

	t.Run("returns nil for empty registry", func(t *testing.T) {
		registry := NewRegistry()

		results := registry.SearchAllByAuthor(context.Background(), "Jane Doe", 50)

		assert.Nil(t, results)
	})

	t.Run("includes error results without filtering", func(t *testing.T) {
		registry := NewRegistry()

		successSource := newMockCollector(domain.SourceTypeArXiv, "arXiv", true)
		successSource.authorFunc = func(ctx context.Context, author string, limit int) (*SearchResult, error) {
			return &SearchResult{
				Papers:       []*domain.Paper{{Title: "Success Paper"}},
				TotalResults: 1,
				Source:       domain.SourceTypeArXiv,
			}, nil
		}

		errorSource := newMockCollector(domain.SourceTypeSemanticScholar, "Semantic Scholar", true)
		errorSource.authorFunc = func(ctx context.Context, author string, limit int) (*SearchResult, error) {
			return nil, errors.New("API error")
		}

		registry.Register(successSource)
		registry.Register(errorSource)

		results := registry.SearchAllByAuthor(context.Background(), "Jane Doe", 50)

		assert.Len(t, results, 2)

		var successResult, errorResult *SourceResult
		for i := range results {
			switch results[i].Source {
			case domain.SourceTypeArXiv:
				successResult = &results[i]
			case domain.SourceTypeSemanticScholar:
				errorResult = &results[i]
			}
		}

		require.NotNil(t, successResult)
		require.NotNil(t, errorResult)

		assert.NoError(t, successResult.Error)
		assert.NotNil(t, successResult.Result)

		assert.Error(t, errorResult.Error)
		assert.Nil(t, errorResult.Result)
	})

	t.Run("searches are concurrent", func(t *testing.T) {
		registry := NewRegistry()

		for _, st := range domain.AllSourceTypes() {
			sourceType := st
			source := newMockCollector(sourceType, string(sourceType), true)
			source.authorFunc = func(ctx context.Context, author string, limit int) (*SearchResult, error) {
				time.Sleep(50 * time.Millisecond)
				return &SearchResult{Source: sourceType}, nil
			}
			registry.Register(source)
		}

		start := time.Now()
		results := registry.SearchAllByAuthor(context.Background(), "Jane Doe", 50)
		elapsed := time.Since(start)

		assert.Len(t, results, 3)

		// If concurrent, total time should be close to one search duration
		// (50ms). If sequential, it would be ~150ms.
		assert.Less(t, elapsed, 150*time.Millisecond,
			"searches should run concurrently, took %v", elapsed)

		for _, r := range results {
			assert.GreaterOrEqual(t, r.Duration, 50*time.Millisecond,
				"source %s duration should cover its search", r.Source)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		registry := NewRegistry()

		source := newMockCollector(domain.SourceTypeArXiv, "arXiv", true)
		source.authorFunc = func(ctx context.Context, author string, limit int) (*SearchResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return &SearchResult{}, nil
			}
		}
		registry.Register(source)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		results := registry.SearchAllByAuthor(ctx, "Jane Doe", 50)
		elapsed := time.Since(start)

		assert.Len(t, results, 1)
		assert.Error(t, results[0].Error)
		assert.Greater(t, results[0].Duration, time.Duration(0),
			"failed searches should still report a duration")
		assert.Less(t, elapsed, 1*time.Second, "should respect context cancellation")
	})
}

func TestRegistry_SearchAllByKeywords(t *testing.T) {
	t.Run("passes keywords to every enabled source", func(t *testing.T) {
		registry := NewRegistry()

		var mu sync.Mutex
		received := make(map[domain.SourceType][]string)

		for _, st := range domain.AllSourceTypes() {
			sourceType := st
			source := newMockCollector(sourceType, string(sourceType), true)
			source.keywordsFunc = func(ctx context.Context, keywords []string, limit int) (*SearchResult, error) {
				mu.Lock()
				received[sourceType] = keywords
				mu.Unlock()
				return &SearchResult{Source: sourceType}, nil
			}
			registry.Register(source)
		}

		keywords := []string{"graph neural networks", "drug discovery"}
		results := registry.SearchAllByKeywords(context.Background(), keywords, 25)

		assert.Len(t, results, 3)
		for _, st := range domain.AllSourceTypes() {
			assert.Equal(t, keywords, received[st], "source %s should receive the keywords", st)
		}
	})

	t.Run("collects partial failures alongside successes", func(t *testing.T) {
		registry := NewRegistry()

		good := newMockCollector(domain.SourceTypeArXiv, "arXiv", true)
		bad := newMockCollector(domain.SourceTypePubMed, "PubMed", true)
		bad.keywordsFunc = func(ctx context.Context, keywords []string, limit int) (*SearchResult, error) {
			return nil, errors.New("esearch failed")
		}

		registry.Register(good)
		registry.Register(bad)

		results := registry.SearchAllByKeywords(context.Background(), []string{"crispr"}, 10)

		require.Len(t, results, 2)

		failures := 0
		for _, r := range results {
			if r.Error != nil {
				failures++
				assert.Equal(t, domain.SourceTypePubMed, r.Source)
			}
		}
		assert.Equal(t, 1, failures)
	})

	t.Run("handles concurrent search requests safely", func(t *testing.T) {
		registry := NewRegistry()

		registry.Register(newMockCollector(domain.SourceTypeArXiv, "arXiv", true))
		registry.Register(newMockCollector(domain.SourceTypeSemanticScholar, "Semantic Scholar", true))

		var wg sync.WaitGroup
		resultsChan := make(chan []SourceResult, 100)

		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resultsChan <- registry.SearchAllByKeywords(context.Background(), []string{"test"}, 10)
			}()
		}

		wg.Wait()
		close(resultsChan)

		count := 0
		for results := range resultsChan {
			assert.Len(t, results, 2)
			count++
		}
		assert.Equal(t, 100, count)
	})
}
