package semanticscholar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/paper-network-service/internal/domain"
	"github.com/scholarnet/paper-network-service/internal/sources"
)

// Compile-time check that Client implements sources.Collector.
var _ sources.Collector = (*Client)(nil)

func TestNewClient(t *testing.T) {
	t.Run("creates client with default values", func(t *testing.T) {
		client := NewClient(Config{Enabled: true}, nil)

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, DefaultWindowCalls, client.config.WindowCalls)
		assert.Equal(t, DefaultWindow, client.config.Window)
		assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
		assert.True(t, client.config.Enabled)
	})

	t.Run("creates client with custom config", func(t *testing.T) {
		cfg := Config{
			BaseURL:     "https://custom.api.com/v1",
			APIKey:      "test-api-key",
			Timeout:     60 * time.Second,
			WindowCalls: 500,
			Window:      time.Minute,
			MaxResults:  200,
			Enabled:     true,
		}
		client := NewClient(cfg, nil)

		require.NotNil(t, client)
		assert.Equal(t, cfg.BaseURL, client.config.BaseURL)
		assert.Equal(t, cfg.Timeout, client.config.Timeout)
		assert.Equal(t, cfg.WindowCalls, client.config.WindowCalls)
		assert.Equal(t, cfg.Window, client.config.Window)
		assert.Equal(t, cfg.MaxResults, client.config.MaxResults)
	})

	t.Run("uses provided HTTP client", func(t *testing.T) {
		httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
			RateLimit: 100,
			BurstSize: 50,
		})
		client := NewClient(Config{Enabled: true}, httpClient)

		require.NotNil(t, client)
		assert.Equal(t, httpClient, client.httpClient)
	})

	t.Run("implements Collector interface", func(t *testing.T) {
		client := NewClient(Config{Enabled: true}, nil)

		assert.Equal(t, domain.SourceTypeSemanticScholar, client.SourceType())
		assert.Equal(t, "Semantic Scholar", client.Name())
		assert.True(t, client.IsEnabled())
	})

	t.Run("disabled client returns false for IsEnabled", func(t *testing.T) {
		client := NewClient(Config{Enabled: false}, nil)
		assert.False(t, client.IsEnabled())
	})
}

func TestClient_SearchByAuthor(t *testing.T) {
	t.Run("resolves author and returns papers", func(t *testing.T) {
		papersResp := PapersResponse{
			Next: 0,
			Data: []PaperResult{
				{
					PaperID:         "abc123",
					Title:           "CRISPR Gene Editing: A Review",
					Abstract:        "This paper reviews CRISPR technology...",
					Year:            2023,
					PublicationDate: "2023-06-15",
					Journal: &Journal{
						Name:   "Nature Reviews Genetics",
						Volume: "24",
						Pages:  "100-120",
					},
					Authors: []Author{
						{AuthorID: "auth1", Name: "Jane Doe"},
						{AuthorID: "auth2", Name: "John Smith"},
					},
					CitationCount: 50,
					OpenAccessPDF: &OpenAccessPDF{
						URL:    "https://example.com/paper.pdf",
						Status: "GOLD",
					},
					ExternalIDs: &ExternalIDs{
						DOI:    "10.1038/s41576-023-00001-1",
						PubMed: "12345678",
					},
				},
				{
					PaperID:  "def456",
					Title:    "Gene Therapy Applications",
					Abstract: "Gene therapy has shown promise...",
					Year:     2022,
					Authors: []Author{
						{Name: "Jane Doe"},
					},
					CitationCount: 25,
				},
			},
		}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case strings.HasSuffix(r.URL.Path, "/author/search"):
				assert.Equal(t, "Jane Doe", r.URL.Query().Get("query"))
				assert.Equal(t, "1", r.URL.Query().Get("limit"))
				json.NewEncoder(w).Encode(AuthorSearchResponse{
					Total: 1,
					Data:  []AuthorResult{{AuthorID: "1741101", Name: "Jane Doe"}},
				})
			case strings.Contains(r.URL.Path, "/author/1741101/papers"):
				assert.Contains(t, r.URL.Query().Get("fields"), "externalIds")
				assert.Contains(t, r.URL.Query().Get("fields"), "publicationDate")
				assert.Equal(t, "10", r.URL.Query().Get("limit"))
				json.NewEncoder(w).Encode(papersResp)
			default:
				t.Errorf("unexpected request path: %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Enabled: true,
		}, nil)

		result, err := client.SearchByAuthor(context.Background(), "Jane Doe", 10)

		require.NoError(t, err)
		require.NotNil(t, result)
		// The author papers endpoint reports no total
		assert.Equal(t, 2, result.TotalResults)
		assert.Equal(t, domain.SourceTypeSemanticScholar, result.Source)
		assert.Greater(t, result.SearchDuration, time.Duration(0))

		require.Len(t, result.Papers, 2)

		// Verify first paper conversion
		paper1 := result.Papers[0]
		assert.Equal(t, "CRISPR Gene Editing: A Review", paper1.Title)
		assert.Equal(t, "This paper reviews CRISPR technology...", paper1.Abstract)
		assert.Equal(t, 2023, paper1.PublicationYear)
		require.NotNil(t, paper1.PublicationDate)
		assert.Equal(t, "2023-06-15", paper1.PublicationDate.Format("2006-01-02"))
		assert.Equal(t, "Nature Reviews Genetics", paper1.Journal)
		assert.Equal(t, "24", paper1.Volume)
		assert.Equal(t, "100-120", paper1.Pages)
		assert.Equal(t, 50, paper1.CitationCount)
		assert.Equal(t, "https://example.com/paper.pdf", paper1.PDFURL)
		assert.Equal(t, "10.1038/s41576-023-00001-1", paper1.DOI)
		assert.Equal(t, "12345678", paper1.PubMedID)
		assert.Equal(t, domain.SourceTypeSemanticScholar, paper1.Source)
		assert.Equal(t, "abc123", paper1.RawMetadata["semantic_scholar_id"])

		require.Len(t, paper1.Authors, 2)
		assert.Equal(t, "Jane Doe", paper1.Authors[0].Name)
		assert.Equal(t, "John Smith", paper1.Authors[1].Name)

		// Second paper only has a year, so the date falls back to January 1
		paper2 := result.Papers[1]
		assert.Equal(t, "Gene Therapy Applications", paper2.Title)
		require.NotNil(t, paper2.PublicationDate)
		assert.Equal(t, "2022-01-01", paper2.PublicationDate.Format("2006-01-02"))
	})

	t.Run("unknown author returns empty result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.True(t, strings.HasSuffix(r.URL.Path, "/author/search"))
			json.NewEncoder(w).Encode(AuthorSearchResponse{Total: 0, Data: []AuthorResult{}})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Enabled: true,
		}, nil)

		result, err := client.SearchByAuthor(context.Background(), "Nobody Nowhere", 10)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Empty(t, result.Papers)
		assert.Zero(t, result.TotalResults)
		assert.Equal(t, domain.SourceTypeSemanticScholar, result.Source)
	})

	t.Run("author search error is propagated", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{
				Error: "Invalid query parameter",
			})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Enabled: true,
		}, nil)

		result, err := client.SearchByAuthor(context.Background(), "Jane Doe", 10)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "Invalid query parameter")

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("search respects context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			json.NewEncoder(w).Encode(AuthorSearchResponse{Total: 0, Data: []AuthorResult{}})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Enabled: true,
		}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.SearchByAuthor(ctx, "Jane Doe", 10)

		require.Error(t, err)
	})
}

func TestClient_SearchByKeywords(t *testing.T) {
	t.Run("joins keywords with spaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Contains(t, r.URL.Path, "/paper/search")
			assert.Equal(t, "CRISPR gene editing", r.URL.Query().Get("query"))
			assert.Contains(t, r.URL.Query().Get("fields"), "paperId")
			assert.Contains(t, r.URL.Query().Get("fields"), "title")
			assert.Equal(t, "25", r.URL.Query().Get("limit"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(PapersResponse{
				Total: 150,
				Data: []PaperResult{
					{PaperID: "abc123", Title: "CRISPR Advances", Year: 2023},
				},
			})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Enabled: true,
		}, nil)

		result, err := client.SearchByKeywords(context.Background(), []string{"CRISPR", "gene editing"}, 25)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, 150, result.TotalResults)
		require.Len(t, result.Papers, 1)
		assert.Equal(t, "CRISPR Advances", result.Papers[0].Title)
	})

	t.Run("limit above max results is capped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			json.NewEncoder(w).Encode(PapersResponse{Total: 0, Data: []PaperResult{}})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Enabled: true,
		}, nil)

		_, err := client.SearchByKeywords(context.Background(), []string{"test"}, 5000)
		require.NoError(t, err)
	})

	t.Run("rejects empty keyword list", func(t *testing.T) {
		client := NewClient(Config{Enabled: true}, nil)

		result, err := client.SearchByKeywords(context.Background(), []string{"", "  "}, 10)

		require.Error(t, err)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("search handles API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Use 400 Bad Request which is not retried by the HTTP client
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{
				Message: "Invalid limit",
			})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Enabled: true,
		}, nil)

		result, err := client.SearchByKeywords(context.Background(), []string{"test"}, 10)

		require.Error(t, err)
		assert.Nil(t, result)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "Invalid limit")
	})
}

func TestClient_convertToPaper(t *testing.T) {
	client := NewClient(Config{Enabled: true}, nil)

	t.Run("converts paper with all fields", func(t *testing.T) {
		result := PaperResult{
			PaperID:         "paper123",
			Title:           "Full Paper",
			Abstract:        "Full abstract",
			Year:            2023,
			PublicationDate: "2023-06-15",
			Journal: &Journal{
				Name:   "Journal Name",
				Volume: "10",
				Pages:  "1-20",
			},
			Authors: []Author{
				{AuthorID: "a1", Name: "Author One"},
				{AuthorID: "a2", Name: "Author Two"},
			},
			CitationCount: 100,
			OpenAccessPDF: &OpenAccessPDF{
				URL:    "https://example.com/paper.pdf",
				Status: "GOLD",
			},
			ExternalIDs: &ExternalIDs{
				DOI:    "10.1234/paper",
				ArXiv:  "2306.12345",
				PubMed: "12345678",
			},
		}

		paper := client.convertToPaper(result)

		assert.Equal(t, "Full Paper", paper.Title)
		assert.Equal(t, "Full abstract", paper.Abstract)
		assert.Equal(t, 2023, paper.PublicationYear)
		require.NotNil(t, paper.PublicationDate)
		assert.Equal(t, "2023-06-15", paper.PublicationDate.Format("2006-01-02"))
		assert.Equal(t, "Journal Name", paper.Journal)
		assert.Equal(t, "10", paper.Volume)
		assert.Equal(t, "1-20", paper.Pages)
		assert.Equal(t, 100, paper.CitationCount)
		assert.Equal(t, "https://example.com/paper.pdf", paper.PDFURL)
		assert.Equal(t, "10.1234/paper", paper.DOI)
		assert.Equal(t, "2306.12345", paper.ArXivID)
		assert.Equal(t, "12345678", paper.PubMedID)

		require.Len(t, paper.Authors, 2)
		assert.Equal(t, "Author One", paper.Authors[0].Name)
		assert.Equal(t, "Author Two", paper.Authors[1].Name)
	})

	t.Run("handles paper with minimal fields", func(t *testing.T) {
		result := PaperResult{
			PaperID: "minimal123",
			Title:   "Minimal Paper",
		}

		paper := client.convertToPaper(result)

		assert.Equal(t, "Minimal Paper", paper.Title)
		assert.Empty(t, paper.Abstract)
		assert.Zero(t, paper.PublicationYear)
		assert.Nil(t, paper.PublicationDate)
		assert.Empty(t, paper.Journal)
		assert.Empty(t, paper.PDFURL)
		assert.Empty(t, paper.Authors)
		assert.Equal(t, "minimal123", paper.RawMetadata["semantic_scholar_id"])
	})

	t.Run("year without date becomes January 1", func(t *testing.T) {
		result := PaperResult{
			PaperID: "paper123",
			Title:   "Year Only",
			Year:    2021,
		}

		paper := client.convertToPaper(result)

		require.NotNil(t, paper.PublicationDate)
		assert.Equal(t, "2021-01-01", paper.PublicationDate.Format("2006-01-02"))
		assert.Equal(t, 2021, paper.PublicationYear)
	})

	t.Run("invalid publication date falls back to year", func(t *testing.T) {
		result := PaperResult{
			PaperID:         "paper123",
			Title:           "Paper with bad date",
			PublicationDate: "invalid-date",
			Year:            2023,
		}

		paper := client.convertToPaper(result)

		require.NotNil(t, paper.PublicationDate)
		assert.Equal(t, "2023-01-01", paper.PublicationDate.Format("2006-01-02"))
	})
}
