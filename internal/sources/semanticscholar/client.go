package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scholarnet/paper-network-service/internal/domain"
	"github.com/scholarnet/paper-network-service/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultWindowCalls and DefaultWindow encode the unauthenticated quota
	// of 100 requests per 5 minutes. With an API key, this can be increased.
	DefaultWindowCalls = 100

	// DefaultWindow is the rate limit window paired with DefaultWindowCalls.
	DefaultWindow = 5 * time.Minute

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum number of results per request.
	DefaultMaxResults = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,title,abstract,year,publicationDate,journal,authors,citationCount,openAccessPdf"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// WindowCalls is the number of requests allowed per Window.
	// Defaults to DefaultWindowCalls if zero.
	WindowCalls int

	// Window is the rate limit window.
	// Defaults to DefaultWindow if zero.
	Window time.Duration

	// MaxResults is the maximum number of results to return per search.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.WindowCalls == 0 {
		c.WindowCalls = DefaultWindowCalls
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the sources.Collector interface for Semantic Scholar.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
}

// Compile-time check that Client implements sources.Collector.
var _ sources.Collector = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	// Create HTTP client if not provided
	if httpClient == nil {
		httpClient = sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			Limiter:      sources.NewWindowLimiter(cfg.WindowCalls, cfg.Window),
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// SearchByAuthor finds papers written by the named author. The author is
// resolved through the author search endpoint first and the best match's
// papers are then retrieved. An author with no match yields an empty result
// rather than an error.
func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) (*sources.SearchResult, error) {
	start := time.Now()

	authorID, err := c.resolveAuthorID(ctx, author)
	if err != nil {
		return nil, err
	}
	if authorID == "" {
		return &sources.SearchResult{
			Papers:         []*domain.Paper{},
			Source:         domain.SourceTypeSemanticScholar,
			SearchDuration: time.Since(start),
		}, nil
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	papersURL := baseURL.JoinPath("author", authorID, "papers")
	q := papersURL.Query()
	q.Set("fields", paperFields)
	q.Set("limit", strconv.Itoa(c.clampLimit(limit)))
	papersURL.RawQuery = q.Encode()

	resp, err := c.getJSON(ctx, papersURL.String())
	if err != nil {
		return nil, err
	}

	return c.searchResult(resp, start), nil
}

// SearchByKeywords finds papers matching the given keywords using the
// relevance-ranked paper search endpoint. Keywords are joined with spaces.
func (c *Client) SearchByKeywords(ctx context.Context, keywords []string, limit int) (*sources.SearchResult, error) {
	start := time.Now()

	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		terms = append(terms, kw)
	}
	if len(terms) == 0 {
		return nil, domain.NewValidationError("keywords", "at least one keyword is required")
	}

	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")
	q := searchURL.Query()
	q.Set("query", strings.Join(terms, " "))
	q.Set("fields", paperFields)
	q.Set("limit", strconv.Itoa(c.clampLimit(limit)))
	searchURL.RawQuery = q.Encode()

	resp, err := c.getJSON(ctx, searchURL.String())
	if err != nil {
		return nil, err
	}

	return c.searchResult(resp, start), nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// resolveAuthorID looks up the Semantic Scholar author ID for a name.
// Returns an empty string when no author matches.
func (c *Client) resolveAuthorID(ctx context.Context, author string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("author", "search")
	q := searchURL.Query()
	q.Set("query", author)
	q.Set("limit", "1")
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return "", err
	}

	var authorResp AuthorSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&authorResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(authorResp.Data) == 0 {
		return "", nil
	}
	return authorResp.Data[0].AuthorID, nil
}

// getJSON executes a GET request and decodes the paper list response.
func (c *Client) getJSON(ctx context.Context, requestURL string) (*PapersResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var papersResp PapersResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&papersResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &papersResp, nil
}

// searchResult converts an API response into a SearchResult.
func (c *Client) searchResult(resp *PapersResponse, start time.Time) *sources.SearchResult {
	papers := c.convertToPapers(resp.Data)

	// The author papers endpoint does not report a total.
	total := resp.Total
	if total == 0 {
		total = len(papers)
	}

	return &sources.SearchResult{
		Papers:         papers,
		TotalResults:   total,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}
}

// clampLimit bounds a requested limit to the configured maximum.
func (c *Client) clampLimit(limit int) int {
	if limit <= 0 || limit > c.config.MaxResults {
		return c.config.MaxResults
	}
	return limit
}

// handleErrorResponse checks for API errors and returns appropriate error types.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read the error body (limit to 1MB to prevent resource exhaustion)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	// Try to parse as JSON error
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	// Return raw body as error message
	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// convertToPapers converts a slice of API paper results to domain papers.
func (c *Client) convertToPapers(results []PaperResult) []*domain.Paper {
	papers := make([]*domain.Paper, 0, len(results))
	for _, result := range results {
		papers = append(papers, c.convertToPaper(result))
	}
	return papers
}

// convertToPaper converts a single API paper result to a domain paper.
func (c *Client) convertToPaper(result PaperResult) *domain.Paper {
	paper := &domain.Paper{
		Title:           result.Title,
		Abstract:        result.Abstract,
		PublicationYear: result.Year,
		CitationCount:   result.CitationCount,
		Source:          domain.SourceTypeSemanticScholar,
		RawMetadata: map[string]interface{}{
			"semantic_scholar_id": result.PaperID,
		},
	}

	// Parse publication date; fall back to January 1 of the publication
	// year when only a year is known.
	if result.PublicationDate != "" {
		if pubDate, err := time.Parse("2006-01-02", result.PublicationDate); err == nil {
			paper.PublicationDate = &pubDate
		}
	}
	if paper.PublicationDate == nil && result.Year > 0 {
		yearStart := time.Date(result.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		paper.PublicationDate = &yearStart
	}

	// Set journal information
	if result.Journal != nil {
		paper.Journal = result.Journal.Name
		paper.Volume = result.Journal.Volume
		paper.Pages = result.Journal.Pages
	}

	// Set PDF URL
	if result.OpenAccessPDF != nil && result.OpenAccessPDF.URL != "" {
		paper.PDFURL = result.OpenAccessPDF.URL
	}

	// Map external identifiers
	if result.ExternalIDs != nil {
		paper.DOI = result.ExternalIDs.DOI
		paper.ArXivID = result.ExternalIDs.ArXiv
		paper.PubMedID = result.ExternalIDs.PubMed
	}

	// Convert authors
	paper.Authors = convertAuthors(result.Authors)

	return paper
}

// convertAuthors converts API authors to domain authors.
func convertAuthors(apiAuthors []Author) []domain.Author {
	authors := make([]domain.Author, 0, len(apiAuthors))
	for _, a := range apiAuthors {
		authors = append(authors, domain.Author{
			Name: a.Name,
		})
	}
	return authors
}
