package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scholarnet/paper-network-service/internal/domain"
	"github.com/scholarnet/paper-network-service/internal/sources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultWindowCalls and DefaultWindow encode the arXiv API guideline
	// of no more than one request every three seconds.
	DefaultWindowCalls = 1

	// DefaultWindow is the rate limit window paired with DefaultWindowCalls.
	DefaultWindow = 3 * time.Second

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 100

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from the full URL, dropping any version
// suffix. Matches patterns like "http://arxiv.org/abs/2301.12345v1" or
// "http://arxiv.org/abs/hep-th/9901001v1".
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// WindowCalls is the number of requests allowed per Window.
	WindowCalls int

	// Window is the rate limit window.
	Window time.Duration

	// MaxResults is the maximum results to return per search request.
	MaxResults int

	// ContactEmail is included in the User-Agent header so arXiv operators
	// can reach out about problematic traffic.
	ContactEmail string

	// Enabled indicates whether this source is enabled for searches.
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

// userAgent builds the User-Agent header, appending the contact email when set.
func (c *Config) userAgent() string {
	if c.ContactEmail == "" {
		return "PaperNetworkService/1.0"
	}
	return fmt.Sprintf("PaperNetworkService/1.0 (mailto:%s)", c.ContactEmail)
}

// Client implements the sources.Collector interface for arXiv.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Ensure Client implements the Collector interface.
var _ sources.Collector = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		Limiter:   sources.NewWindowLimiter(cfg.WindowCalls, cfg.Window),
		UserAgent: cfg.userAgent(),
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// SearchByAuthor queries arXiv for papers by the named author using the
// au: field prefix with the name quoted as a phrase.
func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) (*sources.SearchResult, error) {
	query := fmt.Sprintf("au:%q", author)
	return c.search(ctx, query, limit)
}

// SearchByKeywords queries arXiv for papers matching all keywords. Each
// keyword is quoted as a phrase and the phrases are joined with AND.
func (c *Client) SearchByKeywords(ctx context.Context, keywords []string, limit int) (*sources.SearchResult, error) {
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		quoted = append(quoted, strconv.Quote(kw))
	}
	if len(quoted) == 0 {
		return nil, domain.NewValidationError("keywords", "at least one keyword is required")
	}
	return c.search(ctx, strings.Join(quoted, " AND "), limit)
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// search executes a query against the arXiv API and parses the Atom feed.
func (c *Client) search(ctx context.Context, searchQuery string, limit int) (*sources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(searchQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			string(body),
			nil,
		)
	}

	// Parse the Atom XML response (limit body to 10MB).
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		paper := c.entryToPaper(&feed.Entries[i])
		if paper != nil {
			papers = append(papers, paper)
		}
	}

	return &sources.SearchResult{
		Papers:         papers,
		TotalResults:   feed.TotalResults,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(searchQuery string, limit int) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	if limit <= 0 || limit > c.config.MaxResults {
		limit = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("search_query", searchQuery)
	query.Set("max_results", strconv.Itoa(limit))

	// Sort by submission date (newest first)
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// entryToPaper converts an arXiv Atom entry to a domain Paper.
func (c *Client) entryToPaper(entry *Entry) *domain.Paper {
	if entry == nil {
		return nil
	}

	// Extract the arXiv ID from the entry URL; entries without one are
	// not usable.
	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	// Parse publication date
	var pubDate *time.Time
	var pubYear int
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			pubDate = &t
			pubYear = t.Year()
		}
	}

	// Extract authors
	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	// Normalize title and abstract (arXiv includes leading/trailing whitespace and newlines)
	title := normalizeWhitespace(entry.Title)
	abstract := normalizeWhitespace(entry.Summary)

	// Extract PDF URL from links
	pdfURL := ""
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			pdfURL = link.Href
			break
		}
	}
	if pdfURL == "" {
		pdfURL = "http://arxiv.org/pdf/" + arxivID
	}

	// Subject categories double as keywords
	categories := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			categories = append(categories, cat.Term)
		}
	}

	rawMetadata := map[string]interface{}{
		"entry_id": entry.ID,
	}
	if entry.Comment != "" {
		rawMetadata["comment"] = strings.TrimSpace(entry.Comment)
	}
	if entry.PrimaryCategory.Term != "" {
		rawMetadata["primary_category"] = entry.PrimaryCategory.Term
	}

	return &domain.Paper{
		Title:           title,
		Abstract:        abstract,
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		ArXivID:         arxivID,
		DOI:             strings.TrimSpace(entry.DOI),
		Journal:         strings.TrimSpace(entry.JournalRef),
		Keywords:        categories,
		PDFURL:          pdfURL,
		Source:          domain.SourceTypeArXiv,
		RawMetadata:     rawMetadata,
	}
}

// extractArXivID extracts the arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" -> "2301.12345"
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses multiple whitespace characters.
func normalizeWhitespace(s string) string {
	s = strings.TrimSpace(s)
	// Collapse multiple whitespace (including newlines) into single spaces
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
