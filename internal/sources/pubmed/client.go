package pubmed

import (
	"context"
	"encoding/xml"
	"errors"
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
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	// With an API key, the limit increases to 10 requests/second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 100

	// MaxResultsLimit is the maximum results allowed per request by the API.
	MaxResultsLimit = 10000

	// toolName identifies this client to NCBI, sent as the tool parameter.
	toolName = "paper-network-service"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits.
	// Optional but recommended for production use.
	APIKey string

	// Email is the contact email sent with every request, as requested
	// by the NCBI usage policy.
	Email string

	// Timeout is the request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit (3 req/sec) if zero.
	// With an API key, you can increase this to 10 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int

	// MaxResults is the default maximum results per search.
	// Defaults to DefaultMaxResults if zero.
	MaxResults int

	// MaintenanceMode short-circuits searches with empty results instead
	// of calling NCBI. Collection proceeds from the remaining sources.
	MaintenanceMode bool

	// Enabled indicates whether this source is enabled.
	// When false, searches return errors.
	Enabled bool
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// userAgent builds the User-Agent header, appending the contact email when set.
func (c *Config) userAgent() string {
	if c.Email == "" {
		return "PaperNetworkService/1.0"
	}
	return fmt.Sprintf("PaperNetworkService/1.0 (mailto:%s)", c.Email)
}

// Client implements the sources.Collector interface for PubMed.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements Collector.
var _ sources.Collector = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpCfg := sources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: cfg.userAgent(),
	}

	return &Client{
		config:     cfg,
		httpClient: sources.NewHTTPClient(httpCfg),
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// SearchByAuthor queries PubMed for papers by the named author using the
// [Author] field tag, most recent first.
func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) (*sources.SearchResult, error) {
	term := fmt.Sprintf("%s[Author]", author)
	return c.search(ctx, term, limit)
}

// SearchByKeywords queries PubMed for papers matching all keywords. Each
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
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// InMaintenance reports whether searches are currently short-circuited.
func (c *Client) InMaintenance() bool {
	return c.config.MaintenanceMode
}

// search performs the two-step E-utilities query:
// 1. esearch.fcgi - retrieves PMIDs matching the term
// 2. efetch.fcgi - retrieves full article metadata for the PMIDs
func (c *Client) search(ctx context.Context, term string, limit int) (*sources.SearchResult, error) {
	if !c.config.Enabled {
		return nil, errors.New("pubmed source is disabled")
	}

	startTime := time.Now()

	// Skip the network round trip while the source is in maintenance.
	if c.config.MaintenanceMode {
		return &sources.SearchResult{
			Papers:         []*domain.Paper{},
			TotalResults:   0,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	// Step 1: Search for PMIDs
	searchResult, err := c.esearch(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("esearch failed: %w", err)
	}

	// Phrases not found are empty results, not errors
	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return &sources.SearchResult{
			Papers:         []*domain.Paper{},
			TotalResults:   0,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	// If no results, return early
	if len(searchResult.IDList.IDs) == 0 {
		return &sources.SearchResult{
			Papers:         []*domain.Paper{},
			TotalResults:   searchResult.Count,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(startTime),
		}, nil
	}

	// Step 2: Fetch full article metadata
	articles, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch failed: %w", err)
	}

	// Convert articles to domain papers
	papers := make([]*domain.Paper, 0, len(articles.Articles))
	for _, article := range articles.Articles {
		papers = append(papers, c.articleToPaper(article))
	}

	return &sources.SearchResult{
		Papers:         papers,
		TotalResults:   searchResult.Count,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(startTime),
	}, nil
}

// esearch performs a search query and returns matching PMIDs, newest first.
func (c *Client) esearch(ctx context.Context, term string, limit int) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", term)
	q.Set("retmode", "xml")
	q.Set("usehistory", "n")
	q.Set("sort", "date")

	// Set result limits
	if limit <= 0 {
		limit = c.config.MaxResults
	}
	if limit > MaxResultsLimit {
		limit = MaxResultsLimit
	}
	q.Set("retmax", strconv.Itoa(limit))

	c.setIdentification(q)
	u.RawQuery = q.Encode()

	// Create and execute request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse XML response
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")

	c.setIdentification(q)
	u.RawQuery = q.Encode()

	// Create and execute request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse XML response
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result PubmedArticleSet
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	return &result, nil
}

// setIdentification adds the email, tool, and API key parameters that
// identify this client to NCBI.
func (c *Client) setIdentification(q url.Values) {
	if c.config.Email != "" {
		q.Set("email", c.config.Email)
		q.Set("tool", toolName)
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}
}

// articleToPaper converts a PubmedArticle to a domain.Paper.
func (c *Client) articleToPaper(article PubmedArticle) *domain.Paper {
	citation := article.MedlineCitation
	pubmedData := article.PubmedData

	// Extract DOI from ELocationID or ArticleIdList
	doi := extractDOI(citation.Article, pubmedData)

	// Extract publication date and year
	pubDate, pubYear := extractPublicationDate(citation.Article)

	// Extract abstract (concatenate multiple sections)
	abstract := extractAbstract(citation.Article.Abstract)

	// Extract authors
	authors := extractAuthors(citation.Article.AuthorList)

	// Extract journal information
	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	volume := citation.Article.Journal.JournalIssue.Volume
	issue := citation.Article.Journal.JournalIssue.Issue
	pages := extractPages(citation.Article.Pagination)

	// Author-provided keywords
	var keywords []string
	if citation.KeywordList != nil {
		keywords = make([]string, 0, len(citation.KeywordList.Keywords))
		for _, kw := range citation.KeywordList.Keywords {
			keywords = append(keywords, kw.Value)
		}
	}

	// Build raw metadata
	rawMetadata := map[string]interface{}{
		"pmid": citation.PMID.Value,
	}
	if issue != "" {
		rawMetadata["issue"] = issue
	}
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "pmc" {
			rawMetadata["pmcid"] = aid.Value
			break
		}
	}

	// Add MeSH terms if available
	if citation.MeshHeadingList != nil {
		meshTerms := make([]string, 0, len(citation.MeshHeadingList.MeshHeadings))
		for _, mh := range citation.MeshHeadingList.MeshHeadings {
			meshTerms = append(meshTerms, mh.DescriptorName.Value)
		}
		rawMetadata["mesh_terms"] = meshTerms
	}

	return &domain.Paper{
		Title:           citation.Article.ArticleTitle,
		Abstract:        abstract,
		Authors:         authors,
		PublicationDate: pubDate,
		PublicationYear: pubYear,
		PubMedID:        citation.PMID.Value,
		DOI:             doi,
		Journal:         journal,
		Volume:          volume,
		Pages:           pages,
		Keywords:        keywords,
		Source:          domain.SourceTypePubMed,
		RawMetadata:     rawMetadata,
	}
}

// extractDOI extracts the DOI from article metadata.
// It checks ELocationID first (more reliable), then ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	// Check ELocationID first
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}

	// Check ArticleIdList
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return aid.Value
		}
	}

	return ""
}

// extractPublicationDate extracts the publication date from the article.
// Returns the parsed date and year. Uses ArticleDate if available, otherwise PubDate.
func extractPublicationDate(article Article) (*time.Time, int) {
	// Try ArticleDate first (more precise)
	for _, ad := range article.ArticleDate {
		if ad.DateType == "epublish" || ad.DateType == "Electronic" || ad.DateType == "" {
			if t := parseDate(ad.Year, ad.Month, ad.Day); t != nil {
				return t, t.Year()
			}
		}
	}

	// Fall back to PubDate from JournalIssue
	pubDate := article.Journal.JournalIssue.PubDate

	// Handle MedlineDate format (e.g., "2020 Jan-Feb")
	if pubDate.MedlineDate != "" {
		year := extractYearFromMedlineDate(pubDate.MedlineDate)
		if year > 0 {
			t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			return &t, year
		}
	}

	// Standard date format
	if pubDate.Year != "" {
		t := parseDate(pubDate.Year, pubDate.Month, pubDate.Day)
		if t != nil {
			return t, t.Year()
		}
		// If we have a year but couldn't parse a full date, return year only
		if year, err := strconv.Atoi(pubDate.Year); err == nil {
			t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			return &t, year
		}
	}

	return nil, 0
}

// parseDate parses year, month, day strings into a time.Time.
func parseDate(year, month, day string) *time.Time {
	if year == "" {
		return nil
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}

	m := parseMonth(month)
	d := 1
	if day != "" {
		if parsed, err := strconv.Atoi(day); err == nil {
			d = parsed
		}
	}

	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// monthNames maps lowercase month name strings (abbreviation and full) to time.Month.
// This is a package-level variable to avoid re-allocating on every call to parseMonth.
var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// parseMonth parses a month string (numeric or name) into time.Month.
func parseMonth(month string) time.Month {
	if month == "" {
		return time.January
	}

	// Try numeric
	if m, err := strconv.Atoi(month); err == nil && m >= 1 && m <= 12 {
		return time.Month(m)
	}

	if m, ok := monthNames[strings.ToLower(month)]; ok {
		return m
	}

	return time.January
}

// extractYearFromMedlineDate extracts the year from a MedlineDate string.
func extractYearFromMedlineDate(medlineDate string) int {
	// MedlineDate can be "2020 Jan-Feb", "2020 Spring", "2020-2021", etc.
	parts := strings.Fields(medlineDate)
	if len(parts) > 0 {
		// Try the first part as a year
		yearStr := strings.Split(parts[0], "-")[0]
		if year, err := strconv.Atoi(yearStr); err == nil {
			return year
		}
	}
	return 0
}

// extractAbstract concatenates multiple abstract sections into a single string.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	// If only one section without label, return it directly
	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		return strings.TrimSpace(abstract.AbstractTexts[0].Value)
	}

	// Concatenate multiple sections with labels
	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors to domain authors.
func extractAuthors(authorList *AuthorList) []domain.Author {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]domain.Author, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		// Skip invalid authors
		if a.ValidYN == "N" {
			continue
		}

		// Build name
		var name string
		if a.CollectiveName != "" {
			name = a.CollectiveName
		} else {
			// Combine ForeName and LastName
			nameParts := make([]string, 0, 2)
			if a.ForeName != "" {
				nameParts = append(nameParts, a.ForeName)
			}
			if a.LastName != "" {
				nameParts = append(nameParts, a.LastName)
			}
			name = strings.Join(nameParts, " ")
		}

		if name == "" {
			continue
		}

		// Extract ORCID if available
		var orcid string
		for _, id := range a.Identifiers {
			if strings.ToUpper(id.Source) == "ORCID" {
				orcid = id.Value
				break
			}
		}

		// Extract first affiliation
		var affiliation string
		if len(a.AffiliationInfo) > 0 {
			affiliation = a.AffiliationInfo[0].Affiliation
		}

		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: affiliation,
			ORCID:       orcid,
		})
	}

	return authors
}

// extractPages formats the page information.
func extractPages(pagination *Pagination) string {
	if pagination == nil {
		return ""
	}

	if pagination.MedlinePgn != "" {
		return pagination.MedlinePgn
	}

	if pagination.StartPage != "" {
		if pagination.EndPage != "" && pagination.EndPage != pagination.StartPage {
			return pagination.StartPage + "-" + pagination.EndPage
		}
		return pagination.StartPage
	}

	return ""
}
