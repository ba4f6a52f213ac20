// Package normalize prepares papers collected from external sources for
// deduplication and storage. Source clients hand papers over as the APIs
// return them; normalization makes titles, identifiers, and author lists
// comparable across sources.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/scholarnet/paper-network-service/internal/dedup"
	"github.com/scholarnet/paper-network-service/internal/domain"
)

// arxivVersionRegex matches a trailing version suffix on an arXiv ID,
// e.g. "2301.12345v2" or "hep-th/9901001v1".
var arxivVersionRegex = regexp.MustCompile(`v\d+$`)

// doiPrefixes are resolver prefixes commonly attached to DOI values by APIs.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// Paper normalizes a collected paper in place.
//
// Titles and abstracts have surrounding whitespace trimmed and internal
// whitespace collapsed. Identifiers are canonicalized: arXiv IDs lose their
// version suffix and DOIs are lowercased with resolver prefixes stripped.
// Authors with empty names are dropped and duplicate author names within the
// paper are collapsed to the first occurrence. A paper without a publication
// date is stamped with the current time so its deduplication key is complete.
func Paper(p *domain.Paper) {
	if p == nil {
		return
	}

	p.Title = Whitespace(p.Title)
	p.Abstract = Whitespace(p.Abstract)
	p.Journal = Whitespace(p.Journal)
	p.Volume = strings.TrimSpace(p.Volume)
	p.Pages = strings.TrimSpace(p.Pages)

	p.ArXivID = ArXivID(p.ArXivID)
	p.PubMedID = strings.TrimSpace(p.PubMedID)
	p.DOI = DOI(p.DOI)

	p.Authors = AuthorList(p.Authors)
	p.Keywords = KeywordList(p.Keywords)

	if p.PublicationDate == nil {
		now := time.Now().UTC()
		p.PublicationDate = &now
	}
	if p.PublicationYear == 0 {
		p.PublicationYear = p.PublicationDate.Year()
	}
}

// Whitespace trims the string and collapses runs of whitespace, including
// newlines, into single spaces.
func Whitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ArXivID canonicalizes an arXiv identifier by trimming whitespace and
// removing any trailing version suffix, so "2301.12345v2" and "2301.12345"
// refer to the same paper.
func ArXivID(id string) string {
	id = strings.TrimSpace(id)
	return arxivVersionRegex.ReplaceAllString(id, "")
}

// DOI canonicalizes a DOI by trimming whitespace, stripping any resolver
// prefix, and lowercasing. DOI names are case-insensitive, so lowercase is
// the stored form.
func DOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(doi, prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(doi)
}

// AuthorList trims author names, drops authors with empty names, and keeps
// only the first occurrence when the same name appears more than once on a
// paper. Name comparison uses the same normalization as cross-paper author
// matching, so "SMITH, John" and "John Smith" collapse to one entry.
func AuthorList(authors []domain.Author) []domain.Author {
	out := make([]domain.Author, 0, len(authors))
	seen := make(map[string]struct{}, len(authors))

	for _, a := range authors {
		a.Name = Whitespace(a.Name)
		if a.Name == "" {
			continue
		}

		key := dedup.NormalizeName(a.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		a.Affiliation = Whitespace(a.Affiliation)
		a.Email = strings.TrimSpace(a.Email)
		a.ORCID = strings.TrimSpace(a.ORCID)
		out = append(out, a)
	}

	return out
}

// KeywordList trims keywords, drops empty values, and removes
// case-insensitive duplicates while preserving order and original casing.
func KeywordList(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}

	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))

	for _, k := range keywords {
		k = Whitespace(k)
		if k == "" {
			continue
		}

		key := strings.ToLower(k)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
