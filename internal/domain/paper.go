package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Author represents a paper author. The name is the identity key: two authors
// with the same name are treated as the same person across papers and sources.
type Author struct {
	ID          uuid.UUID `json:"id,omitempty"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Affiliation string    `json:"affiliation,omitempty"`
	ORCID       string    `json:"orcid,omitempty"`
	CreatedAt   time.Time `json:"-"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)

	if a.Affiliation != "" {
		sb.WriteString(" (")
		sb.WriteString(a.Affiliation)
		sb.WriteString(")")
	}

	if a.ORCID != "" {
		sb.WriteString(" [")
		sb.WriteString(a.ORCID)
		sb.WriteString("]")
	}

	return sb.String()
}

// Paper represents an academic paper in the central repository.
type Paper struct {
	ID              uuid.UUID
	Title           string
	Abstract        string
	Authors         []Author
	PublicationDate *time.Time
	PublicationYear int
	ArXivID         string
	PubMedID        string
	DOI             string
	Journal         string
	Volume          string
	Pages           string
	Keywords        []string
	CitationCount   int
	PDFURL          string
	Source          SourceType
	RawMetadata     map[string]interface{}
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identifier is a single external identifier attached to a paper.
type Identifier struct {
	Type  IdentifierType
	Value string
}

// Identifiers returns the paper's external identifiers in deduplication
// priority order: arXiv ID, then PubMed ID, then DOI. Empty values are omitted.
func (p *Paper) Identifiers() []Identifier {
	ids := make([]Identifier, 0, 3)
	if v := strings.TrimSpace(p.ArXivID); v != "" {
		ids = append(ids, Identifier{Type: IdentifierTypeArXivID, Value: v})
	}
	if v := strings.TrimSpace(p.PubMedID); v != "" {
		ids = append(ids, Identifier{Type: IdentifierTypePubMedID, Value: v})
	}
	if v := strings.TrimSpace(p.DOI); v != "" {
		ids = append(ids, Identifier{Type: IdentifierTypeDOI, Value: strings.ToLower(v)})
	}
	return ids
}

// HasExternalIdentifier returns true if the paper carries at least one
// arXiv, PubMed, or DOI identifier.
func (p *Paper) HasExternalIdentifier() bool {
	return len(p.Identifiers()) > 0
}

// CanonicalKey returns the deduplication key for the paper.
// Priority order: arXiv ID > PubMed ID > DOI > (title, publication date).
// DOIs are normalized to lowercase. Papers without any external identifier
// fall back to a hash of the lowercased title combined with the publication
// date, so two same-title papers published on different dates stay distinct.
func (p *Paper) CanonicalKey() string {
	if arxiv := strings.TrimSpace(p.ArXivID); arxiv != "" {
		return "arxiv:" + arxiv
	}
	if pubmed := strings.TrimSpace(p.PubMedID); pubmed != "" {
		return "pubmed:" + pubmed
	}
	if doi := strings.TrimSpace(p.DOI); doi != "" {
		return "doi:" + strings.ToLower(doi)
	}

	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(p.Title))))
	day := ""
	if p.PublicationDate != nil {
		day = p.PublicationDate.Format("2006-01-02")
	}
	return "title:" + hex.EncodeToString(sum[:])[:16] + ":" + day
}

// AuthorNames returns the names of the paper's authors in order.
func (p *Paper) AuthorNames() []string {
	names := make([]string, len(p.Authors))
	for i, a := range p.Authors {
		names[i] = a.Name
	}
	return names
}
