package domain

import (
	"time"

	"github.com/google/uuid"
)

// Collaboration represents a co-authorship relationship between two authors.
// The pair is stored in canonical order: author1's name sorts before
// author2's name, so each unordered pair has exactly one row.
type Collaboration struct {
	ID                     uuid.UUID
	Author1ID              uuid.UUID
	Author2ID              uuid.UUID
	PaperCount             int
	FirstCollaborationDate *time.Time
	LastCollaborationDate  *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CollaborationEdge is the denormalized author-pair view used to build the
// co-authorship network graph.
type CollaborationEdge struct {
	Author1Name string
	Author2Name string
	PaperCount  int
}

// OrderAuthorPair returns the two authors in canonical collaboration order,
// sorted lexicographically by name.
func OrderAuthorPair(a, b Author) (Author, Author) {
	if a.Name > b.Name {
		return b, a
	}
	return a, b
}

// CollaborationPairs returns every unordered pair of distinct authors on a
// paper, each pair in canonical order. Authors with empty or duplicate names
// contribute at most one node, so a paper never produces a self-pair.
func CollaborationPairs(authors []Author) [][2]Author {
	seen := make(map[string]bool, len(authors))
	uniq := make([]Author, 0, len(authors))
	for _, a := range authors {
		if a.Name == "" || seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		uniq = append(uniq, a)
	}

	pairs := make([][2]Author, 0, len(uniq)*(len(uniq)-1)/2)
	for i := 0; i < len(uniq); i++ {
		for j := i + 1; j < len(uniq); j++ {
			a1, a2 := OrderAuthorPair(uniq[i], uniq[j])
			pairs = append(pairs, [2]Author{a1, a2})
		}
	}
	return pairs
}
