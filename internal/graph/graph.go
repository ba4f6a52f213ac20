// Package graph builds and analyzes the collaboration network: an undirected
// weighted graph whose nodes are author names and whose edge weights count
// co-authored papers.
package graph

import (
	"sort"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// AuthorPairs returns every unordered pair of distinct authors on a paper in
// canonical order. Each pair becomes one collaboration edge once stored. The
// derivation itself lives in the domain package next to the pair ordering
// rule; this is the graph-facing name for it.
func AuthorPairs(authors []domain.Author) [][2]domain.Author {
	return domain.CollaborationPairs(authors)
}

// Graph is an in-memory undirected collaboration network. Edge weight is the
// number of papers the two authors wrote together. The zero value is not
// usable; construct with New or NewFromEdges.
type Graph struct {
	adj map[string]map[string]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{adj: make(map[string]map[string]int)}
}

// NewFromEdges builds a graph from stored collaboration edges.
func NewFromEdges(edges []domain.CollaborationEdge) *Graph {
	g := New()
	for _, e := range edges {
		g.AddEdge(e.Author1Name, e.Author2Name, e.PaperCount)
	}
	return g
}

// AddEdge records an undirected edge between two authors with the given
// weight. Re-adding an existing pair overwrites the weight. Self-loops and
// empty names are ignored.
func (g *Graph) AddEdge(a, b string, weight int) {
	if a == "" || b == "" || a == b {
		return
	}
	if g.adj[a] == nil {
		g.adj[a] = make(map[string]int)
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[string]int)
	}
	g.adj[a][b] = weight
	g.adj[b][a] = weight
}

// Nodes returns all author names in the graph, sorted.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.adj))
	for name := range g.adj {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}

// Edges returns every edge once, in canonical order: the lexically smaller
// author first, edges sorted by first then second author.
func (g *Graph) Edges() []domain.CollaborationEdge {
	edges := make([]domain.CollaborationEdge, 0, g.edgeCount())
	for a, neighbors := range g.adj {
		for b, weight := range neighbors {
			if a < b {
				edges = append(edges, domain.CollaborationEdge{
					Author1Name: a,
					Author2Name: b,
					PaperCount:  weight,
				})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Author1Name != edges[j].Author1Name {
			return edges[i].Author1Name < edges[j].Author1Name
		}
		return edges[i].Author2Name < edges[j].Author2Name
	})
	return edges
}

// Degree returns the number of distinct collaborators an author has.
// Unknown authors have degree zero.
func (g *Graph) Degree(name string) int {
	return len(g.adj[name])
}

// Neighbors returns an author's collaborators, sorted. Unknown authors have
// no neighbors.
func (g *Graph) Neighbors(name string) []string {
	neighbors := make([]string, 0, len(g.adj[name]))
	for b := range g.adj[name] {
		neighbors = append(neighbors, b)
	}
	sort.Strings(neighbors)
	return neighbors
}

// Weight returns the edge weight between two authors, or zero when no edge
// exists.
func (g *Graph) Weight(a, b string) int {
	return g.adj[a][b]
}

func (g *Graph) edgeCount() int {
	total := 0
	for _, neighbors := range g.adj {
		total += len(neighbors)
	}
	return total / 2
}
