package graph

import "sort"

// mostCollaborativeLimit caps the ranked author list in an analysis.
const mostCollaborativeLimit = 10

// AuthorDegree pairs an author with their number of distinct collaborators.
type AuthorDegree struct {
	Name   string `json:"name"`
	Degree int    `json:"degree"`
}

// NetworkAnalysis summarizes the structure of a collaboration network.
type NetworkAnalysis struct {
	TotalAuthors                   int            `json:"total_authors"`
	TotalCollaborations            int            `json:"total_collaborations"`
	AverageCollaborationsPerAuthor float64        `json:"average_collaborations_per_author"`
	MostCollaborativeAuthors       []AuthorDegree `json:"most_collaborative_authors"`
	ConnectedComponents            int            `json:"connected_components"`
	LargestComponentSize           int            `json:"largest_component_size"`
	NetworkDensity                 float64        `json:"density"`
	ClusteringCoefficient          float64        `json:"clustering_coefficient"`
}

// Analyze computes summary metrics over a collaboration graph.
//
// Density is 2E/(N(N-1)), the fraction of possible edges present. The
// clustering coefficient is the unweighted average of each node's local
// coefficient. Components are found with breadth-first search. An empty
// graph yields zeros across the board.
func Analyze(g *Graph) *NetworkAnalysis {
	analysis := &NetworkAnalysis{MostCollaborativeAuthors: []AuthorDegree{}}
	if g == nil || len(g.adj) == 0 {
		return analysis
	}

	n := len(g.adj)
	e := g.edgeCount()

	analysis.TotalAuthors = n
	analysis.TotalCollaborations = e
	analysis.AverageCollaborationsPerAuthor = float64(2*e) / float64(n)
	analysis.MostCollaborativeAuthors = g.topByDegree(mostCollaborativeLimit)

	sizes := g.componentSizes()
	analysis.ConnectedComponents = len(sizes)
	for _, size := range sizes {
		if size > analysis.LargestComponentSize {
			analysis.LargestComponentSize = size
		}
	}

	if n > 1 {
		analysis.NetworkDensity = float64(2*e) / float64(n*(n-1))
	}
	analysis.ClusteringCoefficient = g.averageClustering()

	return analysis
}

// topByDegree ranks authors by collaborator count, ties broken by name.
func (g *Graph) topByDegree(limit int) []AuthorDegree {
	ranked := make([]AuthorDegree, 0, len(g.adj))
	for name, neighbors := range g.adj {
		ranked = append(ranked, AuthorDegree{Name: name, Degree: len(neighbors)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Degree != ranked[j].Degree {
			return ranked[i].Degree > ranked[j].Degree
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// componentSizes returns the size of every connected component, discovered
// by breadth-first search from each unvisited node.
func (g *Graph) componentSizes() []int {
	visited := make(map[string]bool, len(g.adj))
	var sizes []int

	for _, start := range g.Nodes() {
		if visited[start] {
			continue
		}
		visited[start] = true
		size := 0
		queue := []string{start}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			size++
			for neighbor := range g.adj[node] {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue = append(queue, neighbor)
				}
			}
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// averageClustering is the mean local clustering coefficient: for each node,
// the edges among its neighbors over the wedges it could close. Nodes with
// fewer than two neighbors contribute zero.
func (g *Graph) averageClustering() float64 {
	if len(g.adj) == 0 {
		return 0
	}

	var total float64
	for _, neighbors := range g.adj {
		k := len(neighbors)
		if k < 2 {
			continue
		}
		names := make([]string, 0, k)
		for b := range neighbors {
			names = append(names, b)
		}
		links := 0
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				if _, ok := g.adj[names[i]][names[j]]; ok {
					links++
				}
			}
		}
		total += float64(2*links) / float64(k*(k-1))
	}
	return total / float64(len(g.adj))
}

// NetworkNode is one author in an exported network.
type NetworkNode struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Degree int    `json:"degree"`
}

// NetworkEdge is one collaboration in an exported network, referencing node
// IDs.
type NetworkEdge struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Weight int `json:"weight"`
}

// NetworkExport is the node/edge form visualization front ends consume.
type NetworkExport struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

// ExportNetwork flattens a graph into node and edge lists. Node IDs are
// ordinals in name order; every edge references them with Source < Target.
func ExportNetwork(g *Graph) *NetworkExport {
	export := &NetworkExport{Nodes: []NetworkNode{}, Edges: []NetworkEdge{}}
	if g == nil {
		return export
	}

	ids := make(map[string]int, len(g.adj))
	for i, name := range g.Nodes() {
		ids[name] = i
		export.Nodes = append(export.Nodes, NetworkNode{ID: i, Name: name, Degree: g.Degree(name)})
	}
	for _, edge := range g.Edges() {
		export.Edges = append(export.Edges, NetworkEdge{
			Source: ids[edge.Author1Name],
			Target: ids[edge.Author2Name],
			Weight: edge.PaperCount,
		})
	}
	return export
}
