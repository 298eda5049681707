// Package viz renders similarity graphs as Cytoscape.js elements and as
// standalone HTML pages.
package viz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papertrail/papertrail/internal/similarity"
)

// maxLabelLength bounds node labels; the full title is kept for tooltips.
const maxLabelLength = 40

// Elements is the Cytoscape.js elements format.
type Elements struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// CytoscapeNode represents a node in Cytoscape.js format.
type CytoscapeNode struct {
	Data NodeData `json:"data"`
}

// NodeData contains the node data fields.
type NodeData struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Title    string `json:"title"`
	Authors  string `json:"authors,omitempty"`
	Abstract string `json:"abstract,omitempty"`
	Degree   int    `json:"degree"`
}

// CytoscapeEdge represents an edge in Cytoscape.js format.
type CytoscapeEdge struct {
	Data EdgeData `json:"data"`
}

// EdgeData contains the edge data fields.
type EdgeData struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
	Width  float64 `json:"width"`
}

// FromGraph converts a similarity graph to Cytoscape.js elements.
func FromGraph(g *similarity.Graph) Elements {
	degree := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		degree[e.Source]++
		degree[e.Target]++
	}

	elements := Elements{
		Nodes: make([]CytoscapeNode, 0, len(g.Nodes)),
		Edges: make([]CytoscapeEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		elements.Nodes = append(elements.Nodes, CytoscapeNode{Data: NodeData{
			ID:       n.ID,
			Label:    truncate(n.Title, maxLabelLength),
			Title:    n.Title,
			Authors:  n.Author,
			Abstract: n.Abstract,
			Degree:   degree[n.ID],
		}})
	}
	for i, e := range g.Edges {
		elements.Edges = append(elements.Edges, CytoscapeEdge{Data: EdgeData{
			ID:     edgeID(e.Source, e.Target, i),
			Source: e.Source,
			Target: e.Target,
			Value:  e.Value,
			Width:  similarity.EdgeWidth(e.Value),
		}})
	}
	return elements
}

// JSON encodes the elements.
func (e Elements) JSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshaling Cytoscape elements to JSON: %w", err)
	}
	return string(data), nil
}

// edgeID generates a unique edge ID for the current visualization session.
// IDs are based on slice position and are not stable across different graph builds.
func edgeID(source, target string, index int) string {
	return fmt.Sprintf("%s-%s-%d", source, target, index)
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
