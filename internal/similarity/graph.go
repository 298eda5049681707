package similarity

import (
	"sort"

	"github.com/papertrail/papertrail/internal/paper"
)

// BuildGraph builds the similarity graph for papers under one metric.
//
// Every paper becomes a node. A record becomes an edge only if both
// endpoints resolve to known papers and its score under metric is numeric
// and at least minScore. Records in the nested per-paper shape are
// expanded first.
func BuildGraph(papers []paper.Paper, records []Record, metric Metric, minScore float64) *Graph {
	g := &Graph{
		Metric:   metric,
		MinScore: minScore,
		Nodes:    make([]Node, 0, len(papers)),
		Edges:    []Edge{},
	}

	known := make(map[string]bool, len(papers))
	for _, p := range papers {
		known[p.ID] = true
		g.Nodes = append(g.Nodes, Node{
			ID:       p.ID,
			Title:    p.DisplayTitle(),
			Author:   p.Author,
			Abstract: p.Abstract,
		})
	}

	for _, r := range Expand(records) {
		source, target, ok := r.Endpoints()
		if !ok {
			g.Dropped.MissingID++
			continue
		}
		if !known[source] || !known[target] {
			g.Dropped.UnknownNode++
			continue
		}
		score, ok := r.Score(metric)
		if !ok {
			g.Dropped.Unscored++
			continue
		}
		if score < minScore {
			g.Dropped.BelowThreshold++
			continue
		}
		g.Edges = append(g.Edges, Edge{Source: source, Target: target, Value: score})
	}

	return g
}

// Expand flattens records stored in the per-paper shape
//
//	{"paperId": "A", "similarities": [{"otherPaperId": "B", "overall": 0.7}, ...]}
//
// into one flat record per pair. Flat records pass through unchanged.
func Expand(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		nested, ok := r["similarities"].([]any)
		if !ok {
			out = append(out, r)
			continue
		}

		parent, _ := r["paperId"].(string)
		if parent == "" {
			parent, _ = r["id"].(string)
		}
		for _, item := range nested {
			child, ok := item.(map[string]any)
			if !ok {
				continue
			}
			flat := make(Record, len(child)+1)
			for k, v := range child {
				flat[k] = v
			}
			if parent != "" {
				flat["paperId"] = parent
			}
			out = append(out, flat)
		}
	}
	return out
}

// Neighbor is a paper linked to a root paper.
type Neighbor struct {
	Node  Node    `json:"node"`
	Score float64 `json:"score"`
}

// Neighbors returns the papers linked to rootID in the graph, highest score
// first. Ties are broken by paper ID. Returns nil if rootID is not a node.
func (g *Graph) Neighbors(rootID string) []Neighbor {
	nodes := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.ID] = n
	}
	if _, ok := nodes[rootID]; !ok {
		return nil
	}

	best := make(map[string]float64)
	for _, e := range g.Edges {
		var other string
		switch rootID {
		case e.Source:
			other = e.Target
		case e.Target:
			other = e.Source
		default:
			continue
		}
		if other == rootID {
			continue
		}
		if s, seen := best[other]; !seen || e.Value > s {
			best[other] = e.Value
		}
	}

	neighbors := make([]Neighbor, 0, len(best))
	for id, score := range best {
		neighbors = append(neighbors, Neighbor{Node: nodes[id], Score: score})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].Node.ID < neighbors[j].Node.ID
	})
	return neighbors
}
