// Package similarity turns stored pairwise similarity records into a
// filtered paper graph.
package similarity

import (
	"fmt"
	"strings"
)

// Record is a pairwise similarity record as it arrives from the scoring
// service or is read back from storage. Field names vary between upstream
// versions; see SourceAccessors, TargetAccessors and ScoreAccessors.
type Record map[string]any

// Metric names one similarity dimension.
type Metric string

const (
	MetricOverall    Metric = "overall"
	MetricTitle      Metric = "title"
	MetricAbstract   Metric = "abstract"
	MetricAuthors    Metric = "authors"
	MetricReferences Metric = "references"
)

// DefaultMetric and DefaultMinScore match the graph view defaults.
const (
	DefaultMetric   = MetricOverall
	DefaultMinScore = 0.4
)

// Metrics lists every supported metric in display order.
var Metrics = []Metric{MetricOverall, MetricTitle, MetricAbstract, MetricAuthors, MetricReferences}

// ParseMetric validates a metric name. Empty selects DefaultMetric.
func ParseMetric(s string) (Metric, error) {
	if s == "" {
		return DefaultMetric, nil
	}
	for _, m := range Metrics {
		if string(m) == strings.ToLower(s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid metric %q: must be one of %v", s, Metrics)
}

// Node is a paper in the graph.
type Node struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Abstract string `json:"abstract,omitempty"` // Kept for hover/detail display
}

// Edge is an undirected similarity link that survived filtering.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

// State is the render outcome of a graph.
type State string

const (
	StateNoPapers State = "no_papers"
	StateNoLinks  State = "no_links"
	StateReady    State = "ready"
)

// Dropped counts records excluded while building a graph, by reason.
type Dropped struct {
	MissingID      int `json:"missing_id"`
	UnknownNode    int `json:"unknown_node"`
	Unscored       int `json:"unscored"`
	BelowThreshold int `json:"below_threshold"`
}

// Total returns the number of excluded records.
func (d Dropped) Total() int {
	return d.MissingID + d.UnknownNode + d.Unscored + d.BelowThreshold
}

// Graph is the filtered similarity graph for one metric and threshold.
type Graph struct {
	Metric   Metric  `json:"metric"`
	MinScore float64 `json:"min_score"`
	Nodes    []Node  `json:"nodes"`
	Edges    []Edge  `json:"edges"`
	Dropped  Dropped `json:"dropped"`
}

// State distinguishes an empty library from a library with no links
// for the current filter.
func (g *Graph) State() State {
	switch {
	case len(g.Nodes) == 0:
		return StateNoPapers
	case len(g.Edges) == 0:
		return StateNoLinks
	default:
		return StateReady
	}
}

// Message returns the text shown for a degenerate state.
func (s State) Message() string {
	switch s {
	case StateNoPapers:
		return "No papers in this project yet"
	case StateNoLinks:
		return "No links for current filter / threshold"
	default:
		return ""
	}
}

// EdgeWidth maps an edge value to a stroke width. Monotone in value.
func EdgeWidth(value float64) float64 {
	return 1 + value*2
}
