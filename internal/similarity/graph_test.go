package similarity

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/papertrail/papertrail/internal/paper"
)

func threePapers() []paper.Paper {
	return []paper.Paper{
		{ID: "A", Title: "Paper A", Author: "Smith", Abstract: "abstract A"},
		{ID: "B", Title: "Paper B"},
		{ID: "C", Title: "Paper C"},
	}
}

func TestBuildGraph_ThresholdExclusion(t *testing.T) {
	records := []Record{
		{"source": "A", "target": "B", "scores": map[string]any{"overall": 0.5}},
	}

	g := BuildGraph(threePapers(), records, MetricOverall, 0.6)
	if len(g.Edges) != 0 {
		t.Fatalf("expected 0 edges at minScore 0.6, got %d", len(g.Edges))
	}
	if g.Dropped.BelowThreshold != 1 {
		t.Errorf("BelowThreshold = %d, want 1", g.Dropped.BelowThreshold)
	}

	g = BuildGraph(threePapers(), records, MetricOverall, 0.4)
	if len(g.Edges) != 1 {
		t.Fatalf("expected 1 edge at minScore 0.4, got %d", len(g.Edges))
	}
	want := Edge{Source: "A", Target: "B", Value: 0.5}
	if g.Edges[0] != want {
		t.Errorf("edge = %+v, want %+v", g.Edges[0], want)
	}
}

func TestBuildGraph_ScoreEqualToThresholdIsKept(t *testing.T) {
	records := []Record{{"source": "A", "target": "B", "overall": 0.4}}
	g := BuildGraph(threePapers(), records, MetricOverall, 0.4)
	if len(g.Edges) != 1 {
		t.Errorf("score equal to minScore should be kept, got %d edges", len(g.Edges))
	}
}

func TestBuildGraph_AliasResolution(t *testing.T) {
	shapes := map[string]Record{
		"snake flat":     {"paper1_id": "A", "paper2_id": "B", "overall_score": 0.7},
		"camel nested":   {"paperAId": "A", "paperBId": "B", "scores": map[string]any{"overall": 0.7}},
		"camel numbered": {"paper1Id": "A", "paper2Id": "B", "overall": 0.7},
		"short":          {"paperA": "A", "paperB": "B", "sim_overall": 0.7},
		"snake short":    {"paper_a": "A", "paper_b": "B", "overall": 0.7},
		"source target":  {"source": "A", "target": "B", "overall": 0.7},
	}

	for name, r := range shapes {
		t.Run(name, func(t *testing.T) {
			g := BuildGraph(threePapers(), []Record{r}, MetricOverall, 0)
			if len(g.Edges) != 1 {
				t.Fatalf("expected 1 edge, got %d (dropped %+v)", len(g.Edges), g.Dropped)
			}
			want := Edge{Source: "A", Target: "B", Value: 0.7}
			if g.Edges[0] != want {
				t.Errorf("edge = %+v, want %+v", g.Edges[0], want)
			}
		})
	}
}

func TestBuildGraph_ScoreLookupOrder(t *testing.T) {
	// The nested map wins over flat fields.
	r := Record{
		"source":       "A",
		"target":       "B",
		"scores":       map[string]any{"title": 0.9},
		"title_score":  0.1,
		"title":        0.2,
		"sim_title":    0.3,
		"abstract":     0.8,
		"sim_abstract": 0.1,
	}

	g := BuildGraph(threePapers(), []Record{r}, MetricTitle, 0)
	if len(g.Edges) != 1 || g.Edges[0].Value != 0.9 {
		t.Errorf("title: got %+v, want value 0.9", g.Edges)
	}

	g = BuildGraph(threePapers(), []Record{r}, MetricAbstract, 0)
	if len(g.Edges) != 1 || g.Edges[0].Value != 0.8 {
		t.Errorf("abstract: got %+v, want value 0.8", g.Edges)
	}
}

func TestBuildGraph_Exclusions(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		check  func(Dropped) bool
	}{
		{"missing source", Record{"target": "B", "overall": 0.9}, func(d Dropped) bool { return d.MissingID == 1 }},
		{"empty source", Record{"source": "", "target": "B", "overall": 0.9}, func(d Dropped) bool { return d.MissingID == 1 }},
		{"numeric id", Record{"source": 1.0, "target": "B", "overall": 0.9}, func(d Dropped) bool { return d.MissingID == 1 }},
		{"unknown node", Record{"source": "A", "target": "Z", "overall": 0.9}, func(d Dropped) bool { return d.UnknownNode == 1 }},
		{"missing score", Record{"source": "A", "target": "B", "title": 0.9}, func(d Dropped) bool { return d.Unscored == 1 }},
		{"string score", Record{"source": "A", "target": "B", "overall": "0.9"}, func(d Dropped) bool { return d.Unscored == 1 }},
		{"NaN score", Record{"source": "A", "target": "B", "overall": math.NaN()}, func(d Dropped) bool { return d.Unscored == 1 }},
		{"null nested falls through", Record{"source": "A", "target": "B", "scores": map[string]any{"overall": nil}}, func(d Dropped) bool { return d.Unscored == 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := BuildGraph(threePapers(), []Record{tt.record}, MetricOverall, 0)
			if len(g.Edges) != 0 {
				t.Errorf("expected no edges, got %+v", g.Edges)
			}
			if !tt.check(g.Dropped) || g.Dropped.Total() != 1 {
				t.Errorf("unexpected dropped counts: %+v", g.Dropped)
			}
		})
	}
}

func TestBuildGraph_JSONNumberScore(t *testing.T) {
	var r Record
	dec := json.NewDecoder(strings.NewReader(`{"source":"A","target":"C","overall":0.75}`))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		t.Fatal(err)
	}
	g := BuildGraph(threePapers(), []Record{r}, MetricOverall, 0.5)
	if len(g.Edges) != 1 || g.Edges[0].Value != 0.75 {
		t.Errorf("got %+v, want one edge with value 0.75", g.Edges)
	}
}

func TestBuildGraph_NestedShape(t *testing.T) {
	records := []Record{
		{
			"paperId": "A",
			"similarities": []any{
				map[string]any{"otherPaperId": "B", "overall": 0.8, "title": 0.2},
				map[string]any{"otherPaperId": "C", "overall": 0.3},
				"garbage",
			},
		},
	}

	g := BuildGraph(threePapers(), records, MetricOverall, 0.4)
	if len(g.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %+v", g.Edges)
	}
	if g.Edges[0] != (Edge{Source: "A", Target: "B", Value: 0.8}) {
		t.Errorf("unexpected edge %+v", g.Edges[0])
	}
}

func TestBuildGraph_Nodes(t *testing.T) {
	g := BuildGraph(threePapers(), nil, MetricOverall, 0.4)
	if len(g.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(g.Nodes))
	}
	if g.Nodes[0].Abstract != "abstract A" || g.Nodes[0].Author != "Smith" {
		t.Errorf("node should carry author and abstract: %+v", g.Nodes[0])
	}
	if g.Edges == nil {
		t.Error("Edges should be an empty slice, not nil")
	}
}

func TestGraph_State(t *testing.T) {
	empty := BuildGraph(nil, []Record{{"source": "A", "target": "B", "overall": 1.0}}, MetricOverall, 0)
	if got := empty.State(); got != StateNoPapers {
		t.Errorf("State() = %s, want %s", got, StateNoPapers)
	}

	noLinks := BuildGraph(threePapers(), nil, MetricOverall, 0.4)
	if got := noLinks.State(); got != StateNoLinks {
		t.Errorf("State() = %s, want %s", got, StateNoLinks)
	}

	ready := BuildGraph(threePapers(), []Record{{"source": "A", "target": "B", "overall": 1.0}}, MetricOverall, 0)
	if got := ready.State(); got != StateReady {
		t.Errorf("State() = %s, want %s", got, StateReady)
	}

	if StateNoPapers.Message() == StateNoLinks.Message() {
		t.Error("degenerate states must render differently")
	}
}

func TestGraph_Neighbors(t *testing.T) {
	records := []Record{
		{"source": "A", "target": "B", "overall": 0.5},
		{"source": "C", "target": "A", "overall": 0.9},
		{"source": "B", "target": "C", "overall": 0.7},
	}
	g := BuildGraph(threePapers(), records, MetricOverall, 0)

	got := g.Neighbors("A")
	if len(got) != 2 {
		t.Fatalf("expected 2 neighbors, got %+v", got)
	}
	if got[0].Node.ID != "C" || got[0].Score != 0.9 {
		t.Errorf("first neighbor = %+v, want C with 0.9", got[0])
	}
	if got[1].Node.ID != "B" || got[1].Score != 0.5 {
		t.Errorf("second neighbor = %+v, want B with 0.5", got[1])
	}

	if g.Neighbors("Z") != nil {
		t.Error("Neighbors of unknown paper should be nil")
	}
}

func TestParseMetric(t *testing.T) {
	if m, err := ParseMetric(""); err != nil || m != MetricOverall {
		t.Errorf("ParseMetric(\"\") = %s, %v", m, err)
	}
	if m, err := ParseMetric("Abstract"); err != nil || m != MetricAbstract {
		t.Errorf("ParseMetric(Abstract) = %s, %v", m, err)
	}
	if _, err := ParseMetric("citations"); err == nil {
		t.Error("ParseMetric(citations) should fail")
	}
}

func TestEdgeWidth_Monotone(t *testing.T) {
	if !(EdgeWidth(0.2) < EdgeWidth(0.5) && EdgeWidth(0.5) < EdgeWidth(0.9)) {
		t.Error("EdgeWidth should increase with value")
	}
}
