package similarity

import (
	"encoding/json"
	"math"
)

// IDAccessor extracts one candidate endpoint identifier from a record.
type IDAccessor func(Record) (string, bool)

// ScoreAccessor extracts one candidate score for a metric from a record.
// A false return means the field is absent; a present but non-numeric value
// is returned as-is so the caller can reject it.
type ScoreAccessor func(Record, Metric) (any, bool)

// SourceAccessors and TargetAccessors list the endpoint field names used by
// the scoring service over time. The first non-empty string wins.
var (
	SourceAccessors = fieldAccessors("source", "paperAId", "paper1_id", "paper1Id", "paperA", "paper_a", "paperId")
	TargetAccessors = fieldAccessors("target", "paperBId", "paper2_id", "paper2Id", "paperB", "paper_b", "otherPaperId")
)

// ScoreAccessors lists the score locations tried for a metric, in order:
// nested "scores" map, "<metric>_score", "<metric>", "sim_<metric>".
// The first present value wins, even if it is not a number.
var ScoreAccessors = []ScoreAccessor{
	func(r Record, m Metric) (any, bool) {
		nested, ok := r["scores"].(map[string]any)
		if !ok {
			return nil, false
		}
		return present(nested[string(m)])
	},
	func(r Record, m Metric) (any, bool) { return present(r[string(m)+"_score"]) },
	func(r Record, m Metric) (any, bool) { return present(r[string(m)]) },
	func(r Record, m Metric) (any, bool) { return present(r["sim_"+string(m)]) },
}

func fieldAccessors(names ...string) []IDAccessor {
	accessors := make([]IDAccessor, len(names))
	for i, name := range names {
		accessors[i] = func(r Record) (string, bool) {
			s, ok := r[name].(string)
			return s, ok && s != ""
		}
	}
	return accessors
}

func present(v any) (any, bool) {
	return v, v != nil
}

// ResolveID returns the first identifier produced by the accessors.
func ResolveID(r Record, accessors []IDAccessor) (string, bool) {
	for _, get := range accessors {
		if id, ok := get(r); ok {
			return id, true
		}
	}
	return "", false
}

// Endpoints resolves both endpoint identifiers of a record.
func (r Record) Endpoints() (source, target string, ok bool) {
	source, okS := ResolveID(r, SourceAccessors)
	target, okT := ResolveID(r, TargetAccessors)
	return source, target, okS && okT
}

// Score resolves the record's score under the metric. It returns false if
// the score is missing, non-numeric or NaN.
func (r Record) Score(m Metric) (float64, bool) {
	for _, get := range ScoreAccessors {
		v, ok := get(r, m)
		if !ok {
			continue
		}
		return toFloat(v)
	}
	return 0, false
}

// toFloat converts a decoded JSON value to a finite score.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
