package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/papertrail/papertrail/internal/scoring"
	"github.com/papertrail/papertrail/internal/suggest"
)

func TestNewSuggestResponse_CandidatesNeverNull(t *testing.T) {
	tests := []struct {
		name  string
		fired bool
		resp  suggest.Response
	}{
		{"not fired", false, suggest.Response{}},
		{"fired with error", true, suggest.Response{Clause: "some clause here", Err: errors.New("boom")}},
		{"fired", true, suggest.Response{Clause: "some clause here", Candidates: []scoring.Candidate{{PaperID: "a"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(newSuggestResponse(tt.fired, tt.resp))
			if err != nil {
				t.Fatal(err)
			}
			if strings.Contains(string(data), `"candidates":null`) {
				t.Errorf("candidates serialized as null: %s", data)
			}
			var out struct {
				Triggered  bool              `json:"triggered"`
				Candidates []json.RawMessage `json:"candidates"`
				Error      string            `json:"error"`
			}
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatal(err)
			}
			if out.Triggered != tt.fired {
				t.Errorf("triggered = %v, want %v", out.Triggered, tt.fired)
			}
			if len(out.Candidates) != len(tt.resp.Candidates) {
				t.Errorf("got %d candidates, want %d", len(out.Candidates), len(tt.resp.Candidates))
			}
			if (tt.resp.Err != nil) != (out.Error != "") {
				t.Errorf("error = %q, want set only when the request failed", out.Error)
			}
		})
	}
}
