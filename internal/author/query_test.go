package author

import "testing"

func TestParseQuery(t *testing.T) {
	tests := []struct {
		input string
		want  Query
	}{
		{"Yu", Query{Last: "Yu"}},
		{"Timothy Yu", Query{First: "Timothy", Last: "Yu"}},
		{"Timothy C Yu", Query{First: "Timothy C", Last: "Yu"}},
		{"Yu, Timothy", Query{First: "Timothy", Last: "Yu"}},
		{"  Matsen  ", Query{Last: "Matsen"}},
		{"", Query{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseQuery(tt.input); got != tt.want {
				t.Errorf("ParseQuery(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuery_Matches(t *testing.T) {
	timothy := Name{First: "Timothy C", Last: "Yu"}
	yujia := Name{First: "Yujia", Last: "Zhang"}

	tests := []struct {
		name  string
		query string
		n     Name
		want  bool
	}{
		{"last name only", "Yu", timothy, true},
		{"case insensitive", "yu", timothy, true},
		{"first name prefix", "Tim Yu", timothy, true},
		{"comma form", "Yu, Timothy", timothy, true},
		{"first name mismatch", "Frederick Yu", timothy, false},
		{"last name is not a prefix match", "Yu", yujia, false},
		{"empty query", "", timothy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseQuery(tt.query).Matches(tt.n); got != tt.want {
				t.Errorf("ParseQuery(%q).Matches(%+v) = %v, want %v", tt.query, tt.n, got, tt.want)
			}
		})
	}
}

func TestMatchesAuthorString(t *testing.T) {
	author := "Yu, Timothy C and Matsen, Frederick A"

	tests := []struct {
		name    string
		queries []string
		want    bool
	}{
		{"no filter", nil, true},
		{"one match", []string{"Matsen"}, true},
		{"all match", []string{"Matsen", "Tim Yu"}, true},
		{"one missing", []string{"Matsen", "Minin"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var queries []Query
			for _, s := range tt.queries {
				queries = append(queries, ParseQuery(s))
			}
			if got := MatchesAuthorString(queries, author); got != tt.want {
				t.Errorf("MatchesAuthorString(%v) = %v, want %v", tt.queries, got, tt.want)
			}
		})
	}
}
