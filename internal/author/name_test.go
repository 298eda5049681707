package author

import (
	"reflect"
	"testing"
)

func TestParseNames(t *testing.T) {
	tests := []struct {
		input string
		want  []Name
	}{
		{"Smith, J. and Doe, A.", []Name{{"J.", "Smith"}, {"A.", "Doe"}}},
		{"Timothy C Yu; Frederick A Matsen", []Name{{"Timothy C", "Yu"}, {"Frederick A", "Matsen"}}},
		{"A. Smith, B. Jones, C. Lee", []Name{{"A.", "Smith"}, {"B.", "Jones"}, {"C.", "Lee"}}},
		{"Smith, John", []Name{{"John", "Smith"}}},
		{"John Smith, Jane Doe", []Name{{"John", "Smith"}, {"Jane", "Doe"}}},
		{"Smith, J. A.", []Name{{"J. A.", "Smith"}}},
		{"Yu, Timothy C", []Name{{"Timothy C", "Yu"}}},
		{"A. Smith, B. Jones", []Name{{"A.", "Smith"}, {"B.", "Jones"}}},
		{"Lefort, J.-P.", []Name{{"J.-P.", "Lefort"}}},
		{"van der Berg, Jan", []Name{{"Jan", "van der Berg"}}},
		{"Smith & Wesson", []Name{{"", "Smith"}, {"", "Wesson"}}},
		{"Plato", []Name{{"", "Plato"}}},
		{"  ", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseNames(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseNames(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsGivenNames(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"John", true},
		{" J. A. ", true},
		{"J A", true},
		{"Timothy C", true},
		{"Jane Doe", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isGivenNames(tt.input); got != tt.want {
			t.Errorf("isGivenNames(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
