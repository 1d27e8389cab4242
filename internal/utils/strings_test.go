package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single origin", input: "https://trade.example.com", expected: []string{"https://trade.example.com"}},
		{name: "varied spacing", input: "http://localhost:3000,  https://a.example.com ", expected: []string{"http://localhost:3000", "https://a.example.com"}},
		{name: "trailing comma", input: "*,", expected: []string{"*"}},
		{name: "only spaces", input: "   ", expected: nil},
		{name: "comma only", input: ",", expected: nil},
		{name: "multiple commas", input: ",,AAPL,,MSFT,,", expected: []string{"AAPL", "MSFT"}},
		{name: "internal spaces preserved", input: "Apple Inc., Microsoft Corp.", expected: []string{"Apple Inc.", "Microsoft Corp."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}
