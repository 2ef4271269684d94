package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "ten digits gets +1", input: "6155551234", expected: "+16155551234"},
		{name: "ten digits with punctuation", input: "(615) 555-1234", expected: "+16155551234"},
		{name: "eleven digits starting with 1", input: "16155551234", expected: "+16155551234"},
		{name: "already e164", input: "+16155551234", expected: "+16155551234"},
		{name: "dashed", input: "555-123-4567", expected: "+15551234567"},
		{name: "international keeps digits", input: "+44 7911 123456", expected: "+447911123456"},
		{name: "short number keeps digits", input: "911", expected: "+911"},
		{name: "empty", input: "", expected: ""},
		{name: "non numeric", input: "not-a-number", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"6155551234", "16155551234", "(615) 555-1234", "+44 7911 123456", ""}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "normalizing twice must equal normalizing once for %q", input)
	}
}
