package validators

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "trims", input: "  counter  ", maxLen: 20, want: "counter"},
		{name: "no limit", input: " devolución ", maxLen: 0, want: "devolución"},
		{name: "cuts on a character boundary", input: "devolución", maxLen: 9, want: "devolució"},
		{name: "accent at the edge", input: "devolución", maxLen: 8, want: "devoluci"},
		{name: "exact length kept", input: "devolución", maxLen: 10, want: "devolución"},
		{name: "no trailing space after cut", input: "caja uno", maxLen: 5, want: "caja"},
		{name: "drops invalid bytes", input: "nota\xc3", maxLen: 10, want: "nota"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeString(tc.input, tc.maxLen)
			require.Equal(t, tc.want, got)
			require.True(t, utf8.ValidString(got))
		})
	}
}
