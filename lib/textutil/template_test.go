package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	testCases := []struct {
		tmpl     string
		context  map[string]any
		expected string
	}{
		{
			tmpl:     "Cases: $EFFECTED",
			context:  map[string]any{"EFFECTED": 42},
			expected: "Cases: 42",
		},
		{
			tmpl:     "Cases: $FOO",
			context:  map[string]any{},
			expected: "Cases: $FOO",
		},
		{
			tmpl:     "${S}x and ${MISSING}",
			context:  map[string]any{"S": "Kerala", "UNUSED": 1},
			expected: "Keralax and ${MISSING}",
		},
		{
			tmpl:     "cost: $$5, trailing $",
			context:  nil,
			expected: "cost: $5, trailing $",
		},
		{
			tmpl:     "$1 ${not closed",
			context:  map[string]any{"1": "x"},
			expected: "$1 ${not closed",
		},
		{
			tmpl:     "<td>$E</td><td>$ES</td>",
			context:  map[string]any{"E": 5},
			expected: "<td>5</td><td>$ES</td>",
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Substitute(test.tmpl, test.context), test.tmpl)
	}
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName(" Jammu and  Kashmir", []string{"jammu and kashmir"}))
	require.False(t, MatchName("Kerala", []string{"karnataka"}))
	require.Equal(t, "tamilnadu", NormalizeName("Tamil Nadu\n"))
}
