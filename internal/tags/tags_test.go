package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		lists [][]string
		want  []string
	}{
		{name: "nothing", lists: nil, want: []string{}},
		{name: "single", lists: [][]string{{"prod"}}, want: []string{"prod"}},
		{name: "dedupe keeps first", lists: [][]string{{"prod", "web"}, {"web", "eu"}, {"prod"}}, want: []string{"prod", "web", "eu"}},
		{name: "blanks", lists: [][]string{{"", " prod ", "  "}}, want: []string{"prod"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.lists...))
		})
	}
}

func TestHasMatching(t *testing.T) {
	assert.True(t, HasMatching([]string{"prod"}, nil))
	assert.True(t, HasMatching(nil, nil))
	assert.True(t, HasMatching([]string{"prod", "web"}, []string{"db", "web"}))
	assert.False(t, HasMatching([]string{"prod"}, []string{"staging"}))
	assert.False(t, HasMatching(nil, []string{"prod"}))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "none", Label(nil))
	input := []string{"web", "eu", "prod"}
	assert.Equal(t, "eu,prod,web", Label(input))
	assert.Equal(t, []string{"web", "eu", "prod"}, input)
}
