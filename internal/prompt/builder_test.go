package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOrdering(t *testing.T) {
	styles := DefaultStyles()
	got := Build("Fish fingers with chips and peas", styles[StyleRealisticPhoto], "extra ketchup", "food item resembling fish and chips")

	markers := []string{
		"A realistic photo of Fish fingers with chips and peas",
		styles[StyleRealisticPhoto],
		"highly detailed",
		"extra ketchup",
		"Similar style to: food item resembling fish and chips",
		"Do NOT include any text, words, letters, or watermarks in the image",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(got, m)
		require.GreaterOrEqual(t, idx, 0, "prompt missing %q", m)
		assert.Greater(t, idx, last, "%q out of order", m)
		last = idx
	}
	for _, e := range Enhancers() {
		assert.Contains(t, got, e)
	}
	assert.True(t, strings.HasSuffix(got, "Do NOT include any text, words, letters, or watermarks in the image"))
}

func TestBuildOmitsBlankClauses(t *testing.T) {
	got := Build("Apple crumble with custard", "simple plate", "   ", "")
	assert.NotContains(t, got, "Similar style to:")
	assert.NotContains(t, got, ",  ,", "blank details must not leave an empty clause")
}

func TestBuildDeterministic(t *testing.T) {
	a := Build("Rice pudding with jam", "menu card", "red bowl", "ref")
	b := Build("Rice pudding with jam", "menu card", "red bowl", "ref")
	assert.Equal(t, a, b)
}

func TestDefaultStylesCoverRecognizedKeys(t *testing.T) {
	styles := DefaultStyles()
	for _, key := range []string{StyleRealisticPhoto, StyleIllustrated, StyleMenuCard, StyleKidFriendly} {
		phrase, ok := styles[key]
		require.True(t, ok, "missing style %q", key)
		assert.NotEmpty(t, phrase)
	}
}
