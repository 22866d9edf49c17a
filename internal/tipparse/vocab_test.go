package tipparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchBetType(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"⚽ Over 0.5 Goals ✅", "Over 0.5"},
		{"⚽ Over 1.5 Goals ✅✅✅", "Over 1.5"},
		{"⚽ OVER 2.5 GOALS", "Over 2.5"},
		{"Over 3.5", "Over 3.5"},
		{"⚽ Under 1.5 Goals ❌", "Under 1.5"},
		{"under 2.5", "Under 2.5"},
		{"Under 3.5 goals", "Under 3.5"},
		{"Home Win ✅", "Home Win"},
		{"Away win ❌", "Away Win"},
		{"Draw ✅", "Draw"},
		{"Home Win or Draw", "Home Win"},
		{"BTTS No ✅", "BTTS No"},
		{"BTTS - No", "BTTS No"},
		{"BTTS Yes", "BTTS Yes"},
		{"BTTS - Yes ✅", "BTTS Yes"},
		{"⚽ BTTS ✅", "BTTS No"},
		{"Both Teams To Score ✅", "BTTS No"},
		{"⚽ Both Teams To Score - No ❌", "BTTS No"},
		{"Both Teams To Score No", "BTTS No"},
		{"Both Teams To Score - Yes ✅", "BTTS Yes"},
		{"Both teams to score yes", "BTTS Yes"},
		{"Both teams not to score", "BTTS No"},
		{"Arsenal Clean Sheet ✅", "Clean Sheet"},
		{"Over 2.5 & BTTS", "Over 2.5"},
		{"Corners ✅", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchBetType(tt.line), tt.line)
	}
}

func TestBetTypes_GoalLinesBeforeOtherMarkets(t *testing.T) {
	firstIndex := func(prefix string) int {
		for i, kw := range BetTypes {
			if strings.HasPrefix(kw.Keyword, prefix) {
				return i
			}
		}
		return -1
	}
	lastIndex := func(prefix string) int {
		last := -1
		for i, kw := range BetTypes {
			if strings.HasPrefix(kw.Keyword, prefix) {
				last = i
			}
		}
		return last
	}

	assert.Less(t, lastIndex("under"), firstIndex("home win"))
	assert.Less(t, lastIndex("over"), firstIndex("home win"))
	assert.Less(t, firstIndex("draw"), firstIndex("btts"))
	assert.Less(t, lastIndex("both teams"), firstIndex("clean sheet"))
}

func TestBetTypes_KeywordsAreLowerCase(t *testing.T) {
	for _, kw := range BetTypes {
		assert.Equal(t, strings.ToLower(kw.Keyword), kw.Keyword)
		assert.NotEmpty(t, kw.BetType)
	}
	for _, word := range MatchExclusions {
		assert.Equal(t, strings.ToLower(word), word)
	}
}

func TestHasExclusion(t *testing.T) {
	assert.True(t, hasExclusion("Total GOALS v last season"))
	assert.True(t, hasExclusion("Odds v market"))
	assert.True(t, hasExclusion("Points v Ajax"))
	assert.False(t, hasExclusion("Marseille v Rennes"))
}

func TestStripGlyphs(t *testing.T) {
	assert.Equal(t, " Celtic v Rangers ", stripGlyphs("⚽ Celtic v Rangers 🔥"))
	assert.Equal(t, "Lyon v Metz", stripGlyphs("Lyon v Metz"))
	assert.Equal(t, "Lyon v Metz", stripGlyphs("Lyon v Metz\ufe0f"))
}
