package tipparse

import "strings"

const (
	// WinMarker flags a tip that landed
	WinMarker = "✅"

	// LossMarker flags a tip that lost
	LossMarker = "❌"

	// StakeGlyph prefixes the "Points" line in channel posts
	StakeGlyph = "📈"

	// OddsGlyph prefixes the "Odds" line in channel posts
	OddsGlyph = "📦"

	// MatchSeparator splits home and away team on a match line
	MatchSeparator = " v "
)

const (
	DefaultStake = 5
	DefaultOdds  = 1.80
	MinStake     = 1
	MaxStake     = 10
)

// MatchExclusions are lower-case words that disqualify a line from being a
// match line even when it contains " v " (stat lines like "Home win v Away win").
var MatchExclusions = []string{"goals", "win", "points", "odds"}

// StrippedGlyphs are removed from a match line before the teams are split out.
var StrippedGlyphs = []string{
	"⚽", StakeGlyph, OddsGlyph, "⏰", WinMarker, LossMarker,
	"🔥", "🏆", "⭐", "💰", "🎯", "👉", "🚨", "📊", "💎", "🟢", "🔴",
	"\ufe0f", // emoji variation selector
}

// BetKeyword maps a lower-case substring to the canonical bet type it denotes.
type BetKeyword struct {
	Keyword string
	BetType string
}

// BetTypes is checked top to bottom and the first hit wins. Exact goal lines
// come before match result markets, which come before BTTS and clean sheet.
// A bare "btts" or "both teams" without "yes" counts as BTTS No.
var BetTypes = []BetKeyword{
	{"over 0.5", "Over 0.5"},
	{"over 1.5", "Over 1.5"},
	{"over 2.5", "Over 2.5"},
	{"over 3.5", "Over 3.5"},
	{"under 1.5", "Under 1.5"},
	{"under 2.5", "Under 2.5"},
	{"under 3.5", "Under 3.5"},
	{"home win", "Home Win"},
	{"away win", "Away Win"},
	{"draw", "Draw"},
	{"btts no", "BTTS No"},
	{"btts - no", "BTTS No"},
	{"btts yes", "BTTS Yes"},
	{"btts - yes", "BTTS Yes"},
	{"btts", "BTTS No"},
	{"both teams not to score", "BTTS No"},
	{"both teams to score - no", "BTTS No"},
	{"both teams to score no", "BTTS No"},
	{"both teams to score - yes", "BTTS Yes"},
	{"both teams to score yes", "BTTS Yes"},
	{"both teams", "BTTS No"},
	{"clean sheet", "Clean Sheet"},
}

// MatchBetType returns the canonical bet type named on the line, or "" if the
// line names none.
func MatchBetType(line string) string {
	lower := strings.ToLower(line)
	for _, kw := range BetTypes {
		if strings.Contains(lower, kw.Keyword) {
			return kw.BetType
		}
	}
	return ""
}

func hasExclusion(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range MatchExclusions {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func stripGlyphs(line string) string {
	for _, glyph := range StrippedGlyphs {
		line = strings.ReplaceAll(line, glyph, "")
	}
	return line
}
