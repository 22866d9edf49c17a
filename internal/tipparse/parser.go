// Package tipparse turns pasted channel posts into settled tip results.
//
// Parsing is heuristic and never fails: lines that do not look like a match,
// a result, a stake or odds are ignored.
package tipparse

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// fallbackWindow is how many lines after a result line the fallback pass
// searches for stake and odds.
const fallbackWindow = 3

var (
	intRun   = regexp.MustCompile(`\d+`)
	floatRun = regexp.MustCompile(`\d+(?:[.,]\d+)?|[.,]\d+`)
	scoreRun = regexp.MustCompile(`(\d+)\s*[-:]\s*(\d+)`)
)

// SegmentPolicy decides what happens to a match line with more than one " v ".
type SegmentPolicy int

const (
	// RejectExtraSegments ignores the line entirely
	RejectExtraSegments SegmentPolicy = iota
	// FirstTwoSegments keeps the first two segments as home and away
	FirstTwoSegments
)

// ParseSegmentPolicy reads the config spelling of a policy ("reject", "first_two").
func ParseSegmentPolicy(s string) (SegmentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return RejectExtraSegments, nil
	case "first_two", "first-two":
		return FirstTwoSegments, nil
	default:
		return RejectExtraSegments, fmt.Errorf("unknown multi-segment policy %q", s)
	}
}

func (p SegmentPolicy) String() string {
	if p == FirstTwoSegments {
		return "first_two"
	}
	return "reject"
}

// ParsedResult is one settled tip found in the text
type ParsedResult struct {
	HomeTeam  string  `json:"home_team"`
	AwayTeam  string  `json:"away_team"`
	BetType   string  `json:"bet_type"`
	Stake     int     `json:"stake"`
	Odds      float64 `json:"odds"`
	IsWon     bool    `json:"is_won"`
	HomeScore *int    `json:"home_score,omitempty"`
	AwayScore *int    `json:"away_score,omitempty"`
}

type matchRef struct {
	home string
	away string
}

// Parser extracts results from free text. The zero value rejects multi-segment
// match lines.
type Parser struct {
	policy SegmentPolicy
}

// NewParser creates a parser with the given multi-segment policy
func NewParser(policy SegmentPolicy) *Parser {
	return &Parser{policy: policy}
}

var defaultParser = &Parser{}

// Parse runs the default parser over text
func Parse(text string) []ParsedResult {
	return defaultParser.Parse(text)
}

// Policy reports the parser's multi-segment policy
func (p *Parser) Policy() SegmentPolicy {
	return p.policy
}

// Parse scans text block by block. When no block yields a result, the whole
// text is rescanned as one stream so match and result lines split by blank
// lines still pair up.
func (p *Parser) Parse(text string) []ParsedResult {
	lines := splitLines(text)

	var results []ParsedResult
	for _, block := range segment(lines) {
		results = append(results, p.scan(block, func(int) []string { return block })...)
	}
	if len(results) > 0 {
		return results
	}

	stream := nonBlank(lines)
	return p.scan(stream, func(i int) []string {
		end := i + 1 + fallbackWindow
		if end > len(stream) {
			end = len(stream)
		}
		return stream[i+1 : end]
	})
}

// scan walks lines in order. details returns the lines searched for stake
// and odds once a result line at index i is found. The score is only read
// from the lines owned by the current match.
func (p *Parser) scan(lines []string, details func(i int) []string) []ParsedResult {
	var (
		current *matchRef
		matchAt int
		results []ParsedResult
	)

	for i, line := range lines {
		if ref, ok := p.matchLine(line); ok {
			current, matchAt = ref, i
		}

		betType, won, ok := resultLine(line)
		if !ok || current == nil {
			continue
		}

		result := ParsedResult{
			HomeTeam: current.home,
			AwayTeam: current.away,
			BetType:  betType,
			Stake:    DefaultStake,
			Odds:     DefaultOdds,
			IsWon:    won,
		}
		fillDetails(&result, details(i))
		fillScore(&result, line, p.matchScope(lines, matchAt))
		results = append(results, result)
	}

	return results
}

// matchLine reports the teams on a "Home v Away" line
func (p *Parser) matchLine(line string) (*matchRef, bool) {
	if !strings.Contains(line, MatchSeparator) || hasExclusion(line) {
		return nil, false
	}

	parts := strings.Split(stripGlyphs(line), MatchSeparator)
	if len(parts) < 2 {
		return nil, false
	}
	if len(parts) > 2 && p.policy != FirstTwoSegments {
		return nil, false
	}

	home := strings.TrimSpace(parts[0])
	away := strings.TrimSpace(parts[1])
	if home == "" || away == "" {
		return nil, false
	}
	return &matchRef{home: home, away: away}, true
}

// resultLine reports the bet type and outcome on a line carrying a win or loss
// marker. The win marker is checked on its own, so a line with both counts as won.
func resultLine(line string) (betType string, won bool, ok bool) {
	hasWin := strings.Contains(line, WinMarker)
	hasLoss := strings.Contains(line, LossMarker)
	if !hasWin && !hasLoss {
		return "", false, false
	}

	betType = MatchBetType(line)
	if betType == "" {
		return "", false, false
	}

	return betType, hasWin, true
}

// matchScope returns the lines after the match line at i, up to the next match line
func (p *Parser) matchScope(lines []string, i int) []string {
	end := len(lines)
	for j := i + 1; j < len(lines); j++ {
		if _, ok := p.matchLine(lines[j]); ok {
			end = j
			break
		}
	}
	return lines[i+1 : end]
}

func fillDetails(result *ParsedResult, lines []string) {
	stakeFound, oddsFound := false, false

	for _, line := range lines {
		lower := strings.ToLower(line)
		if !stakeFound && (strings.Contains(lower, "points") || strings.Contains(line, StakeGlyph)) {
			if stake, ok := extractStake(line); ok {
				result.Stake = stake
				stakeFound = true
			}
		}
		if !oddsFound && (strings.Contains(lower, "odds") || strings.Contains(line, OddsGlyph)) {
			if odds, ok := extractOdds(line); ok {
				result.Odds = odds
				oddsFound = true
			}
		}
	}
}

func fillScore(result *ParsedResult, source string, lines []string) {
	for _, line := range append([]string{source}, lines...) {
		if home, away, ok := extractScore(line); ok {
			result.HomeScore, result.AwayScore = &home, &away
			break
		}
	}
}

// extractStake reads the first integer run, clamped into [MinStake, MaxStake]
func extractStake(line string) (int, bool) {
	run := intRun.FindString(line)
	if run == "" {
		return 0, false
	}

	stake, err := strconv.Atoi(run)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return MaxStake, true
		}
		return 0, false
	}
	return clampStake(stake), true
}

func clampStake(stake int) int {
	if stake < MinStake {
		return MinStake
	}
	if stake > MaxStake {
		return MaxStake
	}
	return stake
}

// extractOdds reads the first decimal-looking run. Odds of 1.0 or below are
// not valid prices and are treated as missing.
func extractOdds(line string) (float64, bool) {
	run := floatRun.FindString(line)
	if run == "" {
		return 0, false
	}

	odds, err := strconv.ParseFloat(strings.Replace(run, ",", ".", 1), 64)
	if err != nil || math.IsInf(odds, 0) || odds <= 1.0 {
		return 0, false
	}
	return odds, true
}

// extractScore reads "Score: 3-1" / "FT 2:0" / "Result 1-1" style lines
func extractScore(line string) (int, int, bool) {
	if !strings.Contains(line, "Score") && !strings.Contains(line, "FT") && !strings.Contains(line, "Result") {
		return 0, 0, false
	}

	m := scoreRun.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}

	home, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	away, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return home, away, true
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

// segment groups lines into blocks separated by runs of blank lines
func segment(lines []string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, line := range lines {
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
