package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/syndicate/internal/importer"
	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/tipparse"
)

// previewLength caps post text shown in previews
const previewLength = 200

// Source tags, used as the first segment of a source ref
const (
	SourceTelegram = "telegram"
	SourceExport   = "export"
	SourcePage     = "tme"
)

// Post is one message read from a tip channel
type Post struct {
	Source    string    `json:"source"`
	Chat      string    `json:"chat"`
	MessageID int64     `json:"message_id"`
	Date      time.Time `json:"date"`
	Text      string    `json:"text"`
}

// Ref identifies the n-th result parsed from the post
func (p Post) Ref(n int) string {
	return fmt.Sprintf("%s:%s:%d:%d", p.Source, p.Chat, p.MessageID, n)
}

// ParsedPost pairs a post with the results found in it
type ParsedPost struct {
	MessageID int64                   `json:"message_id"`
	Date      time.Time               `json:"date"`
	Text      string                  `json:"text"`
	Results   []tipparse.ParsedResult `json:"parsed_results"`
}

// Ingester parses channel posts and imports their results
type Ingester struct {
	parser   *tipparse.Parser
	importer *importer.Importer
}

// NewIngester creates an ingester. Imported bets are tagged with the
// "Imported" league.
func NewIngester(parser *tipparse.Parser, imp *importer.Importer) *Ingester {
	return &Ingester{parser: parser, importer: imp.WithLeague(importer.LeagueImported)}
}

// Preview parses posts without persisting. Posts with no results are dropped
// and text is truncated for display.
func (in *Ingester) Preview(posts []Post) []ParsedPost {
	out := make([]ParsedPost, 0, len(posts))
	for _, p := range posts {
		results := in.parser.Parse(p.Text)
		if len(results) == 0 {
			continue
		}
		out = append(out, ParsedPost{
			MessageID: p.MessageID,
			Date:      p.Date,
			Text:      truncate(p.Text, previewLength),
			Results:   results,
		})
	}
	return out
}

// Records converts posts into import records, one per parsed result, with the
// post date as kick-off and a stable source ref
func (in *Ingester) Records(posts []Post) []importer.Record {
	var records []importer.Record
	for _, p := range posts {
		for n, r := range in.parser.Parse(p.Text) {
			records = append(records, importer.Record{
				Result:    r,
				KickOff:   p.Date,
				SourceRef: p.Ref(n),
			})
		}
	}
	return records
}

// Import persists every result found in posts. Results already imported from
// the same post are skipped.
func (in *Ingester) Import(ctx context.Context, posts []Post) (*importer.Report, error) {
	records := in.Records(posts)
	if len(records) == 0 {
		return &importer.Report{}, nil
	}

	logger.Info(ctx).Int("posts", len(posts)).Int("results", len(records)).Msg("Importing channel posts")
	return in.importer.Import(ctx, records)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
