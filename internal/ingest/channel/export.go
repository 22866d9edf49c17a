// Package channel reads tip posts out of Telegram HTML: the Desktop app's chat
// export and the public t.me/s web preview.
package channel

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fortuna/syndicate/internal/ingest"
)

// Date layouts of the title attribute in a Desktop export
const (
	exportDateLayout       = "02.01.2006 15:04:05 UTC-07:00"
	exportDateLayoutNoZone = "02.01.2006 15:04:05"
)

// ParseExport reads the messages of a Telegram Desktop export
// (messages.html). Service messages and messages without text are skipped.
// chat names the channel in the resulting source refs.
func ParseExport(r io.Reader, chat string) ([]ingest.Post, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse export HTML: %w", err)
	}

	var posts []ingest.Post
	doc.Find("div.message.default").Each(func(_ int, s *goquery.Selection) {
		id, ok := exportMessageID(s.AttrOr("id", ""))
		if !ok {
			return
		}

		text := messageText(s.Find("div.text").First())
		if text == "" {
			return
		}

		date, _ := parseExportDate(s.Find("div.date").First().AttrOr("title", ""))

		posts = append(posts, ingest.Post{
			Source:    ingest.SourceExport,
			Chat:      chat,
			MessageID: id,
			Date:      date,
			Text:      text,
		})
	})

	return posts, nil
}

// exportMessageID reads the number from an id attribute such as "message123"
func exportMessageID(attr string) (int64, bool) {
	n, ok := strings.CutPrefix(attr, "message")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(n, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseExportDate(title string) (time.Time, error) {
	title = strings.TrimSpace(title)
	if t, err := time.Parse(exportDateLayout, title); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(exportDateLayoutNoZone, title)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing export date %q: %w", title, err)
	}
	return t.UTC(), nil
}

// messageText flattens a message body, keeping line breaks
func messageText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	s = s.Clone()
	s.Find("br").ReplaceWithHtml("\n")

	lines := strings.Split(s.Text(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
