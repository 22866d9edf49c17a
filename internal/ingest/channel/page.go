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

// ParsePage reads the posts of a public channel preview page
// (https://t.me/s/<channel>).
func ParsePage(r io.Reader) ([]ingest.Post, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel HTML: %w", err)
	}

	var posts []ingest.Post
	doc.Find("div.tgme_widget_message[data-post]").Each(func(_ int, s *goquery.Selection) {
		chat, id, ok := splitPostRef(s.AttrOr("data-post", ""))
		if !ok {
			return
		}

		text := messageText(s.Find(".tgme_widget_message_text").First())
		if text == "" {
			return
		}

		var date time.Time
		if dt, ok := s.Find("time[datetime]").First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, dt); err == nil {
				date = t.UTC()
			}
		}

		posts = append(posts, ingest.Post{
			Source:    ingest.SourcePage,
			Chat:      chat,
			MessageID: id,
			Date:      date,
			Text:      text,
		})
	})

	return posts, nil
}

// splitPostRef splits a data-post value such as "sometips/123"
func splitPostRef(ref string) (string, int64, bool) {
	chat, n, ok := strings.Cut(ref, "/")
	if !ok || chat == "" {
		return "", 0, false
	}
	id, err := strconv.ParseInt(n, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return chat, id, true
}
