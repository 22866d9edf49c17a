package channel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/fortuna/syndicate/internal/ingest"
	"github.com/fortuna/syndicate/internal/logger"
)

const (
	// PreviewURL is the public web preview of a channel
	PreviewURL = "https://t.me/s/"

	// UserAgent for page loads
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// MinRequestInterval between page loads
	MinRequestInterval = 2 * time.Second

	// DefaultScrolls is how many times the page is scrolled up to load older posts
	DefaultScrolls = 3

	fetchTimeout = 60 * time.Second
)

// Fetcher renders channel preview pages in headless Chrome
type Fetcher struct {
	mu          sync.Mutex
	lastRequest time.Time
	interval    time.Duration
	scrolls     int

	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewFetcher creates a fetcher. Chrome is started lazily on the first fetch.
func NewFetcher(scrolls int) *Fetcher {
	if scrolls < 0 {
		scrolls = 0
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		interval: MinRequestInterval,
		scrolls:  scrolls,
		allocCtx: allocCtx,
		cancel:   cancel,
	}
}

// Close releases the browser
func (f *Fetcher) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

// PageURL returns the preview URL for a channel name, with or without "@"
func PageURL(channel string) string {
	return PreviewURL + strings.TrimPrefix(strings.TrimSpace(channel), "@")
}

// FetchPosts loads a channel's preview page and parses its posts
func (f *Fetcher) FetchPosts(ctx context.Context, channel string) ([]ingest.Post, error) {
	html, err := f.FetchHTML(ctx, channel)
	if err != nil {
		return nil, err
	}

	posts, err := ParsePage(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Str("channel", channel).Int("posts", len(posts)).Msg("Fetched channel page")
	return posts, nil
}

// FetchHTML returns the rendered preview page of a channel
func (f *Fetcher) FetchHTML(ctx context.Context, channel string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return "", err
	}
	html, err := f.fetch(ctx, PageURL(channel))
	f.lastRequest = time.Now()
	return html, err
}

// wait enforces the minimum interval between page loads
func (f *Fetcher) wait(ctx context.Context) error {
	if f.lastRequest.IsZero() {
		return nil
	}
	elapsed := time.Since(f.lastRequest)
	if elapsed >= f.interval {
		return nil
	}

	waitTime := f.interval - elapsed
	logger.Debug(ctx).Dur("wait", waitTime).Msg("Rate limiting channel fetch")

	timer := time.NewTimer(waitTime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(f.allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, fetchTimeout)
	defer cancel()

	// Stop the browser when the caller goes away
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(1 * time.Second),
	}
	// Older posts load when the page is scrolled to the top
	for i := 0; i < f.scrolls; i++ {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, 0)`, nil),
			chromedp.Sleep(1500*time.Millisecond),
		)
	}

	var htmlContent string
	actions = append(actions, chromedp.OuterHTML(`html`, &htmlContent, chromedp.ByQuery))

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp error: %w", err)
	}
	if htmlContent == "" {
		return "", fmt.Errorf("empty HTML content returned")
	}
	return htmlContent, nil
}
