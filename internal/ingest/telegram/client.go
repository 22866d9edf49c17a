// Package telegram reads tip posts from, and announces notifications to, a
// Telegram channel through the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fortuna/syndicate/internal/ingest"
	"github.com/fortuna/syndicate/internal/logger"
)

// UpdateLimit is the most updates fetched per request
const UpdateLimit = 100

// ErrNotConfigured is returned when no bot token is set
var ErrNotConfigured = errors.New("telegram bot not configured")

// BotAPI is the part of *tgbotapi.BotAPI the client uses
type BotAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client wraps a bot bound to one channel
type Client struct {
	bot     BotAPI
	channel string // @name or numeric chat id
}

// NewClient connects a bot with token. An empty token yields a client whose
// calls return ErrNotConfigured.
func NewClient(token, channel string) (*Client, error) {
	if token == "" {
		return &Client{channel: channel}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting telegram bot: %w", err)
	}
	return NewClientWithBot(bot, channel), nil
}

// NewClientWithBot wraps an existing bot
func NewClientWithBot(bot BotAPI, channel string) *Client {
	return &Client{bot: bot, channel: channel}
}

// Configured reports whether the client has a bot
func (c *Client) Configured() bool {
	return c.bot != nil
}

// FetchPosts returns the text of channel posts and direct messages in the
// pending update queue. The queue is not acknowledged, so repeated calls see
// the same posts until Telegram expires them.
func (c *Client) FetchPosts(ctx context.Context) ([]ingest.Post, error) {
	if c.bot == nil {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Limit = UpdateLimit
	cfg.AllowedUpdates = []string{"message", "channel_post"}

	updates, err := c.bot.GetUpdates(cfg)
	if err != nil {
		return nil, fmt.Errorf("fetching telegram updates: %w", err)
	}

	posts := make([]ingest.Post, 0, len(updates))
	for _, u := range updates {
		msg := u.ChannelPost
		if msg == nil {
			msg = u.Message
		}
		if msg == nil || msg.Chat == nil {
			continue
		}

		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		posts = append(posts, ingest.Post{
			Source:    ingest.SourceTelegram,
			Chat:      strconv.FormatInt(msg.Chat.ID, 10),
			MessageID: int64(msg.MessageID),
			Date:      msg.Time().UTC(),
			Text:      text,
		})
	}

	logger.Debug(ctx).Int("updates", len(updates)).Int("posts", len(posts)).Msg("Fetched telegram updates")
	return posts, nil
}

// PostText sends text to the configured channel
func (c *Client) PostText(ctx context.Context, text string) error {
	if c.bot == nil || c.channel == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(c.channel, "@") {
		msg = tgbotapi.NewMessageToChannel(c.channel, text)
	} else {
		chatID, err := strconv.ParseInt(c.channel, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram channel %q: %w", c.channel, err)
		}
		msg = tgbotapi.NewMessage(chatID, text)
	}

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("posting to telegram: %w", err)
	}
	return nil
}
