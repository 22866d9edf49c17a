package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/syndicate/internal/ingest"
)

type fakeBot struct {
	updates []tgbotapi.Update
	config  tgbotapi.UpdateConfig
	sent    []tgbotapi.Chattable
	err     error
}

func (f *fakeBot) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.config = cfg
	return f.updates, f.err
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

var postedAt = time.Date(2026, 2, 7, 17, 30, 0, 0, time.UTC)

func message(id int, chat int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: id,
		Chat:      &tgbotapi.Chat{ID: chat},
		Date:      int(postedAt.Unix()),
		Text:      text,
	}
}

func TestFetchPosts(t *testing.T) {
	bot := &fakeBot{updates: []tgbotapi.Update{
		{UpdateID: 1, ChannelPost: message(10, -1001, "Celtic v Rangers\n⚽ BTTS ✅")},
		{UpdateID: 2, Message: message(11, 555, "direct message")},
		{UpdateID: 3, ChannelPost: message(12, -1001, "")},
		{UpdateID: 4, ChannelPost: &tgbotapi.Message{MessageID: 13, Chat: &tgbotapi.Chat{ID: -1001}, Caption: "photo caption", Date: int(postedAt.Unix())}},
		{UpdateID: 5},
	}}
	c := NewClientWithBot(bot, "@tips")

	posts, err := c.FetchPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, UpdateLimit, bot.config.Limit)
	assert.Equal(t, []string{"message", "channel_post"}, bot.config.AllowedUpdates)
	require.Len(t, posts, 3)
	assert.Equal(t, ingest.Post{
		Source:    ingest.SourceTelegram,
		Chat:      "-1001",
		MessageID: 10,
		Date:      postedAt,
		Text:      "Celtic v Rangers\n⚽ BTTS ✅",
	}, posts[0])
	assert.Equal(t, "555", posts[1].Chat)
	assert.Equal(t, "photo caption", posts[2].Text)
}

func TestFetchPosts_Errors(t *testing.T) {
	_, err := (&Client{}).FetchPosts(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	boom := errors.New("409 conflict")
	_, err = NewClientWithBot(&fakeBot{err: boom}, "").FetchPosts(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPostText(t *testing.T) {
	bot := &fakeBot{}

	require.NoError(t, NewClientWithBot(bot, "@tips").PostText(context.Background(), "Bets live"))
	require.NoError(t, NewClientWithBot(bot, "-1001").PostText(context.Background(), "Results"))
	require.Len(t, bot.sent, 2)

	toChannel := bot.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "@tips", toChannel.ChannelUsername)
	assert.Equal(t, "Bets live", toChannel.Text)

	toChat := bot.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(-1001), toChat.ChatID)

	assert.Error(t, NewClientWithBot(bot, "tips").PostText(context.Background(), "x"))
	assert.ErrorIs(t, NewClientWithBot(bot, "").PostText(context.Background(), "x"), ErrNotConfigured)
}
