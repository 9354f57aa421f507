package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

const telegramTextLimit = 4000

// Telegram sends messages through the Bot API. The bot is created offline so
// constructing it never calls Telegram.
type Telegram struct {
	bot *tele.Bot
}

func NewTelegram(token string) (*Telegram, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: 8 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b}, nil
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) error {
	chat := &tele.Chat{ID: chatID}
	for _, chunk := range splitText(text, telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(chat, chunk, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
			return err
		}
	}
	return nil
}

// SetWebhook points Telegram at publicURL, asking it to send secret in the
// X-Telegram-Bot-Api-Secret-Token header.
func (t *Telegram) SetWebhook(publicURL, secret string) error {
	return t.bot.SetWebhook(&tele.Webhook{
		SecretToken: secret,
		Endpoint:    &tele.WebhookEndpoint{PublicURL: publicURL},
	})
}

// splitText breaks long messages on newlines where possible.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	var out []string
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start+limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
	}
	return out
}
