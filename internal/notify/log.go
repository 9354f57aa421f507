package notify

import (
	"context"

	"github.com/example/classbook/internal/logx"
)

// LogSender writes messages to the log. It stands in for Telegram when no
// bot token is configured.
type LogSender struct {
	Log logx.Logger
}

func (l LogSender) SendText(ctx context.Context, chatID int64, text string) error {
	l.Log.Info("notification", logx.Int64("chat", chatID), logx.String("text", text))
	return nil
}
