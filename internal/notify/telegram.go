package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// maxDigestTitles caps the headlines listed in one message.
const maxDigestTitles = 5

// Messenger sends a formatted message. *telegram.Client satisfies it.
type Messenger interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramSink posts a short digest of each update.
type TelegramSink struct {
	client Messenger
}

func NewTelegramSink(client Messenger) *TelegramSink {
	return &TelegramSink{client: client}
}

func (s *TelegramSink) Send(ctx context.Context, ev Event) error {
	if ev.Type != TypeNewsUpdated || ev.Count == 0 {
		return nil
	}
	return s.client.SendMessage(ctx, Digest(ev))
}

// Digest renders ev as Telegram HTML.
func Digest(ev Event) string {
	var b strings.Builder
	label := ev.Category
	if ev.Context != "" {
		label += " · " + ev.Context
	}
	fmt.Fprintf(&b, "📰 <b>%s</b>: %d new", html.EscapeString(label), ev.Count)

	for i, title := range ev.Titles {
		if i == maxDigestTitles {
			fmt.Fprintf(&b, "\n… and %d more", len(ev.Titles)-maxDigestTitles)
			break
		}
		b.WriteString("\n• " + html.EscapeString(title))
	}
	return b.String()
}
