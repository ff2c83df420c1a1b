package telegram

import (
	"context"
	"fmt"
	"log"
	"time"

	"telegram-channel-subscription/internal/domain/ports/adapter"
)

var _ adapter.ChannelBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.ChannelBotAdapter for local/dev testing.
// It logs calls instead of talking to Telegram.
type NoopBotAdapter struct{}

func NewNoopBotAdapter() *NoopBotAdapter {
	return &NoopBotAdapter{}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	log.Printf("[noop-telegram] To member %d: %s\n", tgID, text)
	return nil
}

func (b *NoopBotAdapter) SendURLButton(ctx context.Context, tgID int64, text, label, url string) error {
	log.Printf("[noop-telegram] To member %d: %s [button %q -> %s]\n", tgID, text, label, url)
	return nil
}

func (b *NoopBotAdapter) CreateInviteLink(ctx context.Context, ttl time.Duration) (string, error) {
	link := fmt.Sprintf("https://t.me/+noop-%d", time.Now().UnixNano())
	log.Printf("[noop-telegram] CreateInviteLink ttl=%s -> %s\n", ttl, link)
	return link, nil
}

func (b *NoopBotAdapter) RemoveMember(ctx context.Context, tgID int64) error {
	log.Printf("[noop-telegram] RemoveMember %d (kick + unban)\n", tgID)
	return nil
}
