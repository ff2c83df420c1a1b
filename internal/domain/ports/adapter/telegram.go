// File: internal/domain/ports/adapter/telegram.go
package adapter

import (
	"context"
	"time"
)

// ChannelBotAdapter is the hex port for the messaging platform. The adapter owns
// the channel identity; callers only name the member.
type ChannelBotAdapter interface {
	// SendMessage delivers a plain-text direct message.
	SendMessage(ctx context.Context, telegramID int64, text string) error
	// SendURLButton delivers text with a single inline URL button.
	SendURLButton(ctx context.Context, telegramID int64, text, label, url string) error
	// CreateInviteLink mints a single-redemption invite to the private channel,
	// valid for ttl from now.
	CreateInviteLink(ctx context.Context, ttl time.Duration) (string, error)
	// RemoveMember kicks the member from the channel and immediately lifts the
	// ban so a re-invited member can rejoin.
	RemoveMember(ctx context.Context, telegramID int64) error
}
