package application

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/domain/ports/repository"
)

// BotFacade composes the onboarding flow into high-level bot commands.
// Methods return the text (and optional button) the Telegram adapter forwards
// to the chat, so the adapter stays a thin transport.
type BotFacade struct {
	store    repository.SubscriberStore
	gateway  adapter.PaymentGateway
	price    int64
	currency string
	period   time.Duration
	baseURL  string
	log      *zerolog.Logger
}

func NewBotFacade(
	store repository.SubscriberStore,
	gateway adapter.PaymentGateway,
	price int64,
	currency string,
	period time.Duration,
	baseURL string,
	logger *zerolog.Logger,
) *BotFacade {
	l := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		store:    store,
		gateway:  gateway,
		price:    price,
		currency: currency,
		period:   period,
		baseURL:  baseURL,
		log:      &l,
	}
}

// CallToAction is a rendered payment prompt: message text plus one URL button.
type CallToAction struct {
	Text        string
	ButtonLabel string
	ButtonURL   string
}

// HandleStart renders the payment call-to-action for the member. The member
// identity rides in the payment request's purpose field ("tg=<id>") so the
// webhook can correlate the payment back to this chat.
func (b *BotFacade) HandleStart(ctx context.Context, tgID int64) (*CallToAction, error) {
	memberID := strconv.FormatInt(tgID, 10)
	purpose := "tg=" + memberID

	redirect := b.baseURL + "/payment/success"
	webhook := b.baseURL + "/webhook/instamojo"
	_, checkoutURL, err := b.gateway.CreatePaymentRequest(ctx, b.price, purpose, redirect, webhook)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("payment request creation failed")
		return nil, fmt.Errorf("create payment request: %w", err)
	}
	if _, err := url.Parse(checkoutURL); err != nil {
		return nil, fmt.Errorf("gateway returned invalid checkout url: %w", err)
	}

	days := int(b.period.Hours() / 24)
	text := fmt.Sprintf(
		"🙏 Welcome!\n\n⚡ Exclusive access to our premium channel.\n\n👉 Join for %d %s / %d days.\n\nTap below to pay securely 👇",
		b.price, b.currency, days,
	)
	label := fmt.Sprintf("💳 Pay %d %s", b.price, b.currency)
	return &CallToAction{Text: text, ButtonLabel: label, ButtonURL: checkoutURL}, nil
}

// HandleStatus reports the member's current access window.
func (b *BotFacade) HandleStatus(ctx context.Context, tgID int64) (string, error) {
	memberID := strconv.FormatInt(tgID, 10)
	rec, err := b.store.Find(ctx, memberID)
	if err == domain.ErrNotFound {
		return "You have no subscription yet. Send /start to join.", nil
	}
	if err != nil {
		return "", fmt.Errorf("find record: %w", err)
	}
	if rec.Status == model.SubscriptionStatusActive {
		return fmt.Sprintf("✅ Your subscription is active until %s.", rec.ExpiresAt.Format("2006-01-02 15:04 MST")), nil
	}
	return "❌ Your subscription has expired. Send /start to renew.", nil
}
