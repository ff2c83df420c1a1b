// File: internal/usecase/access_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/domain/ports/repository"
	"telegram-channel-subscription/internal/infra/logging"
	"telegram-channel-subscription/internal/infra/metrics"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

// NotificationOutcome classifies what a payment notification did. Every outcome
// is acknowledged with 2xx at the HTTP boundary; the distinction is for logs,
// metrics and the journal.
type NotificationOutcome string

const (
	OutcomeGranted   NotificationOutcome = "granted"
	OutcomeDuplicate NotificationOutcome = "duplicate"
	OutcomeIgnored   NotificationOutcome = "ignored"
	OutcomeDeferred  NotificationOutcome = "deferred"
)

// PaymentNotification is the parsed inbound webhook payload. Only RequestID is
// trusted; status and metadata are re-fetched from the gateway before granting.
type PaymentNotification struct {
	RequestID string
	Status    string
	Purpose   string
	Metadata  map[string]string
}

type AccessUseCase interface {
	// HandlePaymentNotification reconciles one gateway callback into at most one
	// access grant. Idempotent per request reference.
	HandlePaymentNotification(ctx context.Context, n PaymentNotification) (NotificationOutcome, error)
	// PendingVerifications lists journal entries awaiting manual follow-up.
	PendingVerifications(ctx context.Context) ([]*model.PendingVerification, error)
}

// Locker serializes grant processing per member.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Gateways spell terminal paid states inconsistently between their webhook and
// their API ("Credit" vs "Completed"), so membership in this set is the success
// condition, never string equality.
var paidStatuses = map[string]struct{}{
	"credit":     {},
	"paid":       {},
	"completed":  {},
	"complete":   {},
	"success":    {},
	"successful": {},
}

const persistAttempts = 3

type accessUC struct {
	store    repository.SubscriberStore
	gateway  adapter.PaymentGateway
	bot      adapter.ChannelBotAdapter
	locker   Locker
	period   time.Duration
	invTTL   time.Duration
	currency string
	log      *zerolog.Logger
}

func NewAccessUseCase(
	store repository.SubscriberStore,
	gateway adapter.PaymentGateway,
	bot adapter.ChannelBotAdapter,
	locker Locker,
	period, inviteTTL time.Duration,
	currency string,
	logger *zerolog.Logger,
) *accessUC {
	l := logger.With().Str("component", "AccessUseCase").Logger()
	return &accessUC{
		store:    store,
		gateway:  gateway,
		bot:      bot,
		locker:   locker,
		period:   period,
		invTTL:   inviteTTL,
		currency: currency,
		log:      &l,
	}
}

func (u *accessUC) HandlePaymentNotification(ctx context.Context, n PaymentNotification) (NotificationOutcome, error) {
	reqID := strings.TrimSpace(n.RequestID)
	if reqID == "" {
		metrics.IncWebhookNotification(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}
	log := logging.With(ctx, u.log).With().Str("request_id", reqID).Logger()

	done, err := u.store.Processed(ctx, reqID)
	if err != nil {
		return OutcomeDeferred, fmt.Errorf("processed lookup: %w", err)
	}
	if done {
		log.Info().Msg("duplicate notification short-circuited")
		metrics.IncWebhookNotification(string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}

	// Re-fetch from the gateway; the callback body is not authoritative.
	req, err := u.gateway.FetchPaymentRequest(ctx, reqID)
	if err != nil {
		metrics.IncPaymentVerification("error")
		u.journal(ctx, reqID, "", "gateway verification failed: "+err.Error())
		log.Warn().Err(err).Msg("gateway fetch failed; journaled for reconciliation")
		metrics.IncWebhookNotification(string(OutcomeDeferred))
		return OutcomeDeferred, nil
	}
	metrics.IncPaymentVerification("ok")

	if !IsPaidStatus(req.Status) {
		log.Debug().Str("status", req.Status).Msg("notification for non-terminal status ignored")
		metrics.IncWebhookNotification(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	memberID, ok := ExtractMemberID(req)
	if !ok {
		// Unrelated or malformed callback traffic; not an error.
		log.Info().Str("purpose", req.Purpose).Msg("no valid member identity in payment metadata; ignored")
		metrics.IncWebhookNotification(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}
	tgID, err := model.ParseMemberID(memberID)
	if err != nil {
		metrics.IncWebhookNotification(string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}
	log = log.With().Str("member_id", memberID).Logger()

	token, err := u.locker.TryLock(ctx, "grant:"+memberID, 30*time.Second)
	if err != nil {
		u.journal(ctx, reqID, memberID, "member lock unavailable")
		log.Warn().Err(err).Msg("member busy; journaled for reconciliation")
		metrics.IncWebhookNotification(string(OutcomeDeferred))
		return OutcomeDeferred, nil
	}
	defer func() { _ = u.locker.Unlock(ctx, "grant:"+memberID, token) }()

	// Re-check under the lock: a concurrent duplicate may have won the race.
	if done, err := u.store.Processed(ctx, reqID); err == nil && done {
		metrics.IncWebhookNotification(string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}

	invite, err := u.bot.CreateInviteLink(ctx, u.invTTL)
	if err != nil {
		// No silent grant without a way in: leave the reference unprocessed so a
		// gateway redelivery can finish the job, and journal it meanwhile.
		u.journal(ctx, reqID, memberID, "invite link creation failed: "+err.Error())
		log.Error().Err(err).Msg("invite creation failed; journaled for follow-up")
		metrics.IncWebhookNotification(string(OutcomeDeferred))
		return OutcomeDeferred, nil
	}

	now := time.Now().UTC()
	rec, err := u.store.Find(ctx, memberID)
	switch {
	case err == nil:
		rec.Renew(now, u.period)
	case err == domain.ErrNotFound:
		rec, err = model.NewSubscriptionRecord(memberID, now, u.period)
		if err != nil {
			metrics.IncWebhookNotification(string(OutcomeIgnored))
			return OutcomeIgnored, nil
		}
	default:
		return OutcomeDeferred, fmt.Errorf("record lookup: %w", err)
	}

	// Durability boundary: the grant must be on disk before the member hears
	// about it. A handful of immediate retries, then manual territory.
	if err := u.persist(ctx, rec); err != nil {
		u.journal(ctx, reqID, memberID, "record persist failed: "+err.Error())
		log.Error().Err(err).Msg("grant persist failed after retries")
		metrics.IncWebhookNotification(string(OutcomeDeferred))
		return OutcomeDeferred, err
	}
	if claimed, err := u.store.MarkProcessed(ctx, reqID); err != nil {
		log.Error().Err(err).Msg("grant persisted but reference not marked processed")
	} else if !claimed {
		log.Warn().Msg("reference claimed concurrently after persist")
	}

	text := fmt.Sprintf(
		"🎉 Payment successful!\n\nHere is your private channel invite (valid %d minutes, single use):\n%s",
		int(u.invTTL.Minutes()), invite,
	)
	if err := u.bot.SendMessage(ctx, tgID, text); err != nil {
		// Grant already durable; the member can be re-notified manually.
		log.Error().Err(err).Msg("invite message delivery failed")
	}

	metrics.IncSubscriptionsGranted()
	metrics.AddPaymentRevenue(u.currency, req.Amount)
	metrics.IncWebhookNotification(string(OutcomeGranted))
	log.Info().Time("expires_at", rec.ExpiresAt).Msg("access granted")
	return OutcomeGranted, nil
}

func (u *accessUC) PendingVerifications(ctx context.Context) ([]*model.PendingVerification, error) {
	entries, err := u.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetPendingVerifications(len(entries))
	return entries, nil
}

func (u *accessUC) persist(ctx context.Context, rec *model.SubscriptionRecord) error {
	var err error
	for i := 0; i < persistAttempts; i++ {
		if err = u.store.Upsert(ctx, rec); err == nil {
			return nil
		}
	}
	return err
}

func (u *accessUC) journal(ctx context.Context, reqID, memberID, reason string) {
	entry := &model.PendingVerification{
		RequestID:  reqID,
		MemberID:   memberID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	if err := u.store.AppendPending(ctx, entry); err != nil {
		u.log.Error().Err(err).Str("request_id", reqID).Msg("failed to journal pending verification")
	}
}

// IsPaidStatus normalizes a provider status and tests it against the recognized
// terminal paid vocabulary.
func IsPaidStatus(status string) bool {
	_, ok := paidStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

// ExtractMemberID pulls the member identity the command handler embedded at
// payment-creation time. Providers hand it back either as a structured metadata
// map or folded into the free-text purpose field, possibly JSON-encoded.
func ExtractMemberID(req *adapter.PaymentRequest) (string, bool) {
	for _, key := range []string{"telegram_user_id", "telegram_id", "tg"} {
		if v, ok := req.Metadata[key]; ok {
			if id, valid := validMemberID(v); valid {
				return id, true
			}
		}
	}
	return memberIDFromPurpose(req.Purpose)
}

func memberIDFromPurpose(purpose string) (string, bool) {
	p := strings.TrimSpace(purpose)
	if p == "" {
		return "", false
	}
	// "tg=12345" as rendered into the payment link.
	if v, ok := strings.CutPrefix(p, "tg="); ok {
		return validMemberID(v)
	}
	// One decode step for JSON-encoded metadata strings.
	if strings.HasPrefix(p, "{") {
		var m map[string]string
		if err := json.Unmarshal([]byte(p), &m); err != nil {
			return "", false
		}
		for _, key := range []string{"telegram_user_id", "telegram_id", "tg"} {
			if v, ok := m[key]; ok {
				return validMemberID(v)
			}
		}
		return "", false
	}
	return validMemberID(p)
}

func validMemberID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if _, err := model.ParseMemberID(s); err != nil {
		return "", false
	}
	return s, true
}
