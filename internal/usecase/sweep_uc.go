// File: internal/usecase/sweep_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/domain/ports/repository"
	"telegram-channel-subscription/internal/infra/metrics"
)

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

type SweepUseCase interface {
	// Sweep transitions every active record whose expiry has passed at now and
	// returns the number of records transitioned. Idempotent: a second run with
	// no newly-due records is a no-op.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

const renewalPrompt = "⏰ Your channel subscription has expired and your access was removed.\n\nSend /start to renew."

type sweepUC struct {
	store repository.SubscriberStore
	bot   adapter.ChannelBotAdapter
	log   *zerolog.Logger
}

func NewSweepUseCase(store repository.SubscriberStore, bot adapter.ChannelBotAdapter, logger *zerolog.Logger) *sweepUC {
	l := logger.With().Str("component", "SweepUseCase").Logger()
	return &sweepUC{store: store, bot: bot, log: &l}
}

func (u *sweepUC) Sweep(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	recs, err := u.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan records: %w", err)
	}

	count := 0
	for _, rec := range recs {
		if !rec.Due(now) {
			continue
		}
		if u.revoke(ctx, rec, now) {
			count++
		}
	}

	metrics.ObserveSweepDuration(time.Since(start).Seconds())
	if count > 0 {
		metrics.IncSubscriptionsExpired(count)
		u.log.Info().Int("count", count).Msg("expired subscriptions revoked")
	}
	return count, nil
}

// revoke handles a single due record. Removal, state transition and notification
// are independent: removal failure (member already left) never blocks the
// transition, and a failed transition for one member never blocks the rest.
// Reports whether the state transition was persisted.
func (u *sweepUC) revoke(ctx context.Context, rec *model.SubscriptionRecord, now time.Time) bool {
	log := u.log.With().Str("member_id", rec.MemberID).Logger()

	tgID, err := model.ParseMemberID(rec.MemberID)
	if err != nil {
		log.Error().Msg("record with malformed member id; skipping removal")
	} else if err := u.bot.RemoveMember(ctx, tgID); err != nil {
		log.Warn().Err(err).Msg("channel removal failed; transitioning anyway")
	}

	rec.Expire(now)
	if err := u.store.Upsert(ctx, rec); err != nil {
		log.Error().Err(err).Msg("failed to persist expiry transition")
		return false
	}

	if tgID != 0 {
		if err := u.bot.SendMessage(ctx, tgID, renewalPrompt); err != nil {
			log.Warn().Err(err).Msg("renewal prompt delivery failed")
		}
	}
	log.Info().Time("expired_at", now).Msg("subscription expired")
	return true
}
