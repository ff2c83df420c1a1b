package repository

import (
	"context"

	"telegram-channel-subscription/internal/domain/model"
)

// SubscriberStore is the port for the durable member -> subscription mapping plus
// the bookkeeping the webhook path needs: processed payment references and the
// pending-verification journal. Implementations must persist synchronously and
// guarantee readers never observe a partially-written record.
type SubscriberStore interface {
	Find(ctx context.Context, memberID string) (*model.SubscriptionRecord, error)
	Upsert(ctx context.Context, rec *model.SubscriptionRecord) error
	All(ctx context.Context) ([]*model.SubscriptionRecord, error)

	// Processed reports whether requestID was already granted.
	Processed(ctx context.Context, requestID string) (bool, error)
	// MarkProcessed records requestID durably. Returns false when another call
	// already claimed it.
	MarkProcessed(ctx context.Context, requestID string) (bool, error)

	// AppendPending journals a notification that needs manual follow-up.
	AppendPending(ctx context.Context, entry *model.PendingVerification) error
	ListPending(ctx context.Context) ([]*model.PendingVerification, error)
}
