package model

import (
	"strconv"
	"time"

	"telegram-channel-subscription/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// SubscriptionRecord is the access window of a single channel member. It is keyed
// by MemberID, the string form of the member's numeric Telegram identity. A member
// has at most one record; it is created on first successful payment and never deleted.
type SubscriptionRecord struct {
	MemberID      string             `json:"member_id"`
	Status        SubscriptionStatus `json:"status"`
	ExpiresAt     time.Time          `json:"expires_at"`
	LastPaymentAt time.Time          `json:"last_payment_at"`
	ExpiredAt     *time.Time         `json:"expired_at,omitempty"`
}

// NewSubscriptionRecord activates a record for memberID with expiry = now + period.
func NewSubscriptionRecord(memberID string, now time.Time, period time.Duration) (*SubscriptionRecord, error) {
	if _, err := ParseMemberID(memberID); err != nil {
		return nil, err
	}
	if period <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionRecord{
		MemberID:      memberID,
		Status:        SubscriptionStatusActive,
		ExpiresAt:     now.Add(period),
		LastPaymentAt: now,
	}, nil
}

// Renew reactivates the record with a fresh expiry. Re-subscription restarts the
// clock from now; it never extends the previous window.
func (r *SubscriptionRecord) Renew(now time.Time, period time.Duration) {
	r.Status = SubscriptionStatusActive
	r.ExpiresAt = now.Add(period)
	r.LastPaymentAt = now
	r.ExpiredAt = nil
}

// Expire flips an active record to expired. Only the sweeper calls this, and only
// when now has reached ExpiresAt.
func (r *SubscriptionRecord) Expire(now time.Time) {
	r.Status = SubscriptionStatusExpired
	r.ExpiredAt = &now
}

// Due reports whether the record should be revoked at now.
func (r *SubscriptionRecord) Due(now time.Time) bool {
	return r.Status == SubscriptionStatusActive && !r.ExpiresAt.After(now)
}

// ParseMemberID validates a member identity token: the decimal form of a positive
// Telegram chat id. Returns the numeric id for adapter calls.
func ParseMemberID(memberID string) (int64, error) {
	id, err := strconv.ParseInt(memberID, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	return id, nil
}

// PendingVerification is a journal entry for a payment notification that could not
// be fully processed (gateway unreachable, invite minting failed). Entries are kept
// for manual reconciliation and never retried automatically.
type PendingVerification struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	Reason     string    `json:"reason"`
	MemberID   string    `json:"member_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
