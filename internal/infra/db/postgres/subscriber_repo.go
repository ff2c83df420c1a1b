package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"
)

// Ensure subscriberRepo implements repository.SubscriberStore
var _ repository.SubscriberStore = (*subscriberRepo)(nil)

type subscriberRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriberRepo(pool *pgxpool.Pool) *subscriberRepo {
	return &subscriberRepo{pool: pool}
}

// Migrate creates the tables when they do not exist yet.
func (r *subscriberRepo) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS subscription_records (
  member_id       TEXT PRIMARY KEY,
  status          TEXT NOT NULL,
  expires_at      TIMESTAMPTZ NOT NULL,
  last_payment_at TIMESTAMPTZ NOT NULL,
  expired_at      TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS processed_payments (
  request_id   TEXT PRIMARY KEY,
  processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pending_verifications (
  id          TEXT PRIMARY KEY,
  request_id  TEXT NOT NULL,
  member_id   TEXT,
  reason      TEXT NOT NULL,
  occurred_at TIMESTAMPTZ NOT NULL
);`
	_, err := r.pool.Exec(ctx, q)
	return err
}

func (r *subscriberRepo) Find(ctx context.Context, memberID string) (*model.SubscriptionRecord, error) {
	const q = `
SELECT member_id, status, expires_at, last_payment_at, expired_at
  FROM subscription_records
 WHERE member_id=$1;`
	return r.queryOne(ctx, q, memberID)
}

func (r *subscriberRepo) Upsert(ctx context.Context, rec *model.SubscriptionRecord) error {
	if rec == nil || rec.MemberID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO subscription_records (member_id, status, expires_at, last_payment_at, expired_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (member_id) DO UPDATE SET
  status=$2, expires_at=$3, last_payment_at=$4, expired_at=$5;`
	_, err := r.pool.Exec(ctx, q, rec.MemberID, rec.Status, rec.ExpiresAt, rec.LastPaymentAt, rec.ExpiredAt)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriberRepo) All(ctx context.Context) ([]*model.SubscriptionRecord, error) {
	const q = `
SELECT member_id, status, expires_at, last_payment_at, expired_at
  FROM subscription_records
 ORDER BY member_id ASC;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.SubscriptionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *subscriberRepo) Processed(ctx context.Context, requestID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM processed_payments WHERE request_id=$1);`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, requestID).Scan(&exists); err != nil {
		return false, domain.ErrOperationFailed
	}
	return exists, nil
}

func (r *subscriberRepo) MarkProcessed(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, domain.ErrInvalidArgument
	}
	const q = `INSERT INTO processed_payments (request_id) VALUES ($1);`
	_, err := r.pool.Exec(ctx, q, requestID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// unique violation: another call claimed the reference
			return false, nil
		}
		return false, domain.ErrOperationFailed
	}
	return true, nil
}

func (r *subscriberRepo) AppendPending(ctx context.Context, entry *model.PendingVerification) error {
	if entry == nil || entry.RequestID == "" {
		return domain.ErrInvalidArgument
	}
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	const q = `
INSERT INTO pending_verifications (id, request_id, member_id, reason, occurred_at)
VALUES ($1,$2,$3,$4,$5);`
	if _, err := r.pool.Exec(ctx, q, id, entry.RequestID, entry.MemberID, entry.Reason, entry.OccurredAt); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriberRepo) ListPending(ctx context.Context) ([]*model.PendingVerification, error) {
	const q = `
SELECT id, request_id, member_id, reason, occurred_at
  FROM pending_verifications
 ORDER BY occurred_at ASC;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	var out []*model.PendingVerification
	for rows.Next() {
		e := &model.PendingVerification{}
		var memberID *string
		if err := rows.Scan(&e.ID, &e.RequestID, &memberID, &e.Reason, &e.OccurredAt); err != nil {
			return nil, domain.ErrOperationFailed
		}
		if memberID != nil {
			e.MemberID = *memberID
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *subscriberRepo) queryOne(ctx context.Context, sql string, args ...any) (*model.SubscriptionRecord, error) {
	row := r.pool.QueryRow(ctx, sql, args...)
	rec := &model.SubscriptionRecord{}
	var status string
	if err := row.Scan(&rec.MemberID, &status, &rec.ExpiresAt, &rec.LastPaymentAt, &rec.ExpiredAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrOperationFailed
	}
	rec.Status = model.SubscriptionStatus(status)
	return rec, nil
}

func scanRecord(rows pgx.Rows) (*model.SubscriptionRecord, error) {
	rec := &model.SubscriptionRecord{}
	var status string
	if err := rows.Scan(&rec.MemberID, &status, &rec.ExpiresAt, &rec.LastPaymentAt, &rec.ExpiredAt); err != nil {
		return nil, domain.ErrOperationFailed
	}
	rec.Status = model.SubscriptionStatus(status)
	return rec, nil
}
