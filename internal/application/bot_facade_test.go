//go:build !integration

package application_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-subscription/internal/application"
	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
)

type stubStore struct {
	mu      sync.Mutex
	records map[string]*model.SubscriptionRecord
}

func (s *stubStore) Find(ctx context.Context, memberID string) (*model.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *stubStore) Upsert(ctx context.Context, rec *model.SubscriptionRecord) error { return nil }
func (s *stubStore) All(ctx context.Context) ([]*model.SubscriptionRecord, error)    { return nil, nil }
func (s *stubStore) Processed(ctx context.Context, requestID string) (bool, error)   { return false, nil }
func (s *stubStore) MarkProcessed(ctx context.Context, requestID string) (bool, error) {
	return true, nil
}
func (s *stubStore) AppendPending(ctx context.Context, entry *model.PendingVerification) error {
	return nil
}
func (s *stubStore) ListPending(ctx context.Context) ([]*model.PendingVerification, error) {
	return nil, nil
}

type stubGateway struct {
	lastPurpose string
	lastAmount  int64
	createErr   error
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) CreatePaymentRequest(ctx context.Context, amount int64, purpose, redirectURL, webhookURL string) (string, string, error) {
	if g.createErr != nil {
		return "", "", g.createErr
	}
	g.lastPurpose = purpose
	g.lastAmount = amount
	return "req-1", "https://pay.example.com/req-1", nil
}

func (g *stubGateway) FetchPaymentRequest(ctx context.Context, requestID string) (*adapter.PaymentRequest, error) {
	return nil, domain.ErrNotFound
}

func newFacade(store *stubStore, gw *stubGateway) *application.BotFacade {
	logger := zerolog.New(io.Discard)
	return application.NewBotFacade(store, gw, 299, "INR", 30*24*time.Hour, "https://acme.example", &logger)
}

func TestBotFacade_HandleStart(t *testing.T) {
	ctx := context.Background()

	t.Run("renders a pay button carrying the member identity", func(t *testing.T) {
		gw := &stubGateway{}
		cta, err := newFacade(&stubStore{}, gw).HandleStart(ctx, 12345)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if gw.lastPurpose != "tg=12345" {
			t.Errorf("purpose = %q, want tg=12345", gw.lastPurpose)
		}
		if gw.lastAmount != 299 {
			t.Errorf("amount = %d, want 299", gw.lastAmount)
		}
		if cta.ButtonURL != "https://pay.example.com/req-1" {
			t.Errorf("button url = %q", cta.ButtonURL)
		}
		if !strings.Contains(cta.Text, "299 INR") || !strings.Contains(cta.Text, "30 days") {
			t.Errorf("text = %q", cta.Text)
		}
		if !strings.Contains(cta.ButtonLabel, "299 INR") {
			t.Errorf("label = %q", cta.ButtonLabel)
		}
	})

	t.Run("propagates gateway failure", func(t *testing.T) {
		gw := &stubGateway{createErr: errors.New("instamojo down")}
		if _, err := newFacade(&stubStore{}, gw).HandleStart(ctx, 12345); err == nil {
			t.Fatal("expected an error when the gateway rejects")
		}
	})
}

func TestBotFacade_HandleStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown member is invited to start", func(t *testing.T) {
		text, err := newFacade(&stubStore{}, &stubGateway{}).HandleStatus(ctx, 12345)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !strings.Contains(text, "/start") {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("active member sees the expiry", func(t *testing.T) {
		expiresAt := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
		store := &stubStore{records: map[string]*model.SubscriptionRecord{
			"12345": {MemberID: "12345", Status: model.SubscriptionStatusActive, ExpiresAt: expiresAt},
		}}
		text, err := newFacade(store, &stubGateway{}).HandleStatus(ctx, 12345)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !strings.Contains(text, "2026-10-01") {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("expired member is prompted to renew", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Hour)
		store := &stubStore{records: map[string]*model.SubscriptionRecord{
			"12345": {MemberID: "12345", Status: model.SubscriptionStatusExpired, ExpiresAt: past, ExpiredAt: &past},
		}}
		text, err := newFacade(store, &stubGateway{}).HandleStatus(ctx, 12345)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !strings.Contains(text, "expired") {
			t.Errorf("text = %q", text)
		}
	})
}
