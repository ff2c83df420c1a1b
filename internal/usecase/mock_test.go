//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/adapter"
	"telegram-channel-subscription/internal/domain/ports/repository"
	"telegram-channel-subscription/internal/usecase"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Mock SubscriberStore ----

// MockSubscriberStore is an in-memory SubscriberStore with overridable behavior
// per method. The default behavior is a working store.
type MockSubscriberStore struct {
	mu      sync.Mutex
	Records map[string]*model.SubscriptionRecord
	Claimed map[string]bool
	Pending []*model.PendingVerification
	Upserts int

	FindFunc          func(ctx context.Context, memberID string) (*model.SubscriptionRecord, error)
	UpsertFunc        func(ctx context.Context, rec *model.SubscriptionRecord) error
	AllFunc           func(ctx context.Context) ([]*model.SubscriptionRecord, error)
	ProcessedFunc     func(ctx context.Context, requestID string) (bool, error)
	MarkProcessedFunc func(ctx context.Context, requestID string) (bool, error)
}

var _ repository.SubscriberStore = (*MockSubscriberStore)(nil)

func NewMockSubscriberStore() *MockSubscriberStore {
	return &MockSubscriberStore{
		Records: make(map[string]*model.SubscriptionRecord),
		Claimed: make(map[string]bool),
	}
}

func (m *MockSubscriberStore) Find(ctx context.Context, memberID string) (*model.SubscriptionRecord, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, memberID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockSubscriberStore) Upsert(ctx context.Context, rec *model.SubscriptionRecord) error {
	m.mu.Lock()
	m.Upserts++
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.Records[rec.MemberID] = &cp
	return nil
}

func (m *MockSubscriberStore) All(ctx context.Context) ([]*model.SubscriptionRecord, error) {
	if m.AllFunc != nil {
		return m.AllFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.SubscriptionRecord, 0, len(m.Records))
	for _, rec := range m.Records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockSubscriberStore) Processed(ctx context.Context, requestID string) (bool, error) {
	if m.ProcessedFunc != nil {
		return m.ProcessedFunc(ctx, requestID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Claimed[requestID], nil
}

func (m *MockSubscriberStore) MarkProcessed(ctx context.Context, requestID string) (bool, error) {
	if m.MarkProcessedFunc != nil {
		return m.MarkProcessedFunc(ctx, requestID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Claimed[requestID] {
		return false, nil
	}
	m.Claimed[requestID] = true
	return true, nil
}

func (m *MockSubscriberStore) AppendPending(ctx context.Context, entry *model.PendingVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pending = append(m.Pending, entry)
	return nil
}

func (m *MockSubscriberStore) ListPending(ctx context.Context) ([]*model.PendingVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.PendingVerification(nil), m.Pending...), nil
}

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu       sync.Mutex
	Requests map[string]*adapter.PaymentRequest
	Fetches  []string

	CreatePaymentRequestFunc func(ctx context.Context, amount int64, purpose, redirectURL, webhookURL string) (string, string, error)
	FetchPaymentRequestFunc  func(ctx context.Context, requestID string) (*adapter.PaymentRequest, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{Requests: make(map[string]*adapter.PaymentRequest)}
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) CreatePaymentRequest(ctx context.Context, amount int64, purpose, redirectURL, webhookURL string) (string, string, error) {
	if m.CreatePaymentRequestFunc != nil {
		return m.CreatePaymentRequestFunc(ctx, amount, purpose, redirectURL, webhookURL)
	}
	id := fmt.Sprintf("req-%d", len(m.Requests)+1)
	m.mu.Lock()
	m.Requests[id] = &adapter.PaymentRequest{ID: id, Status: "Pending", Purpose: purpose, Amount: amount}
	m.mu.Unlock()
	return id, "https://pay.example.com/" + id, nil
}

func (m *MockGateway) FetchPaymentRequest(ctx context.Context, requestID string) (*adapter.PaymentRequest, error) {
	m.mu.Lock()
	m.Fetches = append(m.Fetches, requestID)
	m.mu.Unlock()
	if m.FetchPaymentRequestFunc != nil {
		return m.FetchPaymentRequestFunc(ctx, requestID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.Requests[requestID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

// ---- Mock ChannelBotAdapter ----

type MockChannelBot struct {
	mu      sync.Mutex
	Sent    []string
	SentTo  []int64
	Invites int
	Removed []int64

	SendMessageFunc      func(ctx context.Context, telegramID int64, text string) error
	SendURLButtonFunc    func(ctx context.Context, telegramID int64, text, label, url string) error
	CreateInviteLinkFunc func(ctx context.Context, ttl time.Duration) (string, error)
	RemoveMemberFunc     func(ctx context.Context, telegramID int64) error
}

var _ adapter.ChannelBotAdapter = (*MockChannelBot)(nil)

func (m *MockChannelBot) SendMessage(ctx context.Context, telegramID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, telegramID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
	m.SentTo = append(m.SentTo, telegramID)
	return nil
}

func (m *MockChannelBot) SendURLButton(ctx context.Context, telegramID int64, text, label, url string) error {
	if m.SendURLButtonFunc != nil {
		return m.SendURLButtonFunc(ctx, telegramID, text, label, url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
	m.SentTo = append(m.SentTo, telegramID)
	return nil
}

func (m *MockChannelBot) CreateInviteLink(ctx context.Context, ttl time.Duration) (string, error) {
	if m.CreateInviteLinkFunc != nil {
		return m.CreateInviteLinkFunc(ctx, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invites++
	return fmt.Sprintf("https://t.me/+invite-%d", m.Invites), nil
}

func (m *MockChannelBot) RemoveMember(ctx context.Context, telegramID int64) error {
	if m.RemoveMemberFunc != nil {
		return m.RemoveMemberFunc(ctx, telegramID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Removed = append(m.Removed, telegramID)
	return nil
}

// ---- Mock Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	Locks []string

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var _ usecase.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]bool)}
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return "", domain.ErrMemberBusy
	}
	m.held[key] = true
	m.Locks = append(m.Locks, key)
	return "tok-" + key, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}
