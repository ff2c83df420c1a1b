// File: internal/infra/store/file/store.go
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
	"telegram-channel-subscription/internal/domain/ports/repository"
)

// Ensure Store implements repository.SubscriberStore
var _ repository.SubscriberStore = (*Store)(nil)

// document is the single durable key-value document holding all state: one
// entry per member, the processed payment references, and the journal.
type document struct {
	Members   map[string]*model.SubscriptionRecord `json:"members"`
	Processed map[string]time.Time                 `json:"processed"`
	Pending   []*model.PendingVerification         `json:"pending"`
}

// Store persists the document as one JSON file. Every write goes to a temp file
// in the same directory, is fsynced, then atomically renamed over the canonical
// path, so readers never observe a partial document and a crash leaves the last
// complete state intact. Writers are serialized by a single mutex; reads copy
// records out so callers never alias the in-memory state.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &Store{path: path, doc: newDocument()}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	if err := json.Unmarshal(b, &s.doc); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}
	if s.doc.Members == nil {
		s.doc.Members = map[string]*model.SubscriptionRecord{}
	}
	if s.doc.Processed == nil {
		s.doc.Processed = map[string]time.Time{}
	}
	return s, nil
}

func newDocument() document {
	return document{
		Members:   map[string]*model.SubscriptionRecord{},
		Processed: map[string]time.Time{},
	}
}

func (s *Store) Find(ctx context.Context, memberID string) (*model.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Members[memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) Upsert(ctx context.Context, rec *model.SubscriptionRecord) error {
	if rec == nil || rec.MemberID == "" {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.doc.Members[rec.MemberID] = &cp
	return s.flushLocked()
}

func (s *Store) All(ctx context.Context) ([]*model.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.SubscriptionRecord, 0, len(s.doc.Members))
	for _, rec := range s.doc.Members {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (s *Store) Processed(ctx context.Context, requestID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.doc.Processed[requestID]
	return ok, nil
}

func (s *Store) MarkProcessed(ctx context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc.Processed[requestID]; ok {
		return false, nil
	}
	s.doc.Processed[requestID] = time.Now().UTC()
	if err := s.flushLocked(); err != nil {
		delete(s.doc.Processed, requestID)
		return false, err
	}
	return true, nil
}

func (s *Store) AppendPending(ctx context.Context, entry *model.PendingVerification) error {
	if entry == nil || entry.RequestID == "" {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	s.doc.Pending = append(s.doc.Pending, &cp)
	return s.flushLocked()
}

func (s *Store) ListPending(ctx context.Context) ([]*model.PendingVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.PendingVerification, 0, len(s.doc.Pending))
	for _, e := range s.doc.Pending {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// flushLocked writes the whole document with write-temp-then-rename. Callers
// hold s.mu.
func (s *Store) flushLocked() error {
	b, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".subscribers-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
