//go:build !integration

package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"telegram-channel-subscription/internal/domain"
	"telegram-channel-subscription/internal/domain/model"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscribers.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s, path
}

func TestStore_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	now := time.Now().UTC()
	rec, err := model.NewSubscriptionRecord("12345", now, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Find(ctx, "12345")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != model.SubscriptionStatusActive || !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	// Returned records must not alias store state.
	got.Status = model.SubscriptionStatusExpired
	again, _ := s.Find(ctx, "12345")
	if again.Status != model.SubscriptionStatusActive {
		t.Error("mutating a returned record leaked into the store")
	}

	if _, err := s.Find(ctx, "99999"); err != domain.ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown member, got %v", err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)

	now := time.Now().UTC()
	rec, _ := model.NewSubscriptionRecord("12345", now, time.Hour)
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if claimed, err := s.MarkProcessed(ctx, "req-1"); err != nil || !claimed {
		t.Fatalf("mark processed: claimed=%v err=%v", claimed, err)
	}
	if err := s.AppendPending(ctx, &model.PendingVerification{RequestID: "req-2", Reason: "gateway timeout", OccurredAt: now}); err != nil {
		t.Fatalf("append pending: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := reopened.Find(ctx, "12345"); err != nil {
		t.Errorf("record lost across reopen: %v", err)
	}
	if done, _ := reopened.Processed(ctx, "req-1"); !done {
		t.Error("processed reference lost across reopen")
	}
	pending, _ := reopened.ListPending(ctx)
	if len(pending) != 1 || pending[0].RequestID != "req-2" {
		t.Errorf("journal lost across reopen: %+v", pending)
	}
	if pending[0].ID == "" {
		t.Error("journal entry should have been assigned an id")
	}
}

func TestStore_MarkProcessedClaimsOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)

	first, err := s.MarkProcessed(ctx, "req-1")
	if err != nil || !first {
		t.Fatalf("first claim: claimed=%v err=%v", first, err)
	}
	second, err := s.MarkProcessed(ctx, "req-1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second {
		t.Error("a reference must be claimable exactly once")
	}
	if done, _ := s.Processed(ctx, "req-1"); !done {
		t.Error("claimed reference must report processed")
	}
	if done, _ := s.Processed(ctx, "req-other"); done {
		t.Error("unknown reference must not report processed")
	}

	if _, err := s.MarkProcessed(ctx, ""); err != domain.ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument for empty reference, got %v", err)
	}
}

func TestStore_AllSortsByMember(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestStore(t)
	now := time.Now().UTC()

	for _, id := range []string{"300", "100", "200"} {
		rec, _ := model.NewSubscriptionRecord(id, now, time.Hour)
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	recs, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, want := range []string{"100", "200", "300"} {
		if recs[i].MemberID != want {
			t.Errorf("position %d: got %s, want %s", i, recs[i].MemberID, want)
		}
	}
}

func TestStore_CanonicalFileIsAlwaysComplete(t *testing.T) {
	ctx := context.Background()
	s, path := openTestStore(t)
	now := time.Now().UTC()

	// Every write replaces the file wholesale; at no point may the canonical
	// path hold something json.Unmarshal would reject.
	for i, id := range []string{"100", "200", "300"} {
		rec, _ := model.NewSubscriptionRecord(id, now, time.Hour)
		if err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read canonical file: %v", err)
		}
		var doc document
		if err := json.Unmarshal(b, &doc); err != nil {
			t.Fatalf("canonical file not parseable after write %d: %v", i, err)
		}
		if len(doc.Members) != i+1 {
			t.Errorf("after write %d: expected %d members on disk, got %d", i, i+1, len(doc.Members))
		}
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the canonical file, found %d entries", len(entries))
	}
}

func TestStore_OpenValidation(t *testing.T) {
	if _, err := Open(""); err != domain.ErrInvalidArgument {
		t.Errorf("expected ErrInvalidArgument for empty path, got %v", err)
	}

	dir := t.TempDir()
	corrupt := filepath.Join(dir, "subscribers.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, err := Open(corrupt); err == nil {
		t.Error("expected error opening a corrupt document")
	}
}
