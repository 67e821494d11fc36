package messages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
)

type staticMembership map[int64][]int64

func (m staticMembership) IsParticipant(_ context.Context, chatID, userID int64) (bool, error) {
	for _, id := range m[chatID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	svc        *Service
	repo       Repository
	users      *directory.Service
	alice, bob directory.User
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	userRepo := directory.NewMemoryRepository()
	f.users = directory.NewService(userRepo, directory.WithClock(clock))

	var err error
	if f.alice, err = f.users.ResolveOrCreate(context.Background(), "+15551110001", "alice"); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if f.bob, err = f.users.ResolveOrCreate(context.Background(), "+15551110002", "bob"); err != nil {
		t.Fatalf("create bob: %v", err)
	}

	members := staticMembership{1: {f.alice.ID, f.bob.ID}}
	f.repo = NewMemoryRepository(userRepo)
	f.svc = NewService(f.repo, members, f.users, infra.NoopTransactor{}, WithClock(clock))
	return f
}

func TestAppendAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent, err := f.svc.Append(ctx, f.alice.ID, 1, "  hello bob  ")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if sent.Content != "hello bob" || sent.SenderID != f.alice.ID || sent.IsRead {
		t.Fatalf("unexpected message %+v", sent)
	}
	if !sent.CreatedAt.Equal(f.now) {
		t.Fatalf("expected server timestamp, got %s", sent.CreatedAt)
	}

	f.now = f.now.Add(time.Second)
	if _, err := f.svc.Append(ctx, f.bob.ID, 1, "hi alice"); err != nil {
		t.Fatalf("append reply: %v", err)
	}

	history, err := f.svc.History(ctx, f.bob.ID, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].SenderUsername != "alice" || history[0].IsMine {
		t.Fatalf("unexpected first entry %+v", history[0])
	}
	if history[1].SenderUsername != "bob" || !history[1].IsMine {
		t.Fatalf("unexpected second entry %+v", history[1])
	}
}

func TestAppendRefreshesSenderActivity(t *testing.T) {
	f := newFixture(t)
	f.now = f.now.Add(time.Hour)

	if _, err := f.svc.Append(context.Background(), f.bob.ID, 1, "ping"); err != nil {
		t.Fatalf("append: %v", err)
	}
	bob, err := f.users.Get(context.Background(), f.bob.ID)
	if err != nil {
		t.Fatalf("get bob: %v", err)
	}
	if !bob.LastSeen.Equal(f.now) {
		t.Fatalf("expected last seen %s, got %s", f.now, bob.LastSeen)
	}
}

func TestHistoryOrdersByTimestampThenID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := f.now

	// Inserted out of order to mimic concurrent writers with skewed clocks.
	inserts := []struct {
		at      time.Time
		content string
	}{
		{base.Add(2 * time.Second), "third"},
		{base, "first"},
		{base.Add(time.Second), "second-a"},
		{base.Add(time.Second), "second-b"},
	}
	for _, in := range inserts {
		if _, err := f.repo.Insert(ctx, Message{ChatID: 1, SenderID: f.alice.ID, Content: in.content, CreatedAt: in.at}); err != nil {
			t.Fatalf("insert %s: %v", in.content, err)
		}
	}

	history, err := f.svc.History(ctx, f.alice.ID, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []string{"first", "second-a", "second-b", "third"}
	for i, w := range want {
		if history[i].Content != w {
			t.Fatalf("position %d: expected %s got %s", i, w, history[i].Content)
		}
	}
}

func TestAppendRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	eve, err := f.users.ResolveOrCreate(ctx, "+15551110003", "eve")
	if err != nil {
		t.Fatalf("create eve: %v", err)
	}

	if _, err := f.svc.Append(ctx, f.alice.ID, 0, "hi"); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected validation for missing chat, got %v", err)
	}
	if _, err := f.svc.Append(ctx, eve.ID, 1, "hi"); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("expected ErrNotAParticipant, got %v", err)
	}
	if _, err := f.svc.Append(ctx, f.alice.ID, 1, "   "); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("expected validation for blank content, got %v", err)
	}
	if _, err := f.svc.History(ctx, eve.ID, 1); !errors.Is(err, ErrNotAParticipant) {
		t.Fatalf("expected ErrNotAParticipant for history, got %v", err)
	}

	history, err := f.svc.History(ctx, f.alice.ID, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("rejected appends must not be stored, got %+v", history)
	}
}
