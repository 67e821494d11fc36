package messages

import (
	"context"
	"sort"
	"sync"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
)

type memoryRepository struct {
	mu       sync.RWMutex
	users    directory.Repository
	nextID   int64
	messages []Message
}

// NewMemoryRepository builds an in-memory message store. Sender usernames
// are read from users.
func NewMemoryRepository(users directory.Repository) Repository {
	return &memoryRepository{users: users}
}

func (r *memoryRepository) Insert(_ context.Context, msg Message) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = r.nextID
	r.messages = append(r.messages, msg)
	return msg, nil
}

func (r *memoryRepository) History(ctx context.Context, chatID int64) ([]Entry, error) {
	r.mu.RLock()
	var selected []Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			selected = append(selected, m)
		}
	}
	r.mu.RUnlock()

	sort.Slice(selected, func(i, j int) bool {
		if !selected[i].CreatedAt.Equal(selected[j].CreatedAt) {
			return selected[i].CreatedAt.Before(selected[j].CreatedAt)
		}
		return selected[i].ID < selected[j].ID
	})

	entries := make([]Entry, 0, len(selected))
	for _, m := range selected {
		u, err := r.users.FindByID(ctx, m.SenderID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Message: m, SenderUsername: u.Username})
	}
	return entries, nil
}
