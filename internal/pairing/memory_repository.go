package pairing

import (
	"context"
	"sort"
	"sync"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
)

type memoryRepository struct {
	mu     sync.RWMutex
	users  directory.Repository
	nextID int64
	chats  map[int64][2]int64
}

// NewMemoryRepository builds an in-memory chat store. Contact listings read
// profiles from users.
func NewMemoryRepository(users directory.Repository) Repository {
	return &memoryRepository{users: users, chats: make(map[int64][2]int64)}
}

func (r *memoryRepository) LockPair(context.Context, int64, int64) error { return nil }

func (r *memoryRepository) FindSharedChat(_ context.Context, a, b int64) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sharedLocked(a, b)
	return id, ok, nil
}

// CreateChat returns the existing shared chat when one appeared since the
// caller looked, keeping pairing idempotent without a transaction.
func (r *memoryRepository) CreateChat(_ context.Context, a, b int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.sharedLocked(a, b); ok {
		return id, nil
	}
	r.nextID++
	r.chats[r.nextID] = [2]int64{a, b}
	return r.nextID, nil
}

func (r *memoryRepository) sharedLocked(a, b int64) (int64, bool) {
	var (
		best  int64
		found bool
	)
	for id, p := range r.chats {
		if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
			if !found || id < best {
				best, found = id, true
			}
		}
	}
	return best, found
}

func (r *memoryRepository) ListContacts(ctx context.Context, userID int64) ([]Contact, error) {
	r.mu.RLock()
	type link struct{ other, chat int64 }
	var links []link
	for id, p := range r.chats {
		switch userID {
		case p[0]:
			links = append(links, link{other: p[1], chat: id})
		case p[1]:
			links = append(links, link{other: p[0], chat: id})
		}
	}
	r.mu.RUnlock()

	contacts := make([]Contact, 0, len(links))
	for _, l := range links {
		u, err := r.users.FindByID(ctx, l.other)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, Contact{
			ID:        u.ID,
			Username:  u.Username,
			Phone:     u.Phone,
			AvatarURL: u.AvatarURL,
			LastSeen:  u.LastSeen,
			ChatID:    l.chat,
		})
	}
	sort.Slice(contacts, func(i, j int) bool {
		if !contacts[i].LastSeen.Equal(contacts[j].LastSeen) {
			return contacts[i].LastSeen.After(contacts[j].LastSeen)
		}
		return contacts[i].ChatID < contacts[j].ChatID
	})
	return contacts, nil
}

func (r *memoryRepository) IsParticipant(_ context.Context, chatID, userID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.chats[chatID]
	return ok && (p[0] == userID || p[1] == userID), nil
}
