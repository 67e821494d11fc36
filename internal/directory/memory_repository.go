package directory

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]User
	phones map[string]int64
}

// NewMemoryRepository builds an in-memory user store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{byID: make(map[int64]User), phones: make(map[string]int64)}
}

func (r *memoryRepository) Upsert(_ context.Context, phone, username string, overwrite bool, now time.Time) (User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, exists := r.phones[phone]; exists {
		user := r.byID[id]
		if overwrite {
			user.Username = username
		}
		user.LastSeen = now.UTC()
		r.byID[id] = user
		return user, false, nil
	}
	r.nextID++
	user := User{ID: r.nextID, Phone: phone, Username: username, LastSeen: now.UTC()}
	r.byID[user.ID] = user
	r.phones[phone] = user.ID
	return user, true, nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.phones[phone]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) Touch(_ context.Context, id int64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	user.LastSeen = now.UTC()
	r.byID[id] = user
	return nil
}
