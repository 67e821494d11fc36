package otp

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu     sync.Mutex
	nextID int64
	codes  []Code
}

// NewMemoryRepository builds an in-memory code store for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Create(_ context.Context, code Code) (Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	code.ID = r.nextID
	r.codes = append(r.codes, code)
	return code, nil
}

func (r *memoryRepository) LatestMatch(_ context.Context, phone, digest string) (Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		best  Code
		found bool
	)
	// Later ids win ties on created_at.
	for _, c := range r.codes {
		if c.Phone != phone || c.Digest != digest {
			continue
		}
		if !found || !c.CreatedAt.Before(best.CreatedAt) {
			best, found = c, true
		}
	}
	if !found {
		return Code{}, errNoMatch
	}
	return best, nil
}

func (r *memoryRepository) MarkUsed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.codes {
		if r.codes[i].ID != id {
			continue
		}
		if r.codes[i].Used {
			return ErrCodeAlreadyUsed
		}
		r.codes[i].Used = true
		return nil
	}
	return errNoMatch
}
