package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
)

// Service maps phone numbers to user identities.
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for last activity.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new directory service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveOrCreate returns the user for phone, creating it on first login. An
// existing user gets its last activity refreshed and, when username is not
// empty, its username replaced. New users without a username get
// DefaultUsername(phone).
func (s *Service) ResolveOrCreate(ctx context.Context, phone, username string) (User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return User{}, apperr.Invalid("phone is required")
	}
	username = strings.TrimSpace(username)

	overwrite := username != ""
	if !overwrite {
		username = DefaultUsername(phone)
	}

	user, _, err := s.repo.Upsert(ctx, phone, username, overwrite, s.now())
	if err != nil {
		return User{}, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByPhone fetches a user by phone number.
func (s *Service) FindByPhone(ctx context.Context, phone string) (User, error) {
	return s.repo.FindByPhone(ctx, strings.TrimSpace(phone))
}

// Touch refreshes the user's last activity.
func (s *Service) Touch(ctx context.Context, id int64) error {
	return s.repo.Touch(ctx, id, s.now())
}

// DefaultUsername is "User" followed by the last four characters of phone.
func DefaultUsername(phone string) string {
	if len(phone) > 4 {
		phone = phone[len(phone)-4:]
	}
	return "User" + phone
}
