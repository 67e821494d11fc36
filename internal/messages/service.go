package messages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
)

// ErrNotAParticipant is returned when the caller does not belong to the chat.
var ErrNotAParticipant = apperr.New(apperr.Forbidden, "not a participant of this chat")

// Membership answers whether a user belongs to a chat.
type Membership interface {
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)
}

// Service appends and reads chat messages on behalf of participants.
type Service struct {
	repo    Repository
	members Membership
	users   *directory.Service
	tx      infra.Transactor
	now     func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the server clock used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a message service.
func NewService(repo Repository, members Membership, users *directory.Service, tx infra.Transactor, opts ...Option) *Service {
	s := &Service{repo: repo, members: members, users: users, tx: tx, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stores a message from callerID in chatID and refreshes the sender's
// last activity in the same transaction.
func (s *Service) Append(ctx context.Context, callerID, chatID int64, content string) (Message, error) {
	if chatID <= 0 {
		return Message{}, apperr.Invalid("chat_id is required")
	}
	if err := s.authorize(ctx, chatID, callerID); err != nil {
		return Message{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, apperr.Invalid("content is required")
	}

	var stored Message
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		stored, err = s.repo.Insert(ctx, Message{
			ChatID:    chatID,
			SenderID:  callerID,
			Content:   content,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return s.users.Touch(ctx, callerID)
	})
	if err != nil {
		return Message{}, err
	}
	return stored, nil
}

// History returns the chat's messages in order, marking those sent by callerID.
func (s *Service) History(ctx context.Context, callerID, chatID int64) ([]Entry, error) {
	if chatID <= 0 {
		return nil, apperr.Invalid("chat_id is required")
	}
	if err := s.authorize(ctx, chatID, callerID); err != nil {
		return nil, err
	}
	entries, err := s.repo.History(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for i := range entries {
		entries[i].IsMine = entries[i].SenderID == callerID
	}
	return entries, nil
}

func (s *Service) authorize(ctx context.Context, chatID, userID int64) error {
	ok, err := s.members.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return ErrNotAParticipant
	}
	return nil
}
