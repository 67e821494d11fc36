package pairing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
)

var (
	ErrContactNotFound = apperr.New(apperr.NotFound, "user not found")
	ErrSelfContact     = apperr.New(apperr.Conflict, "cannot add yourself")
)

// Service pairs users into one-on-one chats.
type Service struct {
	repo  Repository
	users *directory.Service
	tx    infra.Transactor
}

// NewService creates a pairing service.
func NewService(repo Repository, users *directory.Service, tx infra.Transactor) *Service {
	return &Service{repo: repo, users: users, tx: tx}
}

// AddContact returns the chat shared by the caller and the owner of phone,
// creating it on first contact. Repeated calls for either ordering of the
// pair return the same chat.
func (s *Service) AddContact(ctx context.Context, callerID int64, phone string) (AddResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return AddResult{}, apperr.Invalid("phone is required")
	}

	other, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return AddResult{}, ErrContactNotFound
		}
		return AddResult{}, fmt.Errorf("lookup contact: %w", err)
	}
	if other.ID == callerID {
		return AddResult{}, ErrSelfContact
	}

	res := AddResult{Contact: Contact{
		ID:        other.ID,
		Username:  other.Username,
		Phone:     other.Phone,
		AvatarURL: other.AvatarURL,
		LastSeen:  other.LastSeen,
	}}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockPair(ctx, callerID, other.ID); err != nil {
			return fmt.Errorf("lock pair: %w", err)
		}
		chatID, found, err := s.repo.FindSharedChat(ctx, callerID, other.ID)
		if err != nil {
			return fmt.Errorf("find chat: %w", err)
		}
		if !found {
			if chatID, err = s.repo.CreateChat(ctx, callerID, other.ID); err != nil {
				return fmt.Errorf("create chat: %w", err)
			}
			res.Created = true
		}
		res.ChatID = chatID
		return nil
	})
	if err != nil {
		return AddResult{}, err
	}
	res.Contact.ChatID = res.ChatID
	return res, nil
}

// ListContacts returns everyone the caller shares a chat with, most recently
// active first.
func (s *Service) ListContacts(ctx context.Context, callerID int64) ([]Contact, error) {
	contacts, err := s.repo.ListContacts(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// IsParticipant reports whether userID belongs to chatID.
func (s *Service) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.repo.IsParticipant(ctx, chatID, userID)
}
