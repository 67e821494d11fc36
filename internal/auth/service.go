package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/otp"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/session"
)

// Service runs the phone login flow: a code is sent, then exchanged for a
// session token.
type Service struct {
	codes    *otp.Service
	sessions *session.Issuer
}

// NewService builds the login flow over the code ledger and session issuer.
func NewService(codes *otp.Service, sessions *session.Issuer) *Service {
	return &Service{codes: codes, sessions: sessions}
}

// Login is the outcome of a successful code exchange.
type Login struct {
	Token     string
	ExpiresAt time.Time
	User      directory.User
}

// SendCode issues a login code for phone.
func (s *Service) SendCode(ctx context.Context, phone string) (otp.IssueResult, error) {
	return s.codes.Issue(ctx, phone)
}

// VerifyCode consumes the code, resolves the user and mints a session.
func (s *Service) VerifyCode(ctx context.Context, phone, code, username string) (Login, error) {
	user, err := s.codes.Verify(ctx, phone, code, username)
	if err != nil {
		return Login{}, err
	}
	token, exp, err := s.sessions.Mint(user.ID, user.Phone)
	if err != nil {
		return Login{}, fmt.Errorf("mint session: %w", err)
	}
	return Login{Token: token, ExpiresAt: exp, User: user}, nil
}
