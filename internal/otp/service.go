package otp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/directory"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/notification"
)

var (
	ErrInvalidCode     = apperr.New(apperr.InvalidCode, "invalid code")
	ErrCodeAlreadyUsed = apperr.New(apperr.Conflict, "code already used")
	ErrCodeExpired     = apperr.New(apperr.CodeExpired, "code expired")
)

const (
	codeSpace              = 1_000_000
	defaultTTL             = 5 * time.Minute
	defaultDeliveryTimeout = 10 * time.Second
)

// Config tunes code issuance.
type Config struct {
	// TTL is how long a code stays valid after issue.
	TTL time.Duration
	// DeliveryTimeout bounds a single notification attempt.
	DeliveryTimeout time.Duration
	// ExposeCode returns the raw code to the caller. Only set when no real
	// delivery channel exists.
	ExposeCode bool
	// DigestKey keys the hash stored in place of the code.
	DigestKey string
}

// Service issues and verifies one-time login codes.
type Service struct {
	repo     Repository
	users    *directory.Service
	tx       infra.Transactor
	notifier notification.Notifier
	logger   *slog.Logger
	cfg      Config
	key      [32]byte
	now      func() time.Time
	random   io.Reader
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom overrides the entropy source used to draw codes.
func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

// NewService wires the ledger to its store, the directory and the delivery channel.
func NewService(repo Repository, users *directory.Service, tx infra.Transactor, notifier notification.Notifier, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	s := &Service{
		repo:     repo,
		users:    users,
		tx:       tx,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		key:      blake2b.Sum256([]byte(cfg.DigestKey)),
		now:      time.Now,
		random:   rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue stores a fresh code for phone and hands it to the delivery channel in
// the background. Delivery failures never fail the call.
func (s *Service) Issue(ctx context.Context, phone string) (IssueResult, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return IssueResult{}, apperr.Invalid("phone is required")
	}

	code, err := s.generate()
	if err != nil {
		return IssueResult{}, fmt.Errorf("generate code: %w", err)
	}

	now := s.now().UTC()
	record, err := s.repo.Create(ctx, Code{
		Phone:     phone,
		Digest:    s.digest(phone, code),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	})
	if err != nil {
		return IssueResult{}, fmt.Errorf("store code: %w", err)
	}

	s.deliver(phone, code)

	res := IssueResult{Code: code, ExpiresAt: record.ExpiresAt}
	if s.cfg.ExposeCode {
		res.DebugCode = code
	}
	return res, nil
}

// Verify consumes the newest code matching (phone, code) and resolves the
// user for phone. Consuming the code and resolving the user commit together.
func (s *Service) Verify(ctx context.Context, phone, code, username string) (directory.User, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return directory.User{}, apperr.Invalid("phone and code are required")
	}

	var user directory.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.repo.LatestMatch(ctx, phone, s.digest(phone, code))
		if err != nil {
			if errors.Is(err, errNoMatch) {
				return ErrInvalidCode
			}
			return fmt.Errorf("lookup code: %w", err)
		}
		if record.Used {
			return ErrCodeAlreadyUsed
		}
		if s.now().After(record.ExpiresAt) {
			return ErrCodeExpired
		}
		if err := s.repo.MarkUsed(ctx, record.ID); err != nil {
			if errors.Is(err, ErrCodeAlreadyUsed) {
				return err
			}
			return fmt.Errorf("consume code: %w", err)
		}

		user, err = s.users.ResolveOrCreate(ctx, phone, username)
		return err
	})
	if err != nil {
		return directory.User{}, err
	}
	return user, nil
}

func (s *Service) generate() (string, error) {
	n, err := rand.Int(s.random, big.NewInt(codeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *Service) digest(phone, code string) string {
	h, _ := blake2b.New256(s.key[:])
	h.Write([]byte(phone))
	h.Write([]byte{0})
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Service) deliver(phone, code string) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{
		Kind:        notification.KindLoginCode,
		Destination: phone,
		Body:        "Your verification code: " + code,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DeliveryTimeout)
		defer cancel()
		if err := s.notifier.Send(ctx, msg); err != nil && s.logger != nil {
			s.logger.Warn("code delivery failed", slog.String("phone", phone), slog.Any("error", err))
		}
	}()
}
