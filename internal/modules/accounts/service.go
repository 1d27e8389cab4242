package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes
	MaxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// EventEmitter publishes domain events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// UserLocker serializes per-username writes. The trade engine's lock table
// satisfies it, so signup never interleaves with a trade.
type UserLocker interface {
	Lock(ctx context.Context, username string) (func(), error)
}

// Service handles signup and login
type Service struct {
	accounts        domain.AccountStore
	portfolios      domain.PortfolioStore
	locks           UserLocker
	events          EventEmitter
	startingBalance decimal.Decimal
	hashCost        int
	now             func() time.Time
	log             zerolog.Logger
}

// NewService creates an account service. emitter may be nil.
func NewService(
	accounts domain.AccountStore,
	portfolios domain.PortfolioStore,
	locks UserLocker,
	emitter EventEmitter,
	startingBalance decimal.Decimal,
	log zerolog.Logger,
) *Service {
	return &Service{
		accounts:        accounts,
		portfolios:      portfolios,
		locks:           locks,
		events:          emitter,
		startingBalance: startingBalance,
		hashCost:        bcrypt.DefaultCost,
		now:             func() time.Time { return time.Now().UTC() },
		log:             log.With().Str("service", "accounts").Logger(),
	}
}

// StartingBalance is the cash credited to every new account
func (s *Service) StartingBalance() decimal.Decimal {
	return s.startingBalance
}

// ValidateCredentials checks the username and password rules
func ValidateCredentials(username, password string) error {
	switch {
	case len(username) < MinUsernameLength:
		return fmt.Errorf("%w: username must be at least %d characters", domain.ErrValidation, MinUsernameLength)
	case len(username) > MaxUsernameLength:
		return fmt.Errorf("%w: username must be at most %d characters", domain.ErrValidation, MaxUsernameLength)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("%w: username may only contain letters, digits, '.', '_' and '-'", domain.ErrValidation)
	case len(password) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	case len(password) > MaxPasswordLength:
		return fmt.Errorf("%w: password must be at most %d characters", domain.ErrValidation, MaxPasswordLength)
	}
	return nil
}

// Signup creates an account with the starting balance and an empty portfolio
func (s *Service) Signup(ctx context.Context, username, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if err := ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	existing, err := s.accounts.Get(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserAlreadyExists, username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := domain.Account{
		Username:     username,
		PasswordHash: string(hash),
		Balance:      s.startingBalance,
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	// The account is usable without a portfolio row; Get returns an empty one
	if err := s.initPortfolio(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("Failed to create empty portfolio")
	}

	s.log.Info().Str("username", username).Str("balance", account.Balance.String()).Msg("User signed up")

	if s.events != nil {
		s.events.EmitTyped("accounts", &events.UserSignedUpData{
			Username: username,
			Balance:  account.Balance.String(),
		})
	}

	return &account, nil
}

// initPortfolio stores an empty portfolio unless a trade got there first
func (s *Service) initPortfolio(ctx context.Context, username string) error {
	unlock, err := s.locks.Lock(ctx, username)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.portfolios.Get(ctx, username)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		return nil
	}
	return s.portfolios.Replace(ctx, username, domain.Portfolio{})
}

// Login verifies the password. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.Get(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("Stored password hash is unusable")
		return nil, domain.ErrInvalidCredentials
	}

	s.log.Debug().Str("username", username).Msg("User logged in")
	return account, nil
}

// Account returns the account for username
func (s *Service) Account(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.accounts.Get(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrUserNotFound
	}
	return account, nil
}
