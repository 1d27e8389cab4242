package accounts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/aristath/papertrader/internal/modules/trading"
	"github.com/aristath/papertrader/internal/store/memory"
	testhelpers "github.com/aristath/papertrader/internal/testing"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingEmitter struct {
	events []events.EventData
}

func (e *recordingEmitter) EmitTyped(_ string, data events.EventData) {
	e.events = append(e.events, data)
}

func newTestService(t *testing.T) (*Service, *memory.Store, *recordingEmitter) {
	t.Helper()
	store := memory.New()
	emitter := &recordingEmitter{}
	svc := NewService(store.Accounts(), store.Portfolios(), trading.NewUserLocks(), emitter, decimal.RequireFromString("10000.00"), zerolog.Nop())
	svc.hashCost = bcrypt.MinCost
	return svc, store, emitter
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid", username: "alice", password: "secret1"},
		{name: "punctuation allowed", username: "a.b_c-d", password: "secret1"},
		{name: "short username", username: "al", password: "secret1", wantErr: true},
		{name: "long username", username: strings.Repeat("a", 65), password: "secret1", wantErr: true},
		{name: "space in username", username: "al ice", password: "secret1", wantErr: true},
		{name: "short password", username: "alice", password: "12345", wantErr: true},
		{name: "long password", username: "alice", password: strings.Repeat("p", 73), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.username, tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSignup(t *testing.T) {
	svc, store, emitter := newTestService(t)
	ctx := context.Background()

	acc, err := svc.Signup(ctx, " alice ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(10000)))
	assert.NotEqual(t, "secret1", acc.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("secret1")))

	stored, err := store.Accounts().Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stored)

	folio, err := store.Portfolios().Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, folio)

	require.Len(t, emitter.events, 1)
	data, ok := emitter.events[0].(*events.UserSignedUpData)
	require.True(t, ok)
	assert.Equal(t, "alice", data.Username)
	assert.Equal(t, "10000", data.Balance)

	_, err = svc.Signup(ctx, "alice", "another1")
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestSignup_ValidationWritesNothing(t *testing.T) {
	svc, store, emitter := newTestService(t)

	_, err := svc.Signup(context.Background(), "al", "secret1")
	assert.ErrorIs(t, err, domain.ErrValidation)

	acc, err := store.Accounts().Get(context.Background(), "al")
	require.NoError(t, err)
	assert.Nil(t, acc)
	assert.Empty(t, emitter.events)
}

func TestSignup_PortfolioFailureIsNotFatal(t *testing.T) {
	accounts := testhelpers.NewMockAccountStore()
	folios := testhelpers.NewMockPortfolioStore()
	folios.SetError("Replace", testhelpers.ErrInjected)

	svc := NewService(accounts, folios, trading.NewUserLocks(), nil, decimal.NewFromInt(500), zerolog.Nop())
	svc.hashCost = bcrypt.MinCost

	acc, err := svc.Signup(context.Background(), "bob", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "500", accounts.Balance(acc.Username).String())
}

// tradeOnCreate writes a holding right after the account is created, the
// way a buy with the new credentials could
type tradeOnCreate struct {
	domain.AccountStore
	portfolios domain.PortfolioStore
}

func (s *tradeOnCreate) Create(ctx context.Context, account domain.Account) error {
	if err := s.AccountStore.Create(ctx, account); err != nil {
		return err
	}
	return s.portfolios.Replace(ctx, account.Username, domain.Portfolio{
		"AAPL": {Symbol: "AAPL", Shares: 10, AvgCost: decimal.RequireFromString("182.45")},
	})
}

func TestSignup_KeepsHoldingsWrittenAfterCreate(t *testing.T) {
	store := memory.New()
	accounts := &tradeOnCreate{AccountStore: store.Accounts(), portfolios: store.Portfolios()}
	svc := NewService(accounts, store.Portfolios(), trading.NewUserLocks(), nil, decimal.NewFromInt(10000), zerolog.Nop())
	svc.hashCost = bcrypt.MinCost

	_, err := svc.Signup(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	folio, err := store.Portfolios().Get(context.Background(), "alice")
	require.NoError(t, err)
	require.Contains(t, folio, "AAPL")
	assert.Equal(t, int64(10), folio["AAPL"].Shares)
}

func TestSignup_WaitsForUserLock(t *testing.T) {
	store := memory.New()
	locks := trading.NewUserLocks()
	svc := NewService(store.Accounts(), store.Portfolios(), locks, nil, decimal.NewFromInt(10000), zerolog.Nop())
	svc.hashCost = bcrypt.MinCost

	// A trade for alice is in flight
	unlock, err := locks.Lock(context.Background(), "alice")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Signup(context.Background(), "alice", "secret1")
		done <- err
	}()

	assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	unlock()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("signup did not finish after the lock was released")
	}
	assert.Zero(t, locks.Active())
}

func TestSignup_StoreFailure(t *testing.T) {
	accounts := testhelpers.NewMockAccountStore()
	accounts.SetError("Create", domain.ErrStoreUnavailable)
	svc := NewService(accounts, testhelpers.NewMockPortfolioStore(), trading.NewUserLocks(), nil, decimal.NewFromInt(500), zerolog.Nop())
	svc.hashCost = bcrypt.MinCost

	_, err := svc.Signup(context.Background(), "bob", "secret1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, domain.IsExpected(err))
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, "alice", "secret1")
	require.NoError(t, err)

	acc, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Username)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "alice", password: "wrong12"},
		{name: "unknown user", username: "mallory", password: "secret1"},
		{name: "empty", username: "", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		})
	}
}

func TestAccount(t *testing.T) {
	svc, store, _ := newTestService(t)
	testhelpers.SeedAccount(t, store.Accounts(), "alice", "42.00")

	acc, err := svc.Account(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "42", acc.Balance.String())

	_, err = svc.Account(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
