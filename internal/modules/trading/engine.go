// Package trading executes simulated market orders against a user's cash
// balance and holdings, and keeps the append-only transaction log.
package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// writeTimeout bounds the store writes of one trade, and separately their rollback
const writeTimeout = 5 * time.Second

// Notifier queues a best-effort message for a user
type Notifier interface {
	Notify(username, subject, body string) bool
}

// EventEmitter publishes domain events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// TradeResult is the outcome of a successful trade
type TradeResult struct {
	Transaction domain.Transaction
	Balance     decimal.Decimal
	// Holding is the position after the trade, nil when it was closed
	Holding *domain.Holding
	Message string
	// RealizedGain is set on sells: quantity x (price - average cost)
	RealizedGain decimal.Decimal
}

// Engine executes buys and sells. Trades for one username are serialized;
// trades for different usernames run in parallel.
type Engine struct {
	accounts   domain.AccountStore
	portfolios domain.PortfolioStore
	txlog      domain.TransactionLog
	quotes     domain.QuoteSource
	locks      *UserLocks
	notifier   Notifier
	events     EventEmitter
	now        func() time.Time
	newID      func() string
	log        zerolog.Logger
}

// NewEngine creates a trade engine. notifier and emitter may be nil.
func NewEngine(
	accounts domain.AccountStore,
	portfolios domain.PortfolioStore,
	txlog domain.TransactionLog,
	quotes domain.QuoteSource,
	notifier Notifier,
	emitter EventEmitter,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		accounts:   accounts,
		portfolios: portfolios,
		txlog:      txlog,
		quotes:     quotes,
		locks:      NewUserLocks(),
		notifier:   notifier,
		events:     emitter,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.New().String() },
		log:        log.With().Str("service", "trade_engine").Logger(),
	}
}

// Buy purchases quantity shares of symbol at price. A zero price fills at the quoted price.
func (e *Engine) Buy(ctx context.Context, username, symbol string, quantity int64, price decimal.Decimal) (*TradeResult, error) {
	return e.execute(ctx, domain.TradeSideBuy, username, symbol, quantity, price)
}

// Sell disposes of quantity shares of symbol at price. A zero price fills at the quoted price.
func (e *Engine) Sell(ctx context.Context, username, symbol string, quantity int64, price decimal.Decimal) (*TradeResult, error) {
	return e.execute(ctx, domain.TradeSideSell, username, symbol, quantity, price)
}

// Locks returns the per-username lock table trades run under
func (e *Engine) Locks() *UserLocks {
	return e.locks
}

// ActiveLocks returns how many usernames have a trade in flight or queued
func (e *Engine) ActiveLocks() int {
	return e.locks.Active()
}

// order is a validated trade request
type order struct {
	side     domain.TradeSide
	username string
	symbol   string
	quantity int64
	price    decimal.Decimal
}

func (e *Engine) validate(side domain.TradeSide, username, symbol string, quantity int64, price decimal.Decimal) (order, error) {
	symbol = domain.NormalizeSymbol(symbol)

	if username == "" {
		return order{}, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if symbol == "" {
		return order{}, fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	quote, ok := e.quotes.Quote(symbol)
	if !ok {
		return order{}, fmt.Errorf("%w: unknown symbol %s", domain.ErrValidation, symbol)
	}
	if quantity <= 0 {
		return order{}, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	if price.IsNegative() {
		return order{}, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if price.IsZero() {
		price = quote.Price
	}

	return order{side: side, username: username, symbol: quote.Symbol, quantity: quantity, price: price}, nil
}

func (e *Engine) execute(ctx context.Context, side domain.TradeSide, username, symbol string, quantity int64, price decimal.Decimal) (*TradeResult, error) {
	o, err := e.validate(side, username, symbol, quantity, price)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locks.Lock(ctx, o.username)
	if err != nil {
		return nil, fmt.Errorf("waiting for account lock: %w", err)
	}
	defer unlock()

	account, err := e.accounts.Get(ctx, o.username)
	if err != nil {
		return nil, storeError("load account", err)
	}
	if account == nil {
		return nil, domain.ErrUserNotFound
	}

	current, err := e.portfolios.Get(ctx, o.username)
	if err != nil {
		return nil, storeError("load portfolio", err)
	}

	plan, err := planTrade(o, account.Balance, current)
	if err != nil {
		return nil, err
	}

	// Nothing has been written yet; an expired request stops here cleanly
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx := domain.Transaction{
		ID:        e.newID(),
		Username:  o.username,
		Symbol:    o.symbol,
		Side:      o.side,
		Quantity:  o.quantity,
		Price:     o.price,
		Total:     plan.total,
		Timestamp: e.now(),
	}

	if err := e.commit(ctx, account.Balance, current, plan, tx); err != nil {
		return nil, err
	}

	result := &TradeResult{
		Transaction:  tx,
		Balance:      plan.balance,
		Holding:      plan.holding,
		RealizedGain: plan.realizedGain,
		Message:      completedMessage(o.side),
	}

	e.log.Info().
		Str("username", o.username).
		Str("symbol", o.symbol).
		Str("side", string(o.side)).
		Int64("quantity", o.quantity).
		Str("price", o.price.String()).
		Str("balance", plan.balance.String()).
		Str("transaction_id", tx.ID).
		Msg("Trade executed")

	e.publish(result)
	return result, nil
}

// tradePlan is the state a trade will leave behind
type tradePlan struct {
	total        decimal.Decimal
	balance      decimal.Decimal
	portfolio    domain.Portfolio
	holding      *domain.Holding
	realizedGain decimal.Decimal
}

// planTrade computes the post-trade state without touching any store
func planTrade(o order, balance decimal.Decimal, current domain.Portfolio) (tradePlan, error) {
	qty := decimal.NewFromInt(o.quantity)
	total := o.price.Mul(qty)
	next := current.Clone()

	switch o.side {
	case domain.TradeSideBuy:
		if balance.LessThan(total) {
			return tradePlan{}, fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientFunds, total.StringFixed(2), balance.StringFixed(2))
		}

		h := domain.Holding{Symbol: o.symbol, Shares: o.quantity, AvgCost: o.price}
		if held, ok := current[o.symbol]; ok {
			oldShares := decimal.NewFromInt(held.Shares)
			newShares := held.Shares + o.quantity
			h.Shares = newShares
			h.AvgCost = held.AvgCost.Mul(oldShares).Add(total).
				Div(decimal.NewFromInt(newShares)).
				Round(domain.AvgCostPlaces)
		}
		next[o.symbol] = h

		return tradePlan{total: total, balance: balance.Sub(total), portfolio: next, holding: &h}, nil

	case domain.TradeSideSell:
		held, ok := current[o.symbol]
		if !ok || held.Shares < o.quantity {
			return tradePlan{}, fmt.Errorf("%w: hold %d %s, selling %d", domain.ErrInsufficientShares, held.Shares, o.symbol, o.quantity)
		}

		plan := tradePlan{
			total:        total,
			balance:      balance.Add(total),
			portfolio:    next,
			realizedGain: o.price.Sub(held.AvgCost).Mul(qty),
		}

		if remaining := held.Shares - o.quantity; remaining > 0 {
			h := domain.Holding{Symbol: o.symbol, Shares: remaining, AvgCost: held.AvgCost}
			next[o.symbol] = h
			plan.holding = &h
		} else {
			delete(next, o.symbol)
		}
		return plan, nil
	}

	return tradePlan{}, fmt.Errorf("%w: unknown side %s", domain.ErrValidation, o.side)
}

// commit writes balance, then portfolio, then the transaction. When a later
// write fails the earlier ones are restored before returning. Once started the
// writes are not interrupted by cancellation of the request.
func (e *Engine) commit(ctx context.Context, oldBalance decimal.Decimal, oldPortfolio domain.Portfolio, plan tradePlan, tx domain.Transaction) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	username := tx.Username

	if err := e.accounts.SetBalance(ctx, username, plan.balance); err != nil {
		return storeError("write balance", err)
	}

	if err := e.portfolios.Replace(ctx, username, plan.portfolio); err != nil {
		e.compensate(ctx, tx, oldBalance, nil, false)
		return storeError("write portfolio", err)
	}

	if err := e.txlog.Append(ctx, tx); err != nil {
		e.compensate(ctx, tx, oldBalance, oldPortfolio, true)
		return storeError("append transaction", err)
	}

	return nil
}

// compensate restores the pre-trade balance and, when asked, the pre-trade portfolio
func (e *Engine) compensate(ctx context.Context, tx domain.Transaction, balance decimal.Decimal, portfolio domain.Portfolio, restorePortfolio bool) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	var errs []error
	if restorePortfolio {
		if err := e.portfolios.Replace(cctx, tx.Username, portfolio); err != nil {
			errs = append(errs, fmt.Errorf("restore portfolio: %w", err))
		}
	}
	if err := e.accounts.SetBalance(cctx, tx.Username, balance); err != nil {
		errs = append(errs, fmt.Errorf("restore balance: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		e.log.Error().
			Err(err).
			Str("username", tx.Username).
			Str("transaction_id", tx.ID).
			Str("symbol", tx.Symbol).
			Str("side", string(tx.Side)).
			Msg("Failed to roll back partial trade, account needs manual reconciliation")
		return
	}

	e.log.Warn().
		Str("username", tx.Username).
		Str("transaction_id", tx.ID).
		Msg("Partial trade rolled back")
}

// publish emits the trade event and queues the confirmation
func (e *Engine) publish(r *TradeResult) {
	tx := r.Transaction

	if e.events != nil {
		e.events.EmitTyped("trading", &events.TradeExecutedData{
			TransactionID: tx.ID,
			Username:      tx.Username,
			Symbol:        tx.Symbol,
			Side:          string(tx.Side),
			Quantity:      tx.Quantity,
			Price:         tx.Price.String(),
			Total:         tx.Total.String(),
			Balance:       r.Balance.String(),
		})
	}

	if e.notifier != nil {
		subject, body := ConfirmationMessage(tx)
		e.notifier.Notify(tx.Username, subject, body)
	}
}

// ConfirmationMessage returns the subject and body sent to the user after a trade
func ConfirmationMessage(tx domain.Transaction) (string, string) {
	verb, subject := "bought", "Buy Order Confirmation"
	if tx.Side.IsSell() {
		verb, subject = "sold", "Sell Order Confirmation"
	}
	body := fmt.Sprintf("Successfully %s %d shares of %s at $%s each. Total: $%s",
		verb, tx.Quantity, tx.Symbol, tx.Price.StringFixed(2), tx.Total.StringFixed(2))
	return subject, body
}

func completedMessage(side domain.TradeSide) string {
	if side.IsSell() {
		return "Sell order completed"
	}
	return "Buy order completed"
}

// storeError marks a backend failure as ErrStoreUnavailable. A cancelled
// request keeps its context error.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}
