// Package credits implements the per-user submission credit ledger. The only authoritative
// gate is the conditional debit; balances shown elsewhere are informational.
package credits

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/types"
)

// SubmissionCost is the number of credits one successful submission consumes.
const SubmissionCost = 1

// Debit atomically checks balance >= amount and decrements it inside tx. On failure nothing
// is changed and an insufficient_credit error is returned.
func Debit(ctx context.Context, tx store.Tx, userID uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, apperrors.Validation("amount", "amount must be positive")
	}
	return tx.DebitCredits(ctx, userID, amount)
}

// Options groups dependencies for Ledger.
type Options struct {
	Store  store.Store  // Required
	Logger *slog.Logger // Optional: structured logger
}

// Ledger exposes balances and admin top-ups.
type Ledger struct {
	store  store.Store
	logger *slog.Logger
}

// NewLedger constructs a Ledger.
func NewLedger(opts Options) (*Ledger, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: opts.Store, logger: logger.With("component", "credits")}, nil
}

// CheckAndDebit debits amount from the user's balance in its own transaction.
func (l *Ledger) CheckAndDebit(ctx context.Context, userID uuid.UUID, amount int) (int, error) {
	var balance int
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		balance, err = Debit(ctx, tx, userID, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	l.logger.InfoContext(ctx, "credits debited", "user_id", userID, "amount", amount, "balance", balance)
	return balance, nil
}

// Balance returns a user's account. Users see their own; agents and admins see anyone's.
func (l *Ledger) Balance(ctx context.Context, actor types.Actor, userID uuid.UUID) (*types.CreditAccount, error) {
	if actor.ID != userID && !actor.IsAgent() {
		return nil, apperrors.Forbidden("cannot view another user's credits")
	}
	return l.store.GetAccount(ctx, userID)
}

// Grant adds credits to a user's balance. Admin only.
func (l *Ledger) Grant(ctx context.Context, actor types.Actor, userID uuid.UUID, req *types.GrantCreditsRequest) (*types.CreditAccount, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only admins can grant credits")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	var acct *types.CreditAccount
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GrantCredits(ctx, userID, req.Amount); err != nil {
			return err
		}
		var err error
		acct, err = tx.GetAccount(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.InfoContext(ctx, "credits granted", "user_id", userID, "amount", req.Amount, "balance", acct.Balance, "by", actor.ID)
	return acct, nil
}

// SetFlags updates account feature flags. Admin only.
func (l *Ledger) SetFlags(ctx context.Context, actor types.Actor, userID uuid.UUID, req *types.AccountFlagsRequest) (*types.CreditAccount, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only admins can change account flags")
	}
	var acct *types.CreditAccount
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		acct, err = tx.SetAccountFlags(ctx, userID, req.RequireCustomResume)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.InfoContext(ctx, "account flags updated", "user_id", userID, "require_custom_resume", req.RequireCustomResume)
	return acct, nil
}
