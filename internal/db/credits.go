package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/types"
)

func getAccount(ctx context.Context, q querier, userID uuid.UUID) (*types.CreditAccount, error) {
	acct := types.CreditAccount{UserID: userID}
	err := q.QueryRow(ctx,
		`SELECT balance, require_custom_resume, updated_at FROM credit_accounts WHERE user_id = $1`,
		userID,
	).Scan(&acct.Balance, &acct.RequireCustomResume, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &acct, nil
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to get credit account: %w", err))
	}
	return &acct, nil
}

// debitCredits is a conditional decrement: the WHERE clause makes check and debit one statement.
func debitCredits(ctx context.Context, q querier, userID uuid.UUID, amount int) (int, error) {
	var balance int
	err := q.QueryRow(ctx,
		`UPDATE credit_accounts SET balance = balance - $2, updated_at = NOW()
		 WHERE user_id = $1 AND balance >= $2
		 RETURNING balance`,
		userID, amount,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		acct, gerr := getAccount(ctx, q, userID)
		if gerr != nil {
			return 0, gerr
		}
		return acct.Balance, apperrors.InsufficientCredit("balance %d cannot cover %d credit(s)", acct.Balance, amount)
	}
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("failed to debit credits: %w", err))
	}
	return balance, nil
}

func grantCredits(ctx context.Context, q querier, userID uuid.UUID, amount int) (int, error) {
	var balance int
	err := q.QueryRow(ctx,
		`INSERT INTO credit_accounts (user_id, balance) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET balance = credit_accounts.balance + EXCLUDED.balance, updated_at = NOW()
		 RETURNING balance`,
		userID, amount,
	).Scan(&balance)
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("failed to grant credits: %w", err))
	}
	return balance, nil
}

func setAccountFlags(ctx context.Context, q querier, userID uuid.UUID, requireCustomResume bool) (*types.CreditAccount, error) {
	acct := types.CreditAccount{UserID: userID}
	err := q.QueryRow(ctx,
		`INSERT INTO credit_accounts (user_id, require_custom_resume) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET require_custom_resume = EXCLUDED.require_custom_resume, updated_at = NOW()
		 RETURNING balance, require_custom_resume, updated_at`,
		userID, requireCustomResume,
	).Scan(&acct.Balance, &acct.RequireCustomResume, &acct.UpdatedAt)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("failed to set account flags: %w", err))
	}
	return &acct, nil
}
