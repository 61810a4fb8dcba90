package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet/internal/core"
)

// LedgerTx is the unit of work for balance- and summary-mutating sequences.
// Everything done through it commits or rolls back together; partial effects
// are never visible.
type LedgerTx struct {
	tx *sql.Tx
}

// Ledger runs fn inside one serializable store transaction. Any error from fn
// rolls the whole unit back.
func (r *SQLiteRepository) Ledger(ctx context.Context, fn func(lt *LedgerTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger transaction: %w", err)
	}

	if err := fn(&LedgerTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback ledger transaction: %v (after: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

// AccountOwned verifies that the account exists and belongs to the user.
func (lt *LedgerTx) AccountOwned(ctx context.Context, userID, accountID int64) error {
	var one int
	err := lt.tx.QueryRowContext(ctx,
		`SELECT 1 FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check account ownership: %w", err)
	}
	return nil
}

// Category loads a category owned by the user, for type-compatibility checks.
func (lt *LedgerTx) Category(ctx context.Context, userID, categoryID int64) (core.Category, error) {
	return scanCategory(lt.tx.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, icon, color, created_at, updated_at
		 FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID))
}

// Transaction loads the persisted snapshot of a transaction inside the unit.
// Used by update/delete to compute the exact inverse of the stored effects.
func (lt *LedgerTx) Transaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return scanTransaction(lt.tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID))
}

// AdjustBalance adds deltaCents to the stored account balance as an in-store
// increment. No read-modify-write, so concurrent units cannot lose updates.
// No sign or magnitude policy is applied here.
func (lt *LedgerTx) AdjustBalance(ctx context.Context, accountID, deltaCents int64) error {
	res, err := lt.tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ?, updated_at = ? WHERE id = ?`,
		deltaCents, time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	return requireRow(res)
}

// AdjustSummary adds deltaCents to the income or expense total of the daily,
// monthly and yearly buckets covering date, creating missing rows at zero.
// The (user, period_type, period_key) uniqueness constraint makes concurrent
// creation race-safe: the conflicting insert folds into an update.
func (lt *LedgerTx) AdjustSummary(ctx context.Context, userID int64, date core.Date, kind core.TransactionType, deltaCents int64) error {
	var incomeDelta, expenseDelta int64
	switch kind {
	case core.TypeIncome:
		incomeDelta = deltaCents
	case core.TypeExpense:
		expenseDelta = deltaCents
	default:
		return fmt.Errorf("adjust summary: kind %q does not post to summaries", kind)
	}

	now := time.Now().UTC()
	for _, g := range core.Granularities() {
		key := core.PeriodKey(date, g)
		_, err := lt.tx.ExecContext(ctx,
			`INSERT INTO period_summaries
			   (user_id, period_type, period_key, income_cents, expense_cents, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, period_type, period_key) DO UPDATE SET
			   income_cents = income_cents + excluded.income_cents,
			   expense_cents = expense_cents + excluded.expense_cents,
			   updated_at = excluded.updated_at`,
			userID, g, key, incomeDelta, expenseDelta, now, now)
		if err != nil {
			return fmt.Errorf("adjust %s summary %s: %w", g, key, err)
		}
	}
	return nil
}

// InsertTransaction persists a new transaction and fills in its identity.
func (lt *LedgerTx) InsertTransaction(ctx context.Context, tx *core.Transaction) error {
	now := time.Now().UTC()
	res, err := lt.tx.ExecContext(ctx,
		`INSERT INTO transactions
		   (user_id, amount_cents, type, category_id, account_id, destination_account_id,
		    date, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Amount.Cents, tx.Type, nullableID(tx.CategoryID), tx.AccountID,
		nullableID(tx.DestinationAccountID), tx.Date.String(), tx.Comment, now, now)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("transaction insert id: %w", err)
	}
	tx.ID = id
	tx.CreatedAt = now
	tx.UpdatedAt = now
	return nil
}

// UpdateTransaction persists new field values over an existing row, bumps the
// export version and re-queues the row for export.
func (lt *LedgerTx) UpdateTransaction(ctx context.Context, tx *core.Transaction) error {
	now := time.Now().UTC()
	res, err := lt.tx.ExecContext(ctx,
		`UPDATE transactions SET
		   amount_cents = ?, type = ?, category_id = ?, account_id = ?,
		   destination_account_id = ?, date = ?, comment = ?,
		   version = version + 1, exported_at = NULL, export_attempts = 0, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		tx.Amount.Cents, tx.Type, nullableID(tx.CategoryID), tx.AccountID,
		nullableID(tx.DestinationAccountID), tx.Date.String(), tx.Comment, now,
		tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	tx.UpdatedAt = now
	return requireRow(res)
}

// DeleteTransaction removes the persisted row.
func (lt *LedgerTx) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := lt.tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
