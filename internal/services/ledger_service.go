// Package services orchestrates the wallet domain: the transaction lifecycle
// engine, read-side reporting, and per-user bootstrap.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"wallet/internal/amqp"
	"wallet/internal/core"
	"wallet/internal/storage"
)

// LedgerService is the transaction lifecycle engine. Every operation applies
// its balance and summary effects and its row mutation inside one store
// transaction; a failure anywhere rolls back everything.
//
// Updates are reverse-then-reapply, never a field diff: the stored snapshot's
// effects are fully undone with its old values, then the new values are
// applied as if freshly created. This stays correct when amount, type,
// accounts and date all change at once.
type LedgerService struct {
	storage *storage.SQLiteRepository
	events  *amqp.Client
}

func NewLedgerService(storage *storage.SQLiteRepository, events *amqp.Client) *LedgerService {
	return &LedgerService{
		storage: storage,
		events:  events,
	}
}

// Create validates and posts a new transaction. Validation failures surface
// before any mutation.
func (s *LedgerService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Normalize()

	err := s.storage.Ledger(ctx, func(lt *storage.LedgerTx) error {
		if err := s.validate(ctx, lt, &tx); err != nil {
			return err
		}
		if err := applyEffect(ctx, lt, &tx, +1); err != nil {
			return err
		}
		if err := lt.InsertTransaction(ctx, &tx); err != nil {
			return err
		}
		return applySummary(ctx, lt, &tx, +1)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.String())

	s.publishEvent(ctx, amqp.ActionCreated, tx.ID, tx.UserID, 1)
	return tx, nil
}

// Update replaces a transaction's fields wholesale. The caller supplies the
// complete new value; partial overlays are resolved at the transport layer.
func (s *LedgerService) Update(ctx context.Context, userID, id int64, updated core.Transaction) (core.Transaction, error) {
	updated.ID = id
	updated.UserID = userID
	updated.Normalize()

	err := s.storage.Ledger(ctx, func(lt *storage.LedgerTx) error {
		old, err := lt.Transaction(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := s.validate(ctx, lt, &updated); err != nil {
			return err
		}

		// Undo the stored snapshot completely: old accounts, old date,
		// old type and amount. Reusing any old field against new ones
		// is never correct.
		if err := applyEffect(ctx, lt, &old, -1); err != nil {
			return err
		}
		if err := applySummary(ctx, lt, &old, -1); err != nil {
			return err
		}

		if err := applyEffect(ctx, lt, &updated, +1); err != nil {
			return err
		}
		if err := applySummary(ctx, lt, &updated, +1); err != nil {
			return err
		}

		updated.CreatedAt = old.CreatedAt
		return lt.UpdateTransaction(ctx, &updated)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", id,
		"user_id", userID,
		"type", updated.Type,
		"amount_cents", updated.Amount.Cents)

	s.publishEvent(ctx, amqp.ActionUpdated, id, userID, 0)
	return updated, nil
}

// Delete reverses all stored effects of the transaction and removes its row.
func (s *LedgerService) Delete(ctx context.Context, userID, id int64) error {
	err := s.storage.Ledger(ctx, func(lt *storage.LedgerTx) error {
		old, err := lt.Transaction(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := applyEffect(ctx, lt, &old, -1); err != nil {
			return err
		}
		if err := applySummary(ctx, lt, &old, -1); err != nil {
			return err
		}
		return lt.DeleteTransaction(ctx, userID, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"transaction_id", id,
		"user_id", userID)

	s.publishEvent(ctx, amqp.ActionDeleted, id, userID, 0)
	return nil
}

// Get returns one transaction owned by the user.
func (s *LedgerService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, userID, id)
}

// List returns the user's transactions, newest first, narrowed by filter.
func (s *LedgerService) List(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx, userID, f)
}

// validate runs every structural and ownership check. Nothing has been
// mutated yet when it returns an error.
func (s *LedgerService) validate(ctx context.Context, lt *storage.LedgerTx, tx *core.Transaction) error {
	var category *core.Category
	if tx.CategoryID != nil {
		c, err := lt.Category(ctx, tx.UserID, *tx.CategoryID)
		if err != nil {
			return fmt.Errorf("resolve category: %w", err)
		}
		category = &c
	}
	if err := tx.Validate(category); err != nil {
		return err
	}
	if err := lt.AccountOwned(ctx, tx.UserID, tx.AccountID); err != nil {
		return fmt.Errorf("resolve account: %w", err)
	}
	if tx.DestinationAccountID != nil {
		if err := lt.AccountOwned(ctx, tx.UserID, *tx.DestinationAccountID); err != nil {
			return fmt.Errorf("resolve destination account: %w", err)
		}
	}
	return nil
}

// applyEffect posts the transaction's signed balance effects. sign +1 applies
// the forward effect, -1 the exact inverse. Transfers touch both legs.
func applyEffect(ctx context.Context, lt *storage.LedgerTx, tx *core.Transaction, sign int64) error {
	amount := tx.Amount.Cents * sign
	switch tx.Type {
	case core.TypeIncome:
		return lt.AdjustBalance(ctx, tx.AccountID, amount)
	case core.TypeExpense:
		return lt.AdjustBalance(ctx, tx.AccountID, -amount)
	case core.TypeTransfer:
		if err := lt.AdjustBalance(ctx, tx.AccountID, -amount); err != nil {
			return err
		}
		return lt.AdjustBalance(ctx, *tx.DestinationAccountID, amount)
	}
	return core.ErrInvalidType
}

// applySummary posts the transaction's period-summary effect. Transfers are
// balance-neutral across the system and never reach the summaries, in either
// direction.
func applySummary(ctx context.Context, lt *storage.LedgerTx, tx *core.Transaction, sign int64) error {
	if tx.Type == core.TypeTransfer {
		return nil
	}
	return lt.AdjustSummary(ctx, tx.UserID, tx.Date, tx.Type, tx.Amount.Cents*sign)
}

// publishEvent emits a lifecycle event for downstream consumers. The event
// stream is best-effort: the ledger transaction has already committed, so a
// publish failure is logged and swallowed.
func (s *LedgerService) publishEvent(ctx context.Context, action string, id, userID, version int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, action, id, userID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"action", action,
			"transaction_id", id,
			"error", err)
	}
}
