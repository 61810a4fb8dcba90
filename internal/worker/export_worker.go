package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wallet/internal/amqp"
	"wallet/internal/core"
	"wallet/internal/sheets"
	"wallet/internal/storage"
)

// ExportWorker ships committed transactions to the external statement.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.StatementWriter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, writer sheets.StatementWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleTransactionEvent processes a single transaction event from AMQP.
func (w *ExportWorker) HandleTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"action", event.Action,
		"transaction_id", event.ID,
		"version", event.Version)

	if event.Action == amqp.ActionDeleted {
		// The row is gone; there is nothing left to export.
		return nil
	}

	tx, err := w.storage.GetTransaction(ctx, event.UserID, event.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between publish and consume
			slog.WarnContext(ctx, "Transaction vanished before export", "transaction_id", event.ID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.exportTransaction(ctx, tx)
}

// ProcessPendingExports exports transactions that never made it to the
// statement. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.storage.ListPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		tx, err := w.storage.GetTransaction(ctx, p.UserID, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "transaction_id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "transaction_id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "transaction_id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains the export backlog at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.ListPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		tx, err := w.storage.GetTransaction(ctx, p.UserID, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup export",
				"transaction_id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "transaction_id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export during startup",
				"transaction_id", p.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, tx core.Transaction) error {
	row, err := w.buildRow(ctx, tx)
	if err != nil {
		return err
	}

	ref, err := w.writer.AppendStatement(ctx, row)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "transaction_id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append statement: %w", err)
	}

	if err := w.storage.MarkExported(ctx, tx.ID); err != nil {
		// The append itself worked, so do not bubble this up
		slog.ErrorContext(ctx, "Failed to mark as exported", "transaction_id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", tx.ID,
		"sheets_ref", ref,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents)

	return nil
}

func (w *ExportWorker) buildRow(ctx context.Context, tx core.Transaction) (sheets.StatementRow, error) {
	account, err := w.storage.GetAccount(ctx, tx.UserID, tx.AccountID)
	if err != nil {
		return sheets.StatementRow{}, fmt.Errorf("get account: %w", err)
	}

	categoryName := ""
	if tx.CategoryID != nil {
		category, err := w.storage.GetCategory(ctx, tx.UserID, *tx.CategoryID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return sheets.StatementRow{}, fmt.Errorf("get category: %w", err)
		}
		if err == nil {
			categoryName = category.Name
		}
	}

	return sheets.StatementRow{
		Date:        tx.Date.String(),
		Type:        string(tx.Type),
		Description: tx.Comment,
		Amount:      tx.Amount.String(),
		Account:     account.Name,
		Category:    categoryName,
	}, nil
}
