package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"wallet/internal/amqp"
	"wallet/internal/core"
	"wallet/internal/sheets"
	"wallet/internal/sheets/memory"
	"wallet/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTransaction(t *testing.T, repo *storage.SQLiteRepository) core.Transaction {
	t.Helper()
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "w@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	account := core.Account{UserID: user.ID, Name: "Checking"}
	if err := repo.CreateAccount(ctx, &account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	category := core.Category{UserID: user.ID, Name: "Groceries", Type: core.TypeExpense}
	if err := repo.CreateCategory(ctx, &category); err != nil {
		t.Fatalf("create category: %v", err)
	}

	tx := core.Transaction{
		UserID:     user.ID,
		Amount:     core.Money{Cents: 4250},
		Type:       core.TypeExpense,
		CategoryID: &category.ID,
		AccountID:  account.ID,
		Date:       core.NewDate(2024, 3, 15),
		Comment:    "weekly shop",
	}
	err = repo.Ledger(ctx, func(lt *storage.LedgerTx) error {
		return lt.InsertTransaction(ctx, &tx)
	})
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	return tx
}

func TestProcessPendingExports(t *testing.T) {
	repo := newTestRepo(t)
	seedTransaction(t, repo)
	store := memory.New()
	w := NewExportWorker(repo, store, 10)
	ctx := context.Background()

	if err := w.ProcessPendingExports(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	rows := store.Rows()
	if len(rows) != 1 {
		t.Fatalf("exported rows = %d, want 1", len(rows))
	}
	want := sheets.StatementRow{
		Date:        "2024-03-15",
		Type:        "expense",
		Description: "weekly shop",
		Amount:      "42.50",
		Account:     "Checking",
		Category:    "Groceries",
	}
	if rows[0] != want {
		t.Errorf("row = %+v, want %+v", rows[0], want)
	}

	pending, err := repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after export = %d, want 0", len(pending))
	}

	// A second pass finds nothing and appends nothing
	if err := w.ProcessPendingExports(ctx); err != nil {
		t.Fatalf("second process: %v", err)
	}
	if got := len(store.Rows()); got != 1 {
		t.Errorf("rows after second pass = %d, want 1", got)
	}
}

func TestHandleTransactionEvent(t *testing.T) {
	repo := newTestRepo(t)
	tx := seedTransaction(t, repo)
	store := memory.New()
	w := NewExportWorker(repo, store, 10)
	ctx := context.Background()

	event := &amqp.TransactionEvent{
		Action: amqp.ActionCreated,
		ID:     tx.ID,
		UserID: tx.UserID,
	}
	if err := w.HandleTransactionEvent(ctx, event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := len(store.Rows()); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
}

func TestHandleTransactionEventDelete(t *testing.T) {
	repo := newTestRepo(t)
	store := memory.New()
	w := NewExportWorker(repo, store, 10)

	err := w.HandleTransactionEvent(context.Background(), &amqp.TransactionEvent{
		Action: amqp.ActionDeleted,
		ID:     123,
		UserID: 1,
	})
	if err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if got := len(store.Rows()); got != 0 {
		t.Errorf("rows = %d, want 0", got)
	}
}

func TestHandleTransactionEventVanished(t *testing.T) {
	repo := newTestRepo(t)
	store := memory.New()
	w := NewExportWorker(repo, store, 10)

	// Row deleted between publish and consume: swallowed, not an error
	err := w.HandleTransactionEvent(context.Background(), &amqp.TransactionEvent{
		Action: amqp.ActionCreated,
		ID:     123,
		UserID: 1,
	})
	if err != nil {
		t.Fatalf("handle vanished: %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) AppendStatement(context.Context, sheets.StatementRow) (string, error) {
	return "", errors.New("sink unavailable")
}

func TestExportFailureIncrementsAttempts(t *testing.T) {
	repo := newTestRepo(t)
	tx := seedTransaction(t, repo)
	w := NewExportWorker(repo, failingWriter{}, 10)
	ctx := context.Background()

	if err := w.ProcessPendingExports(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	// Still pending, with a recorded attempt
	pending, err := repo.ListPendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID {
		t.Fatalf("pending = %+v, want the original row", pending)
	}
}
