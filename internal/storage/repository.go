package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wallet/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the persistence layer for users, accounts, categories,
// transactions and period summaries. Reads go through it directly; every
// balance- or summary-mutating sequence goes through Ledger so it commits as
// one unit.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ---- users ----

func (r *SQLiteRepository) CreateUser(ctx context.Context, email string) (core.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, created_at) VALUES (?, ?)`, email, now)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	return core.User{ID: id, Email: email, CreatedAt: now}, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ---- accounts ----

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, balance_cents, icon, color, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.Balance.Cents, a.Icon, a.Color, now, now)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, balance_cents, icon, color, created_at, updated_at
		 FROM accounts WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, balance_cents, icon, color, created_at, updated_at
		 FROM accounts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateAccountMeta changes display fields only. Balance belongs to the
// ledger and is never written through this path.
func (r *SQLiteRepository) UpdateAccountMeta(ctx context.Context, a *core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, icon = ?, color = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		a.Name, a.Icon, a.Color, time.Now().UTC(), a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CountAccounts(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// ---- categories ----

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, type, icon, color, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Type, c.Icon, c.Color, now, now)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	return scanCategory(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, type, icon, color, created_at, updated_at
		 FROM categories WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, type, icon, color, created_at, updated_at
		 FROM categories WHERE user_id = ? ORDER BY type, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c *core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, icon = ?, color = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		c.Name, c.Type, c.Icon, c.Color, time.Now().UTC(), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CountCategories(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// ---- transactions (read side) ----

const transactionColumns = `id, user_id, amount_cents, type, category_id, account_id,
	destination_account_id, date, comment, created_at, updated_at`

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return scanTransaction(r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID))
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter";
// AccountID matches either leg of a transfer.
type TransactionFilter struct {
	StartDate  string
	EndDate    string
	Type       core.TransactionType
	CategoryID int64
	AccountID  int64
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	var (
		conds = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.StartDate != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.EndDate)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.CategoryID != 0 {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.AccountID != 0 {
		conds = append(conds, "(account_id = ? OR destination_account_id = ?)")
		args = append(args, f.AccountID, f.AccountID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date DESC, created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// SumTransactions aggregates amounts directly from transaction rows for one
// type within a date range. Used as the last fallback when no summaries exist.
func (r *SQLiteRepository) SumTransactions(ctx context.Context, userID int64, t core.TransactionType, rng core.DateRange) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE user_id = ? AND type = ? AND date >= ? AND date <= ?`,
		userID, t, rng.Start.String(), rng.End.String()).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum transactions: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// CategoryTotal is one row of a per-category breakdown.
type CategoryTotal struct {
	Category string
	Total    core.Money
}

// CategoryTotals groups transaction amounts by category name for one type
// within a range. Uncategorized transactions drop out via the join.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID int64, t core.TransactionType, rng core.DateRange) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, SUM(t.amount_cents) AS total
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.type = ? AND t.date >= ? AND t.date <= ?
		 GROUP BY c.name
		 ORDER BY total DESC`,
		userID, t, rng.Start.String(), rng.End.String())
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// ---- period summaries (read side) ----

func (r *SQLiteRepository) GetSummary(ctx context.Context, userID int64, g core.Granularity, key string) (core.PeriodSummary, error) {
	return scanSummary(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, period_type, period_key, income_cents, expense_cents, created_at, updated_at
		 FROM period_summaries WHERE user_id = ? AND period_type = ? AND period_key = ?`,
		userID, g, key))
}

// SummaryFilter narrows ListSummaries; zero values mean "no filter".
type SummaryFilter struct {
	PeriodType core.Granularity
	PeriodKey  string
}

func (r *SQLiteRepository) ListSummaries(ctx context.Context, userID int64, f SummaryFilter) ([]core.PeriodSummary, error) {
	var (
		conds = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.PeriodType != "" {
		conds = append(conds, "period_type = ?")
		args = append(args, f.PeriodType)
	}
	if f.PeriodKey != "" {
		conds = append(conds, "period_key = ?")
		args = append(args, f.PeriodKey)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, period_type, period_key, income_cents, expense_cents, created_at, updated_at
		 FROM period_summaries WHERE `+strings.Join(conds, " AND ")+` ORDER BY period_key DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []core.PeriodSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// SumDailySummaries adds up daily rows whose keys fall inside the range.
// Daily keys are ISO dates, so the lexicographic BETWEEN is chronological.
// found is false when no daily rows exist in the range at all.
func (r *SQLiteRepository) SumDailySummaries(ctx context.Context, userID int64, rng core.DateRange) (income, expense core.Money, found bool, err error) {
	var count int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(income_cents), 0), COALESCE(SUM(expense_cents), 0)
		 FROM period_summaries
		 WHERE user_id = ? AND period_type = ? AND period_key >= ? AND period_key <= ?`,
		userID, core.Daily, rng.Start.String(), rng.End.String()).
		Scan(&count, &income.Cents, &expense.Cents)
	if err != nil {
		return core.Money{}, core.Money{}, false, fmt.Errorf("sum daily summaries: %w", err)
	}
	return income, expense, count > 0, nil
}

// ---- export backlog ----

// PendingExport identifies a transaction not yet pushed to the export sink.
type PendingExport struct {
	ID      int64
	UserID  int64
	Version int64
}

func (r *SQLiteRepository) ListPendingExport(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, version FROM transactions
		 WHERE exported_at IS NULL
		 ORDER BY export_attempts, id
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var pending []PendingExport
	for rows.Next() {
		var p PendingExport
		if err := rows.Scan(&p.ID, &p.UserID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET exported_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_attempts = export_attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	return nil
}

// ---- scanning helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Balance.Cents, &a.Icon, &a.Color, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func scanCategory(row rowScanner) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx       core.Transaction
		category sql.NullInt64
		destAcc  sql.NullInt64
		dateStr  string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount.Cents, &tx.Type, &category, &tx.AccountID,
		&destAcc, &dateStr, &tx.Comment, &tx.CreatedAt, &tx.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	if category.Valid {
		tx.CategoryID = &category.Int64
	}
	if destAcc.Valid {
		tx.DestinationAccountID = &destAcc.Int64
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	tx.Date = date
	return tx, nil
}

func scanSummary(row rowScanner) (core.PeriodSummary, error) {
	var s core.PeriodSummary
	err := row.Scan(&s.ID, &s.UserID, &s.PeriodType, &s.PeriodKey,
		&s.IncomeTotal.Cents, &s.ExpenseTotal.Cents, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PeriodSummary{}, core.ErrNotFound
	}
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("scan summary: %w", err)
	}
	return s, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
