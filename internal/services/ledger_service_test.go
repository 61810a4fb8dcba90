package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"wallet/internal/core"
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

// fixture is one user with two accounts and one category of each type.
type fixture struct {
	repo    *storage.SQLiteRepository
	ledger  *LedgerService
	userID  int64
	acctA   core.Account
	acctB   core.Account
	income  core.Category
	expense core.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := newTestRepo(t)

	user, err := repo.CreateUser(ctx, "fixture@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	f := &fixture{
		repo:    repo,
		ledger:  NewLedgerService(repo, nil),
		userID:  user.ID,
		acctA:   core.Account{UserID: user.ID, Name: "Checking", Balance: core.Money{Cents: 100000}},
		acctB:   core.Account{UserID: user.ID, Name: "Savings", Balance: core.Money{Cents: 50000}},
		income:  core.Category{UserID: user.ID, Name: "Salary", Type: core.TypeIncome},
		expense: core.Category{UserID: user.ID, Name: "Groceries", Type: core.TypeExpense},
	}
	for _, a := range []*core.Account{&f.acctA, &f.acctB} {
		if err := repo.CreateAccount(ctx, a); err != nil {
			t.Fatalf("create account: %v", err)
		}
	}
	for _, c := range []*core.Category{&f.income, &f.expense} {
		if err := repo.CreateCategory(ctx, c); err != nil {
			t.Fatalf("create category: %v", err)
		}
	}
	return f
}

func (f *fixture) balance(t *testing.T, accountID int64) int64 {
	t.Helper()
	a, err := f.repo.GetAccount(context.Background(), f.userID, accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance.Cents
}

// summary returns (income, expense) cents of one bucket, zeros when the row
// does not exist.
func (f *fixture) summary(t *testing.T, g core.Granularity, key string) (int64, int64) {
	t.Helper()
	s, err := f.repo.GetSummary(context.Background(), f.userID, g, key)
	if errors.Is(err, core.ErrNotFound) {
		return 0, 0
	}
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	return s.IncomeTotal.Cents, s.ExpenseTotal.Cents
}

func (f *fixture) checkSummaries(t *testing.T, date core.Date, wantIncome, wantExpense int64) {
	t.Helper()
	for _, g := range core.Granularities() {
		key := core.PeriodKey(date, g)
		income, expense := f.summary(t, g, key)
		if income != wantIncome || expense != wantExpense {
			t.Errorf("%s summary %s = (%d, %d), want (%d, %d)",
				g, key, income, expense, wantIncome, wantExpense)
		}
	}
}

func TestCreateAppliesEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := core.NewDate(2024, 3, 15)

	_, err := f.ledger.Create(ctx, core.Transaction{
		UserID:     f.userID,
		Amount:     core.Money{Cents: 30000},
		Type:       core.TypeIncome,
		CategoryID: &f.income.ID,
		AccountID:  f.acctA.ID,
		Date:       date,
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	if got := f.balance(t, f.acctA.ID); got != 130000 {
		t.Errorf("balance after income = %d, want 130000", got)
	}
	f.checkSummaries(t, date, 30000, 0)

	_, err = f.ledger.Create(ctx, core.Transaction{
		UserID:     f.userID,
		Amount:     core.Money{Cents: 10000},
		Type:       core.TypeExpense,
		CategoryID: &f.expense.ID,
		AccountID:  f.acctA.ID,
		Date:       date,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if got := f.balance(t, f.acctA.ID); got != 120000 {
		t.Errorf("balance after expense = %d, want 120000", got)
	}
	f.checkSummaries(t, date, 30000, 10000)
}

func TestUpdateReversesThenReapplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := core.NewDate(2024, 3, 15)

	tx, err := f.ledger.Create(ctx, core.Transaction{
		UserID:     f.userID,
		Amount:     core.Money{Cents: 100000},
		Type:       core.TypeExpense,
		CategoryID: &f.expense.ID,
		AccountID:  f.acctA.ID,
		Date:       date,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := f.balance(t, f.acctA.ID); got != 0 {
		t.Fatalf("balance after create = %d, want 0", got)
	}

	// Shrink the expense: the old effect is fully undone, not diffed.
	tx.Amount = core.Money{Cents: 70000}
	if _, err := f.ledger.Update(ctx, f.userID, tx.ID, tx); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := f.balance(t, f.acctA.ID); got != 30000 {
		t.Errorf("balance after update = %d, want 30000", got)
	}
	f.checkSummaries(t, date, 0, 70000)
}

func TestUpdateMovesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	march := core.NewDate(2024, 3, 15)
	april := core.NewDate(2024, 4, 2)

	tx, err := f.ledger.Create(ctx, core.Transaction{
		UserID:     f.userID,
		Amount:     core.Money{Cents: 20000},
		Type:       core.TypeExpense,
		CategoryID: &f.expense.ID,
		AccountID:  f.acctA.ID,
		Date:       march,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Change type, account, date and amount at once.
	updated := tx
	updated.Amount = core.Money{Cents: 45000}
	updated.Type = core.TypeIncome
	updated.CategoryID = &f.income.ID
	updated.AccountID = f.acctB.ID
	updated.Date = april
	if _, err := f.ledger.Update(ctx, f.userID, tx.ID, updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := f.balance(t, f.acctA.ID); got != 100000 {
		t.Errorf("old account balance = %d, want 100000", got)
	}
	if got := f.balance(t, f.acctB.ID); got != 95000 {
		t.Errorf("new account balance = %d, want 95000", got)
	}
	f.checkSummaries(t, march, 0, 0)
	f.checkSummaries(t, april, 45000, 0)
}

func TestDeleteRestoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := core.NewDate(2024, 3, 15)

	tx, err := f.ledger.Create(ctx, core.Transaction{
		UserID:     f.userID,
		Amount:     core.Money{Cents: 25000},
		Type:       core.TypeExpense,
		CategoryID: &f.expense.ID,
		AccountID:  f.acctA.ID,
		Date:       date,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.ledger.Delete(ctx, f.userID, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.balance(t, f.acctA.ID); got != 100000 {
		t.Errorf("balance after delete = %d, want 100000", got)
	}
	f.checkSummaries(t, date, 0, 0)

	if _, err := f.ledger.Get(ctx, f.userID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestTransferIsSummaryNeutral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := core.NewDate(2024, 3, 15)

	tx, err := f.ledger.Create(ctx, core.Transaction{
		UserID:               f.userID,
		Amount:               core.Money{Cents: 20000},
		Type:                 core.TypeTransfer,
		AccountID:            f.acctA.ID,
		DestinationAccountID: &f.acctB.ID,
		Date:                 date,
	})
	if err != nil {
		t.Fatalf("create transfer: %v", err)
	}

	if got := f.balance(t, f.acctA.ID); got != 80000 {
		t.Errorf("source balance = %d, want 80000", got)
	}
	if got := f.balance(t, f.acctB.ID); got != 70000 {
		t.Errorf("destination balance = %d, want 70000", got)
	}
	f.checkSummaries(t, date, 0, 0)

	summaries, err := f.repo.ListSummaries(ctx, f.userID, storage.SummaryFilter{})
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("summary rows after transfer = %d, want 0", len(summaries))
	}

	// Reversal restores both legs.
	if err := f.ledger.Delete(ctx, f.userID, tx.ID); err != nil {
		t.Fatalf("delete transfer: %v", err)
	}
	if got := f.balance(t, f.acctA.ID); got != 100000 {
		t.Errorf("source balance after delete = %d, want 100000", got)
	}
	if got := f.balance(t, f.acctB.ID); got != 50000 {
		t.Errorf("destination balance after delete = %d, want 50000", got)
	}
}

func TestTransferDropsCategory(t *testing.T) {
	f := newFixture(t)

	tx, err := f.ledger.Create(context.Background(), core.Transaction{
		UserID:               f.userID,
		Amount:               core.Money{Cents: 1000},
		Type:                 core.TypeTransfer,
		CategoryID:           &f.expense.ID,
		AccountID:            f.acctA.ID,
		DestinationAccountID: &f.acctB.ID,
		Date:                 core.NewDate(2024, 3, 15),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.CategoryID != nil {
		t.Error("transfer kept its category, want it cleared")
	}
}

func TestUpdateEquivalentToDeleteAndCreate(t *testing.T) {
	ctx := context.Background()
	date := core.NewDate(2024, 3, 15)
	newDate := core.NewDate(2024, 3, 20)

	run := func(t *testing.T, f *fixture, viaUpdate bool) {
		tx, err := f.ledger.Create(ctx, core.Transaction{
			UserID:     f.userID,
			Amount:     core.Money{Cents: 60000},
			Type:       core.TypeExpense,
			CategoryID: &f.expense.ID,
			AccountID:  f.acctA.ID,
			Date:       date,
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		replacement := core.Transaction{
			UserID:     f.userID,
			Amount:     core.Money{Cents: 15000},
			Type:       core.TypeIncome,
			CategoryID: &f.income.ID,
			AccountID:  f.acctB.ID,
			Date:       newDate,
		}
		if viaUpdate {
			if _, err := f.ledger.Update(ctx, f.userID, tx.ID, replacement); err != nil {
				t.Fatalf("update: %v", err)
			}
		} else {
			if err := f.ledger.Delete(ctx, f.userID, tx.ID); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := f.ledger.Create(ctx, replacement); err != nil {
				t.Fatalf("recreate: %v", err)
			}
		}
	}

	updated := newFixture(t)
	run(t, updated, true)
	recreated := newFixture(t)
	run(t, recreated, false)

	for _, acct := range []struct {
		name string
		a, b int64
	}{
		{"A", updated.acctA.ID, recreated.acctA.ID},
		{"B", updated.acctB.ID, recreated.acctB.ID},
	} {
		got := updated.balance(t, acct.a)
		want := recreated.balance(t, acct.b)
		if got != want {
			t.Errorf("account %s: update balance = %d, delete+create balance = %d", acct.name, got, want)
		}
	}
	for _, d := range []core.Date{date, newDate} {
		for _, g := range core.Granularities() {
			key := core.PeriodKey(d, g)
			gi, ge := updated.summary(t, g, key)
			wi, we := recreated.summary(t, g, key)
			if gi != wi || ge != we {
				t.Errorf("%s %s: update = (%d, %d), delete+create = (%d, %d)", g, key, gi, ge, wi, we)
			}
		}
	}
}

func TestCreateValidationLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := core.NewDate(2024, 3, 15)

	tests := []struct {
		name string
		tx   core.Transaction
	}{
		{
			name: "category type mismatch",
			tx: core.Transaction{
				UserID: f.userID, Amount: core.Money{Cents: 1000}, Type: core.TypeExpense,
				CategoryID: &f.income.ID, AccountID: f.acctA.ID, Date: date,
			},
		},
		{
			name: "zero amount",
			tx: core.Transaction{
				UserID: f.userID, Amount: core.Money{}, Type: core.TypeExpense,
				AccountID: f.acctA.ID, Date: date,
			},
		},
		{
			name: "transfer to itself",
			tx: core.Transaction{
				UserID: f.userID, Amount: core.Money{Cents: 1000}, Type: core.TypeTransfer,
				AccountID: f.acctA.ID, DestinationAccountID: &f.acctA.ID, Date: date,
			},
		},
		{
			name: "unknown account",
			tx: core.Transaction{
				UserID: f.userID, Amount: core.Money{Cents: 1000}, Type: core.TypeExpense,
				AccountID: 99999, Date: date,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.Create(ctx, tt.tx); err == nil {
				t.Fatal("create succeeded, want error")
			}
			if got := f.balance(t, f.acctA.ID); got != 100000 {
				t.Errorf("balance changed to %d after failed create", got)
			}
			f.checkSummaries(t, date, 0, 0)
		})
	}
}

func TestCrossUserOperationsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	intruder, err := f.repo.CreateUser(ctx, "intruder@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	tx, err := f.ledger.Create(ctx, core.Transaction{
		UserID:     f.userID,
		Amount:     core.Money{Cents: 5000},
		Type:       core.TypeExpense,
		CategoryID: &f.expense.ID,
		AccountID:  f.acctA.ID,
		Date:       core.NewDate(2024, 3, 15),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.ledger.Get(ctx, intruder.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("get: err = %v, want ErrNotFound", err)
	}
	if err := f.ledger.Delete(ctx, intruder.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("delete: err = %v, want ErrNotFound", err)
	}
	if _, err := f.ledger.Update(ctx, intruder.ID, tx.ID, tx); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("update: err = %v, want ErrNotFound", err)
	}

	// The owner's data is untouched.
	if got := f.balance(t, f.acctA.ID); got != 95000 {
		t.Errorf("owner balance = %d, want 95000", got)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "boot@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	b := NewBootstrapper(repo)
	for range 2 {
		if err := b.EnsureDefaults(ctx, user.ID); err != nil {
			t.Fatalf("ensure defaults: %v", err)
		}
	}

	accounts, err := repo.ListAccounts(ctx, user.ID)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != len(defaultAccounts) {
		t.Errorf("accounts = %d, want %d", len(accounts), len(defaultAccounts))
	}
	categories, err := repo.ListCategories(ctx, user.ID)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != len(defaultCategories) {
		t.Errorf("categories = %d, want %d", len(categories), len(defaultCategories))
	}
}
