// Command wallet-seed fills a demo user's ledger with plausible random
// transactions. Every transaction goes through the ledger service, so
// balances and period summaries stay consistent with the generated data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wallet/internal/config"
	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/services"
	"wallet/internal/storage"
)

type seedCategory struct {
	name  string
	icon  string
	color string
}

type seedAccount struct {
	name  string
	icon  string
	color string
}

var incomeCategories = []seedCategory{
	{name: "Salary", icon: "briefcase", color: "#4CAF50"},
	{name: "Freelance", icon: "code", color: "#2196F3"},
	{name: "Gifts", icon: "gift", color: "#E91E63"},
	{name: "Deposit interest", icon: "percent", color: "#9C27B0"},
	{name: "Debt repayment", icon: "refresh-cw", color: "#673AB7"},
}

var expenseCategories = []seedCategory{
	{name: "Groceries", icon: "shopping-cart", color: "#F44336"},
	{name: "Transport", icon: "truck", color: "#FF9800"},
	{name: "Restaurants", icon: "coffee", color: "#795548"},
	{name: "Entertainment", icon: "film", color: "#FF5722"},
	{name: "Health", icon: "activity", color: "#00BCD4"},
	{name: "Housing", icon: "home", color: "#607D8B"},
	{name: "Utilities", icon: "zap", color: "#FFC107"},
	{name: "Clothing", icon: "shopping-bag", color: "#9E9E9E"},
	{name: "Travel", icon: "map", color: "#3F51B5"},
	{name: "Subscriptions", icon: "calendar", color: "#009688"},
}

var seedAccounts = []seedAccount{
	{name: "Cash", icon: "dollar-sign", color: "#4CAF50"},
	{name: "Debit card", icon: "credit-card", color: "#2196F3"},
	{name: "Credit card", icon: "credit-card", color: "#F44336"},
	{name: "Savings", icon: "briefcase", color: "#FFC107"},
}

var incomeComments = []string{
	"Salary for %s",
	"Quarterly bonus",
	"Tax refund",
	"Investment income",
	"Side job",
	"Birthday gift",
	"Friend paid back a loan",
	"Sold some old stuff",
	"Cashback",
	"Dividends",
}

var expenseComments = []string{
	"Groceries at %s",
	"Lunch at a cafe",
	"Dinner with friends",
	"Taxi ride",
	"Utility bills",
	"Service subscription",
	"New clothes",
	"Phone bill",
	"Internet bill",
	"Medicine",
	"Gym membership",
	"Night out",
	"Gift for %s",
	"Books",
	"Electronics",
}

var stores = []string{"Aldi", "Lidl", "Tesco", "Carrefour", "Costco", "Spar"}
var persons = []string{"mom", "dad", "a friend", "my sister", "my brother", "a colleague"}

// txSpec is a generated transaction before it is replayed through the ledger.
type txSpec struct {
	amountCents  int64
	typ          core.TransactionType
	accountIdx   int
	categoryName string
	date         core.Date
	comment      string
}

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentSeed})
	log.SetDefault(logger)

	email := flag.String("email", "demo@example.com", "demo user email")
	count := flag.Int("count", 200, "number of transactions to generate")
	flag.Parse()

	cfg := config.Load()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err,
			"path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()
	ledger := services.NewLedgerService(repo, nil)

	user, err := ensureUser(ctx, repo, *email)
	if err != nil {
		logger.Error("Failed to prepare demo user", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Seeding demo data", log.FieldUserID, user.ID, "email", user.Email, "count", *count)

	if err := clearTransactions(ctx, repo, ledger, user.ID); err != nil {
		logger.Error("Failed to clear previous transactions", log.FieldError, err)
		os.Exit(1)
	}

	categories, err := ensureCategories(ctx, repo, user.ID)
	if err != nil {
		logger.Error("Failed to prepare categories", log.FieldError, err)
		os.Exit(1)
	}

	specs := generate(*count)

	accounts, err := ensureAccounts(ctx, repo, user.ID, specs)
	if err != nil {
		logger.Error("Failed to prepare accounts", log.FieldError, err)
		os.Exit(1)
	}

	for _, spec := range specs {
		account := accounts[spec.accountIdx%len(accounts)]
		category := categories[spec.categoryName]
		tx := core.Transaction{
			UserID:     user.ID,
			Amount:     core.Money{Cents: spec.amountCents},
			Type:       spec.typ,
			CategoryID: &category.ID,
			AccountID:  account.ID,
			Date:       spec.date,
			Comment:    spec.comment,
		}
		if _, err := ledger.Create(ctx, tx); err != nil {
			logger.Error("Failed to create transaction", log.FieldError, err)
			os.Exit(1)
		}
	}

	final, err := repo.ListAccounts(ctx, user.ID)
	if err != nil {
		logger.Error("Failed to list accounts", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Demo data ready", "transactions", len(specs))
	for _, a := range final {
		fmt.Printf("  %-12s %s\n", a.Name, a.Balance.String())
	}
}

func ensureUser(ctx context.Context, repo *storage.SQLiteRepository, email string) (core.User, error) {
	user, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, err
	}
	return repo.CreateUser(ctx, email)
}

// clearTransactions removes the user's transactions through the ledger so
// balances and summaries are rolled back rather than orphaned.
func clearTransactions(ctx context.Context, repo *storage.SQLiteRepository, ledger *services.LedgerService, userID int64) error {
	existing, err := repo.ListTransactions(ctx, userID, storage.TransactionFilter{})
	if err != nil {
		return err
	}
	for _, tx := range existing {
		if err := ledger.Delete(ctx, userID, tx.ID); err != nil {
			return err
		}
	}
	return nil
}

func ensureCategories(ctx context.Context, repo *storage.SQLiteRepository, userID int64) (map[string]core.Category, error) {
	existing, err := repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]core.Category, len(existing))
	for _, c := range existing {
		byName[c.Name] = c
	}

	create := func(seed seedCategory, typ core.TransactionType) error {
		if _, ok := byName[seed.name]; ok {
			return nil
		}
		c := core.Category{
			UserID: userID,
			Name:   seed.name,
			Type:   typ,
			Icon:   seed.icon,
			Color:  seed.color,
		}
		if err := repo.CreateCategory(ctx, &c); err != nil {
			return err
		}
		byName[c.Name] = c
		return nil
	}

	for _, seed := range incomeCategories {
		if err := create(seed, core.TypeIncome); err != nil {
			return nil, err
		}
	}
	for _, seed := range expenseCategories {
		if err := create(seed, core.TypeExpense); err != nil {
			return nil, err
		}
	}
	return byName, nil
}

// ensureAccounts creates the demo accounts when the user has none. New
// accounts start with enough balance to cover the generated expenses, so no
// account ends up negative.
func ensureAccounts(ctx context.Context, repo *storage.SQLiteRepository, userID int64, specs []txSpec) ([]core.Account, error) {
	accounts, err := repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		return accounts, nil
	}

	deltas := make([]int64, len(seedAccounts))
	for _, spec := range specs {
		idx := spec.accountIdx % len(seedAccounts)
		if spec.typ == core.TypeIncome {
			deltas[idx] += spec.amountCents
		} else {
			deltas[idx] -= spec.amountCents
		}
	}

	for i, seed := range seedAccounts {
		var opening int64
		if deltas[i] < 0 {
			opening = -deltas[i]
		}
		a := core.Account{
			UserID:  userID,
			Name:    seed.name,
			Balance: core.Money{Cents: opening},
			Icon:    seed.icon,
			Color:   seed.color,
		}
		if err := repo.CreateAccount(ctx, &a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func generate(count int) []txSpec {
	end := time.Now().UTC()
	specs := make([]txSpec, 0, count)

	for range count {
		// Expenses dominate: roughly two expenses for every income.
		isIncome := rand.Float64() < 0.35

		spec := txSpec{accountIdx: rand.IntN(len(seedAccounts))}
		if isIncome {
			spec.typ = core.TypeIncome
			spec.amountCents = 500000 + rand.Int64N(14500001)
			spec.categoryName = incomeCategories[rand.IntN(len(incomeCategories))].name
		} else {
			spec.typ = core.TypeExpense
			spec.amountCents = 10000 + rand.Int64N(1490001)
			spec.categoryName = expenseCategories[rand.IntN(len(expenseCategories))].name
		}

		day := end.AddDate(0, 0, -rand.IntN(180))
		spec.date = core.NewDate(day.Year(), int(day.Month()), day.Day())
		spec.comment = comment(spec.typ, day)

		specs = append(specs, spec)
	}
	return specs
}

func comment(typ core.TransactionType, date time.Time) string {
	if typ == core.TypeIncome {
		c := incomeComments[rand.IntN(len(incomeComments))]
		if strings.Contains(c, "%s") {
			return fmt.Sprintf(c, date.Month().String())
		}
		return c
	}
	c := expenseComments[rand.IntN(len(expenseComments))]
	if strings.Contains(c, "%s") {
		if strings.HasPrefix(c, "Groceries") {
			return fmt.Sprintf(c, stores[rand.IntN(len(stores))])
		}
		return fmt.Sprintf(c, persons[rand.IntN(len(persons))])
	}
	return c
}
