package services

import (
	"context"
	"fmt"
	"log/slog"

	"wallet/internal/core"
	"wallet/internal/storage"
)

// Bootstrapper seeds a fresh user with the default account and category sets.
// Both steps are idempotent: a user who already owns any account keeps their
// accounts untouched, likewise for categories.
type Bootstrapper struct {
	storage *storage.SQLiteRepository
}

func NewBootstrapper(storage *storage.SQLiteRepository) *Bootstrapper {
	return &Bootstrapper{storage: storage}
}

type defaultAccount struct {
	name    string
	balance int64
	icon    string
	color   string
}

type defaultCategory struct {
	name  string
	typ   core.TransactionType
	icon  string
	color string
}

var defaultAccounts = []defaultAccount{
	{name: "Cash", balance: 1500000, icon: "cash", color: "#10b981"},
	{name: "Main card", balance: 4250000, icon: "credit-card", color: "#3b82f6"},
}

var defaultCategories = []defaultCategory{
	{name: "Salary", typ: core.TypeIncome, icon: "wallet", color: "#10b981"},
	{name: "Freelance", typ: core.TypeIncome, icon: "briefcase", color: "#3b82f6"},
	{name: "Gifts", typ: core.TypeIncome, icon: "gift", color: "#8b5cf6"},
	{name: "Investments", typ: core.TypeIncome, icon: "trending-up", color: "#06b6d4"},
	{name: "Groceries", typ: core.TypeExpense, icon: "shopping-cart", color: "#ef4444"},
	{name: "Entertainment", typ: core.TypeExpense, icon: "film", color: "#f59e0b"},
	{name: "Transport", typ: core.TypeExpense, icon: "car", color: "#6366f1"},
	{name: "Utilities", typ: core.TypeExpense, icon: "home", color: "#ec4899"},
	{name: "Health", typ: core.TypeExpense, icon: "activity", color: "#14b8a6"},
	{name: "Cafes and restaurants", typ: core.TypeExpense, icon: "coffee", color: "#f97316"},
	{name: "Transfers", typ: core.TypeTransfer, icon: "transfer", color: "#000000"},
}

// EnsureDefaults creates the default accounts and categories for the user if
// they have none of each kind.
func (b *Bootstrapper) EnsureDefaults(ctx context.Context, userID int64) error {
	if err := b.ensureAccounts(ctx, userID); err != nil {
		return err
	}
	return b.ensureCategories(ctx, userID)
}

func (b *Bootstrapper) ensureAccounts(ctx context.Context, userID int64) error {
	n, err := b.storage.CountAccounts(ctx, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, d := range defaultAccounts {
		account := core.Account{
			UserID:  userID,
			Name:    d.name,
			Balance: core.Money{Cents: d.balance},
			Icon:    d.icon,
			Color:   d.color,
		}
		if err := b.storage.CreateAccount(ctx, &account); err != nil {
			return fmt.Errorf("create default account %q: %w", d.name, err)
		}
	}

	slog.InfoContext(ctx, "Created default accounts",
		"user_id", userID,
		"count", len(defaultAccounts))
	return nil
}

func (b *Bootstrapper) ensureCategories(ctx context.Context, userID int64) error {
	n, err := b.storage.CountCategories(ctx, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, d := range defaultCategories {
		category := core.Category{
			UserID: userID,
			Name:   d.name,
			Type:   d.typ,
			Icon:   d.icon,
			Color:  d.color,
		}
		if err := b.storage.CreateCategory(ctx, &category); err != nil {
			return fmt.Errorf("create default category %q: %w", d.name, err)
		}
	}

	slog.InfoContext(ctx, "Created default categories",
		"user_id", userID,
		"count", len(defaultCategories))
	return nil
}
