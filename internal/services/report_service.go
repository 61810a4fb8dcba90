package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet/internal/core"
	"wallet/internal/storage"
)

// ReportService answers dashboard and statistics queries. Totals prefer
// precomputed summaries and degrade through daily rows down to raw
// transaction aggregation; missing summaries are never an error.
type ReportService struct {
	storage *storage.SQLiteRepository
	now     func() time.Time
}

func NewReportService(storage *storage.SQLiteRepository) *ReportService {
	return &ReportService{
		storage: storage,
		now:     time.Now,
	}
}

// DashboardQuery selects the reporting window and response shape.
type DashboardQuery struct {
	Period    string // today, week, month, quarter, year, all, custom
	Format    string // "simple" for totals only, anything else for full
	StartDate string // custom only
	EndDate   string // custom only
}

// Dashboard is the aggregate view for one user and window.
type Dashboard struct {
	Period            string
	Range             core.DateRange
	IncomeTotal       core.Money
	ExpenseTotal      core.Money
	IncomeCategories  []storage.CategoryTotal
	ExpenseCategories []storage.CategoryTotal
}

// Statistics holds per-category breakdowns for one window.
type Statistics struct {
	Period  string
	Range   core.DateRange
	Income  []storage.CategoryTotal
	Expense []storage.CategoryTotal
}

// Dashboard computes totals for the selected window, plus category breakdowns
// unless the simple format is requested. Breakdowns always come from raw
// transactions because summaries carry no per-category detail; uncategorized
// transactions stay in the totals but drop out of the breakdowns.
func (s *ReportService) Dashboard(ctx context.Context, userID int64, q DashboardQuery) (Dashboard, error) {
	if q.Period == "" {
		q.Period = "month"
	}
	rng, err := s.resolveRange(q.Period, q.StartDate, q.EndDate)
	if err != nil {
		return Dashboard{}, err
	}

	income, expense, err := s.periodTotals(ctx, userID, rng)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Period:       q.Period,
		Range:        rng,
		IncomeTotal:  income,
		ExpenseTotal: expense,
	}
	if q.Format == "simple" {
		return d, nil
	}

	d.IncomeCategories, err = s.storage.CategoryTotals(ctx, userID, core.TypeIncome, rng)
	if err != nil {
		return Dashboard{}, fmt.Errorf("income breakdown: %w", err)
	}
	d.ExpenseCategories, err = s.storage.CategoryTotals(ctx, userID, core.TypeExpense, rng)
	if err != nil {
		return Dashboard{}, fmt.Errorf("expense breakdown: %w", err)
	}
	return d, nil
}

// Statistics returns the category breakdowns for a named period selector.
func (s *ReportService) Statistics(ctx context.Context, userID int64, period string) (Statistics, error) {
	if period == "" {
		period = "month"
	}
	rng := core.ResolveRange(period, s.now())

	income, err := s.storage.CategoryTotals(ctx, userID, core.TypeIncome, rng)
	if err != nil {
		return Statistics{}, fmt.Errorf("income statistics: %w", err)
	}
	expense, err := s.storage.CategoryTotals(ctx, userID, core.TypeExpense, rng)
	if err != nil {
		return Statistics{}, fmt.Errorf("expense statistics: %w", err)
	}

	return Statistics{
		Period:  period,
		Range:   rng,
		Income:  income,
		Expense: expense,
	}, nil
}

// ListSummaries exposes the stored summary rows, newest bucket first.
func (s *ReportService) ListSummaries(ctx context.Context, userID int64, f storage.SummaryFilter) ([]core.PeriodSummary, error) {
	return s.storage.ListSummaries(ctx, userID, f)
}

func (s *ReportService) resolveRange(period, start, end string) (core.DateRange, error) {
	if period == "custom" {
		return core.ParseCustomRange(start, end)
	}
	return core.ResolveRange(period, s.now()), nil
}

// periodTotals is the three-tier total lookup:
//
//  1. a range spanning exactly one calendar month answers from that single
//     monthly summary row when it exists;
//  2. otherwise daily summary rows in the key range are summed;
//  3. with no daily rows at all, raw transactions are aggregated directly.
func (s *ReportService) periodTotals(ctx context.Context, userID int64, rng core.DateRange) (income, expense core.Money, err error) {
	if rng.SpansExactMonth() {
		key := core.PeriodKey(rng.Start, core.Monthly)
		summary, err := s.storage.GetSummary(ctx, userID, core.Monthly, key)
		if err == nil {
			return summary.IncomeTotal, summary.ExpenseTotal, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return core.Money{}, core.Money{}, fmt.Errorf("monthly summary lookup: %w", err)
		}
	}

	income, expense, found, err := s.storage.SumDailySummaries(ctx, userID, rng)
	if err != nil {
		return core.Money{}, core.Money{}, err
	}
	if found {
		return income, expense, nil
	}

	income, err = s.storage.SumTransactions(ctx, userID, core.TypeIncome, rng)
	if err != nil {
		return core.Money{}, core.Money{}, err
	}
	expense, err = s.storage.SumTransactions(ctx, userID, core.TypeExpense, rng)
	if err != nil {
		return core.Money{}, core.Money{}, err
	}
	return income, expense, nil
}
