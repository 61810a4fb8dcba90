package core

import (
	"errors"
	"time"
)

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	User struct {
		ID        int64
		Email     string
		CreatedAt time.Time
	}

	Account struct {
		ID        int64
		UserID    int64
		Name      string
		Balance   Money
		Icon      string
		Color     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Type      TransactionType
		Icon      string
		Color     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Transaction struct {
		ID                   int64
		UserID               int64
		Amount               Money
		Type                 TransactionType
		CategoryID           *int64
		AccountID            int64
		DestinationAccountID *int64
		Date                 Date
		Comment              string
		CreatedAt            time.Time
		UpdatedAt            time.Time
	}

	// PeriodSummary holds running income/expense totals for one
	// (user, granularity, bucket). Transfers never contribute to it.
	PeriodSummary struct {
		ID           int64
		UserID       int64
		PeriodType   Granularity
		PeriodKey    string
		IncomeTotal  Money
		ExpenseTotal Money
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}
)

// ValidationError is a user-correctable input error, surfaced verbatim.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

var (
	ErrInvalidAmount        = ValidationError("amount must be a positive decimal")
	ErrInvalidType          = ValidationError("transaction type must be income, expense or transfer")
	ErrInvalidDate          = ValidationError("date must be in YYYY-MM-DD format")
	ErrMissingDestination   = ValidationError("transfer requires a destination account")
	ErrSameAccount          = ValidationError("transfer source and destination accounts must differ")
	ErrCategoryTypeMismatch = ValidationError("category type must match transaction type")
	ErrEmptyName            = ValidationError("name cannot be empty")

	// ErrNotFound covers both missing rows and rows owned by another user,
	// indistinguishably.
	ErrNotFound = errors.New("not found")
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Normalize clears fields that do not apply to the transaction type: category
// for transfers, destination account for income/expense. The source system
// drops these silently rather than rejecting the request.
func (t *Transaction) Normalize() {
	if t.Type == TypeTransfer {
		t.CategoryID = nil
	} else {
		t.DestinationAccountID = nil
	}
}

// Validate checks the transaction against its type's structural rules.
// category is the resolved category row, nil when none is referenced;
// ownership checks belong to the caller.
func (t *Transaction) Validate(category *Category) error {
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if t.Type == TypeTransfer {
		if t.DestinationAccountID == nil {
			return ErrMissingDestination
		}
		if *t.DestinationAccountID == t.AccountID {
			return ErrSameAccount
		}
		return nil
	}
	if category != nil && category.Type != t.Type {
		return ErrCategoryTypeMismatch
	}
	return nil
}

func (c *Category) Validate() error {
	if c.Name == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (a *Account) Validate() error {
	if a.Name == "" {
		return ErrEmptyName
	}
	return nil
}
