package http

import (
	"time"

	"wallet/internal/core"
)

// transactionRequest uses pointer fields so updates can overlay only the
// fields the caller actually sent.
type transactionRequest struct {
	Amount               *string `json:"amount"`
	Type                 *string `json:"type"`
	CategoryID           *int64  `json:"category_id"`
	AccountID            *int64  `json:"account_id"`
	DestinationAccountID *int64  `json:"destination_account_id"`
	Date                 *string `json:"date"`
	Comment              *string `json:"comment"`
}

// toTransaction builds a full transaction for creation. Every required
// field must be present.
func (req *transactionRequest) toTransaction(userID int64) (core.Transaction, error) {
	var tx core.Transaction
	tx.UserID = userID

	if req.Amount == nil {
		return tx, core.ValidationError("amount is required")
	}
	amount, err := core.ParseAmount(*req.Amount)
	if err != nil {
		return tx, err
	}
	tx.Amount = amount

	if req.Type == nil {
		return tx, core.ValidationError("type is required")
	}
	tx.Type = core.TransactionType(*req.Type)

	if req.AccountID == nil {
		return tx, core.ValidationError("account_id is required")
	}
	tx.AccountID = *req.AccountID

	if req.Date == nil {
		return tx, core.ValidationError("date is required")
	}
	date, err := core.ParseDate(*req.Date)
	if err != nil {
		return tx, err
	}
	tx.Date = date

	tx.CategoryID = req.CategoryID
	tx.DestinationAccountID = req.DestinationAccountID
	if req.Comment != nil {
		tx.Comment = *req.Comment
	}
	return tx, nil
}

// overlay applies the provided fields on top of an existing transaction.
// Fields the caller omitted keep their current values.
func (req *transactionRequest) overlay(existing core.Transaction) (core.Transaction, error) {
	tx := existing

	if req.Amount != nil {
		amount, err := core.ParseAmount(*req.Amount)
		if err != nil {
			return tx, err
		}
		tx.Amount = amount
	}
	if req.Type != nil {
		tx.Type = core.TransactionType(*req.Type)
	}
	if req.Date != nil {
		date, err := core.ParseDate(*req.Date)
		if err != nil {
			return tx, err
		}
		tx.Date = date
	}
	if req.CategoryID != nil {
		tx.CategoryID = req.CategoryID
	}
	if req.AccountID != nil {
		tx.AccountID = *req.AccountID
	}
	if req.DestinationAccountID != nil {
		tx.DestinationAccountID = req.DestinationAccountID
	}
	if req.Comment != nil {
		tx.Comment = *req.Comment
	}
	return tx, nil
}

type transactionResponse struct {
	ID                   int64     `json:"id"`
	Amount               string    `json:"amount"`
	Type                 string    `json:"type"`
	CategoryID           *int64    `json:"category_id"`
	AccountID            int64     `json:"account_id"`
	DestinationAccountID *int64    `json:"destination_account_id"`
	Date                 string    `json:"date"`
	Comment              string    `json:"comment"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                   tx.ID,
		Amount:               tx.Amount.String(),
		Type:                 string(tx.Type),
		CategoryID:           tx.CategoryID,
		AccountID:            tx.AccountID,
		DestinationAccountID: tx.DestinationAccountID,
		Date:                 tx.Date.String(),
		Comment:              tx.Comment,
		CreatedAt:            tx.CreatedAt,
		UpdatedAt:            tx.UpdatedAt,
	}
}

type accountRequest struct {
	Name    *string `json:"name"`
	Balance *string `json:"balance"`
	Icon    *string `json:"icon"`
	Color   *string `json:"color"`
}

type accountResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Balance   string    `json:"balance"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Balance:   a.Balance.String(),
		Icon:      a.Icon,
		Color:     a.Color,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type categoryRequest struct {
	Name  *string `json:"name"`
	Type  *string `json:"type"`
	Icon  *string `json:"icon"`
	Color *string `json:"color"`
}

type categoryResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Type:      string(c.Type),
		Icon:      c.Icon,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

type summaryResponse struct {
	PeriodType   string `json:"period_type"`
	PeriodKey    string `json:"period_key"`
	IncomeTotal  string `json:"income_total"`
	ExpenseTotal string `json:"expense_total"`
}

func toSummaryResponse(s core.PeriodSummary) summaryResponse {
	return summaryResponse{
		PeriodType:   string(s.PeriodType),
		PeriodKey:    s.PeriodKey,
		IncomeTotal:  s.IncomeTotal.String(),
		ExpenseTotal: s.ExpenseTotal.String(),
	}
}
