package sheets

import "context"

// StatementRow is a single exported transaction line.
type StatementRow struct {
	Date        string // ISO date, e.g. 2024-03-15
	Type        string // income, expense, transfer
	Description string
	Amount      string // formatted with two decimals
	Account     string
	Category    string
}

// StatementWriter appends transaction rows to an external statement.
type StatementWriter interface {
	AppendStatement(ctx context.Context, row StatementRow) (rowRef string, err error)
}
