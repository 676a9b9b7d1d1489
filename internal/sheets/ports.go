package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseExporter appends the expenses of a space to an external sheet.
	ExpenseExporter interface {
		ExportExpenses(ctx context.Context, space core.Space, expenses []core.Expense, categories []core.Category) (ref string, err error)
	}
)

// Header is the first row written to an empty export sheet.
var Header = []string{"Space", "Date", "Description", "Cost", "Paid by", "Category", "Expense ID"}

// Rows converts expenses into export rows in the order of Header. Unknown or
// missing categories are exported with the uncategorized title.
func Rows(space core.Space, expenses []core.Expense, categories []core.Category) [][]any {
	titles := make(map[core.ID]string, len(categories))
	for _, c := range categories {
		titles[c.ID] = c.Title
	}

	rows := make([][]any, 0, len(expenses))
	for _, e := range expenses {
		category := core.UncategorizedTitle
		if t, ok := titles[e.CategoryID()]; ok {
			category = t
		}
		rows = append(rows, []any{
			space.Name,
			e.Date,
			e.Description,
			core.FormatCost(e.Cost),
			e.PaidBy,
			category,
			e.ID.String(),
		})
	}
	return rows
}
