package codec

import (
	"strings"

	"moneyplanner/internal/core"
	"moneyplanner/internal/ledger"
)

// DateLayout renders transaction dates the way an en-US locale date looks.
const DateLayout = "1/2/2006"

// Header is the first row of the tabular exports.
var Header = []string{"Date", "Type", "Category", "Description", "Amount", "Currency"}

// ToCSV renders transactions newest first followed by a summary block.
// The description column is always double-quoted.
func ToCSV(s ledger.State, currency core.Currency) (string, error) {
	return render(s, currency, ",", csvQuote)
}

// ToTabSeparated is the clipboard/spreadsheet variant: tab-delimited and unquoted.
func ToTabSeparated(s ledger.State, currency core.Currency) (string, error) {
	return render(s, currency, "\t", func(v string) string { return v })
}

// Rows returns header, transaction rows and the summary block as cells, in
// the order the tabular exports print them. The blank separator is an empty row.
func Rows(s ledger.State, currency core.Currency) ([][]string, error) {
	if len(s.Transactions) == 0 {
		return nil, core.ErrNothingToExport
	}
	if currency.Symbol() == "" {
		currency = core.DefaultCurrency
	}
	rows := make([][]string, 0, len(s.Transactions)+8)
	rows = append(rows, append([]string(nil), Header...))
	for _, tx := range s.Transactions {
		rows = append(rows, []string{
			tx.Date.Format(DateLayout),
			string(tx.Kind),
			string(tx.Category),
			tx.Description,
			tx.Amount.String(),
			string(currency),
		})
	}
	rows = append(rows,
		[]string{},
		[]string{"SUMMARY"},
		[]string{"Total Income", s.MonthlyIncome.String()},
		[]string{"Total Expenses", s.MonthlyExpenses.String()},
		[]string{"Current Balance", s.CurrentBalance.String()},
		[]string{"Savings Goal", s.SavingsGoal.String()},
		[]string{"Budget Limit", s.BudgetLimit.String()},
	)
	return rows, nil
}

const descriptionColumn = 3

func render(s ledger.State, currency core.Currency, sep string, quote func(string) string) (string, error) {
	rows, err := Rows(s, currency)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(rows))
	for i, row := range rows {
		// Only transaction rows carry a description to quote.
		if i > 0 && len(row) == len(Header) {
			row = append([]string(nil), row...)
			row[descriptionColumn] = quote(row[descriptionColumn])
		}
		lines[i] = strings.Join(row, sep)
	}
	return strings.Join(lines, "\n"), nil
}

func csvQuote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
