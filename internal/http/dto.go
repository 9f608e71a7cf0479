package http

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"moneyplanner/internal/codec"
	"moneyplanner/internal/core"
	"moneyplanner/internal/ledger"
)

type stateResponse struct {
	Currency         string            `json:"currency"`
	CurrencySymbol   string            `json:"currencySymbol"`
	CurrentBalance   json.Number       `json:"currentBalance"`
	MonthlyIncome    json.Number       `json:"monthlyIncome"`
	MonthlyExpenses  json.Number       `json:"monthlyExpenses"`
	SavingsGoal      json.Number       `json:"savingsGoal"`
	BudgetLimit      json.Number       `json:"budgetLimit"`
	TransactionCount int               `json:"transactionCount"`
	Formatted        map[string]string `json:"formatted"`
}

type transactionResponse struct {
	ID          int64       `json:"id"`
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	DisplayDate string      `json:"displayDate"`
	Formatted   string      `json:"formatted"`
}

type progressResponse struct {
	Set        bool        `json:"set"`
	Percentage json.Number `json:"percentage"`
	Tier       string      `json:"tier"`
}

type shareResponse struct {
	Category   string      `json:"category"`
	Label      string      `json:"label"`
	Amount     json.Number `json:"amount"`
	Percentage json.Number `json:"percentage"`
	Formatted  string      `json:"formatted"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// signedMoney keeps the minus sign FormatMoney drops.
func signedMoney(d decimal.Decimal, c core.Currency) string {
	if d.IsNegative() {
		return "-" + core.FormatMoney(d, c)
	}
	return core.FormatMoney(d, c)
}

func newStateResponse(s ledger.State, c core.Currency) stateResponse {
	return stateResponse{
		Currency:         string(c),
		CurrencySymbol:   c.Symbol(),
		CurrentBalance:   number(s.CurrentBalance),
		MonthlyIncome:    number(s.MonthlyIncome),
		MonthlyExpenses:  number(s.MonthlyExpenses),
		SavingsGoal:      number(s.SavingsGoal),
		BudgetLimit:      number(s.BudgetLimit),
		TransactionCount: len(s.Transactions),
		Formatted: map[string]string{
			"currentBalance":  signedMoney(s.CurrentBalance, c),
			"monthlyIncome":   core.FormatMoney(s.MonthlyIncome, c),
			"monthlyExpenses": core.FormatMoney(s.MonthlyExpenses, c),
			"savingsGoal":     core.FormatMoney(s.SavingsGoal, c),
			"budgetLimit":     core.FormatMoney(s.BudgetLimit, c),
		},
	}
}

func newTransactionResponse(tx core.Transaction, c core.Currency) transactionResponse {
	formatted := core.FormatMoney(tx.Amount, c)
	if tx.Kind == core.Expense {
		formatted = "-" + formatted
	} else {
		formatted = "+" + formatted
	}
	return transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Kind),
		Amount:      number(tx.Amount),
		Description: tx.Description,
		Category:    string(tx.Category),
		Date:        tx.Date.UTC().Format(codec.TimestampLayout),
		DisplayDate: tx.Date.UTC().Format(codec.DateLayout),
		Formatted:   formatted,
	}
}

func newProgressResponse(p core.Progress) progressResponse {
	return progressResponse{
		Set:        p.Set,
		Percentage: number(p.Percentage.Round(1)),
		Tier:       string(p.Tier),
	}
}

func newShareResponse(sh core.CategoryShare, c core.Currency) shareResponse {
	return shareResponse{
		Category:   string(sh.Category),
		Label:      sh.Category.Label(),
		Amount:     number(sh.Amount),
		Percentage: number(sh.Percentage),
		Formatted:  core.FormatMoney(sh.Amount, c),
	}
}
