// Package codec converts ledger state to and from the planner document.
//
// The same JSON document backs local persistence, JSON export and import.
// Decoding is defensive: every field falls back to a default so partial or
// legacy documents still load. Only a transactions field that is present but
// not an array is rejected.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneyplanner/internal/core"
	"moneyplanner/internal/ledger"
)

// AppVersion is stamped on exported documents.
const AppVersion = "1.0"

// TimestampLayout matches the millisecond ISO-8601 form browsers emit.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is the persisted/exported shape.
type Document struct {
	CurrentBalance  json.Number      `json:"currentBalance"`
	MonthlyIncome   json.Number      `json:"monthlyIncome"`
	MonthlyExpenses json.Number      `json:"monthlyExpenses"`
	SavingsGoal     json.Number      `json:"savingsGoal"`
	BudgetLimit     json.Number      `json:"budgetLimit"`
	Transactions    []TransactionDoc `json:"transactions"`
	Expenses        CategoryAmounts  `json:"expenses"`
	CurrentCurrency string           `json:"currentCurrency"`
	LastUpdated     string           `json:"lastUpdated,omitempty"`
	ExportDate      string           `json:"exportDate,omitempty"`
	AppVersion      string           `json:"appVersion,omitempty"`
}

// TransactionDoc is one entry of Document.Transactions.
type TransactionDoc struct {
	ID          int64       `json:"id"`
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
}

// CategoryAmount is one entry of the expenses object.
type CategoryAmount struct {
	Category core.Category
	Amount   decimal.Decimal
}

// CategoryAmounts marshals as a JSON object whose keys keep slice order.
type CategoryAmounts []CategoryAmount

func (c CategoryAmounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.Category))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(e.Amount.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Serialize builds the document used for local persistence.
func Serialize(s ledger.State, currency core.Currency, now time.Time) Document {
	doc := build(s, currency)
	doc.LastUpdated = now.UTC().Format(TimestampLayout)
	return doc
}

// Export builds the document offered as a JSON download.
func Export(s ledger.State, currency core.Currency, now time.Time) Document {
	doc := build(s, currency)
	doc.ExportDate = now.UTC().Format(TimestampLayout)
	doc.AppVersion = AppVersion
	return doc
}

func build(s ledger.State, currency core.Currency) Document {
	if currency.Symbol() == "" {
		currency = core.DefaultCurrency
	}
	doc := Document{
		CurrentBalance:  number(s.CurrentBalance),
		MonthlyIncome:   number(s.MonthlyIncome),
		MonthlyExpenses: number(s.MonthlyExpenses),
		SavingsGoal:     number(s.SavingsGoal),
		BudgetLimit:     number(s.BudgetLimit),
		Transactions:    make([]TransactionDoc, 0, len(s.Transactions)),
		Expenses:        make(CategoryAmounts, 0, len(s.Expenses)),
		CurrentCurrency: string(currency),
	}
	for _, tx := range s.Transactions {
		doc.Transactions = append(doc.Transactions, TransactionDoc{
			ID:          tx.ID,
			Type:        string(tx.Kind),
			Amount:      number(tx.Amount),
			Description: tx.Description,
			Date:        tx.Date.UTC().Format(TimestampLayout),
			Category:    string(tx.Category),
		})
	}
	seen := make(map[core.Category]bool, len(s.Expenses))
	for _, c := range s.CategoryOrder {
		if v, ok := s.Expenses[c]; ok && !seen[c] {
			seen[c] = true
			doc.Expenses = append(doc.Expenses, CategoryAmount{Category: c, Amount: v})
		}
	}
	for c, v := range s.Expenses {
		if !seen[c] {
			doc.Expenses = append(doc.Expenses, CategoryAmount{Category: c, Amount: v})
		}
	}
	return doc
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Marshal encodes a document with two-space indentation.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Deserialize restores state from a persisted document. Missing or malformed
// fields take their defaults; the currency defaults to USD.
func Deserialize(data []byte) (ledger.State, core.Currency, error) {
	return decode(data, false)
}

// Import is Deserialize for user-supplied files: the transactions field must
// be present and be an array.
func Import(data []byte) (ledger.State, core.Currency, error) {
	return decode(data, true)
}

func decode(data []byte, strict bool) (ledger.State, core.Currency, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil || root == nil {
		return ledger.State{}, "", fmt.Errorf("%w: document is not a JSON object", core.ErrInvalidImportFormat)
	}

	s := ledger.NewState()
	s.CurrentBalance = decimalField(root["currentBalance"])
	s.MonthlyIncome = nonNegative(decimalField(root["monthlyIncome"]))
	s.MonthlyExpenses = nonNegative(decimalField(root["monthlyExpenses"]))
	s.SavingsGoal = nonNegative(decimalField(root["savingsGoal"]))
	s.BudgetLimit = nonNegative(decimalField(root["budgetLimit"]))

	txs, err := transactionsField(root["transactions"], strict)
	if err != nil {
		return ledger.State{}, "", err
	}
	s.Transactions = txs
	s.Expenses, s.CategoryOrder = expensesField(root["expenses"])

	currency := core.DefaultCurrency
	if raw, ok := root["currentCurrency"]; ok {
		var code string
		if json.Unmarshal(raw, &code) == nil {
			if c, err := core.ParseCurrency(code); err == nil {
				currency = c
			}
		}
	}
	return s, currency, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decimalField accepts JSON numbers and numeric strings; anything else,
// including numbers too large or too small for a float64, is 0.
func decimalField(raw json.RawMessage) decimal.Decimal {
	if isNull(raw) {
		return decimal.Zero
	}
	var text string
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		text = n.String()
	} else if err := json.Unmarshal(raw, &text); err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || !core.InRange(d) {
		return decimal.Zero
	}
	return d
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func transactionsField(raw json.RawMessage, strict bool) ([]core.Transaction, error) {
	out := []core.Transaction{}
	if isNull(raw) {
		if strict {
			return nil, fmt.Errorf("%w: missing transactions", core.ErrInvalidImportFormat)
		}
		return out, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: transactions is not an array", core.ErrInvalidImportFormat)
	}
	for _, item := range items {
		if tx, ok := transactionEntry(item); ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

// transactionEntry decodes one entry; entries without a valid type or a
// positive amount are dropped.
func transactionEntry(raw json.RawMessage) (core.Transaction, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return core.Transaction{}, false
	}

	var tx core.Transaction
	tx.Kind = core.Kind(stringField(fields["type"]))
	if !tx.Kind.IsValid() {
		return core.Transaction{}, false
	}
	tx.Amount = decimalField(fields["amount"])
	if !tx.Amount.IsPositive() {
		return core.Transaction{}, false
	}
	tx.ID = decimalField(fields["id"]).IntPart()
	tx.Description = stringField(fields["description"])
	tx.Category = core.Category(stringField(fields["category"]))
	if tx.Kind == core.Income {
		tx.Category = core.IncomeCategory
	}
	if t, err := time.Parse(time.RFC3339Nano, stringField(fields["date"])); err == nil {
		tx.Date = t.UTC()
	}
	return tx, true
}

func stringField(raw json.RawMessage) string {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// expensesField reads the category object in document order. Malformed
// objects yield an empty mapping; non-numeric or negative values are skipped.
func expensesField(raw json.RawMessage) (map[core.Category]decimal.Decimal, []core.Category) {
	out := map[core.Category]decimal.Decimal{}
	var order []core.Category
	if isNull(raw) {
		return out, order
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return map[core.Category]decimal.Decimal{}, nil
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return map[core.Category]decimal.Decimal{}, nil
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return map[core.Category]decimal.Decimal{}, nil
		}
		amount := decimalField(value)
		if key == "" || amount.IsNegative() {
			continue
		}
		c := core.Category(key)
		if _, dup := out[c]; !dup {
			order = append(order, c)
		}
		out[c] = amount
	}
	return out, order
}
