package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Expense categories. IncomeCategory is the sentinel carried by income transactions.
const (
	Food          Category = "food"
	Transport     Category = "transport"
	Housing       Category = "housing"
	Utilities     Category = "utilities"
	Entertainment Category = "entertainment"
	Healthcare    Category = "healthcare"
	Shopping      Category = "shopping"
	Other         Category = "other"

	IncomeCategory Category = "income"
)

type (
	Kind     string
	Category string

	// Transaction is immutable once recorded.
	Transaction struct {
		ID          int64
		Kind        Kind
		Amount      decimal.Decimal
		Description string
		Category    Category
		Date        time.Time
	}
)

var categoryGlyphs = map[Category]string{
	Food:          "🍕",
	Transport:     "🚗",
	Housing:       "🏠",
	Utilities:     "⚡",
	Entertainment: "🎮",
	Healthcare:    "🏥",
	Shopping:      "🛍️",
	Other:         "📝",
}

var expenseCategories = []Category{Food, Transport, Housing, Utilities, Entertainment, Healthcare, Shopping, Other}

// ExpenseCategories returns the fixed set of expense categories in display order.
func ExpenseCategories() []Category {
	return append([]Category(nil), expenseCategories...)
}

// ParseCategory resolves a raw category name, ignoring case and surrounding space.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsExpense() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// IsExpense reports whether c belongs to the enumerated expense set.
func (c Category) IsExpense() bool {
	_, ok := categoryGlyphs[c]
	return ok
}

// Glyph returns the display glyph, or "" for unknown categories.
func (c Category) Glyph() string {
	return categoryGlyphs[c]
}

// Label is the glyph followed by the capitalised name, e.g. "🍕 Food".
func (c Category) Label() string {
	name := string(c)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	if g := c.Glyph(); g != "" {
		return g + " " + name
	}
	return name
}

func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	switch t.Kind {
	case Income:
		if t.Category != IncomeCategory {
			return ErrInvalidCategory
		}
		if strings.TrimSpace(t.Description) == "" {
			return ErrMissingSource
		}
	case Expense:
		if !t.Category.IsExpense() {
			return ErrInvalidCategory
		}
	default:
		return errors.New("invalid transaction kind")
	}
	return nil
}

// Signed returns the amount with the sign it contributes to the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}
