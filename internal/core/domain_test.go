package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in  string
		out Category
		ok  bool
	}{
		{"food", Food, true},
		{" Food ", Food, true},
		{"SHOPPING", Shopping, true},
		{"other", Other, true},
		{"income", "", false},
		{"groceries", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("%q expected ErrInvalidCategory, got %v", tc.in, err)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := Food.Label(); got != "🍕 Food" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Entertainment.Label(); got != "🎮 Entertainment" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Category("misc").Label(); got != "Misc" {
		t.Fatalf("unknown category label should have no glyph, got %q", got)
	}
}

func TestExpenseCategoriesIsACopy(t *testing.T) {
	cats := ExpenseCategories()
	if len(cats) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(cats))
	}
	cats[0] = "mutated"
	if ExpenseCategories()[0] != Food {
		t.Fatalf("ExpenseCategories must not expose internal slice")
	}
}

func TestTransactionValidate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	good := []Transaction{
		{ID: 1, Kind: Income, Amount: decimal.NewFromInt(10), Description: "Salary", Category: IncomeCategory, Date: now},
		{ID: 2, Kind: Expense, Amount: decimal.RequireFromString("0.01"), Description: "🍕 Food", Category: Food, Date: now},
	}
	for i, tx := range good {
		if err := tx.Validate(); err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Kind: Income, Amount: decimal.Zero, Description: "x", Category: IncomeCategory}, ErrInvalidAmount},
		{Transaction{Kind: Income, Amount: decimal.NewFromInt(1), Description: " ", Category: IncomeCategory}, ErrMissingSource},
		{Transaction{Kind: Income, Amount: decimal.NewFromInt(1), Description: "x", Category: Food}, ErrInvalidCategory},
		{Transaction{Kind: Expense, Amount: decimal.NewFromInt(1), Category: IncomeCategory}, ErrInvalidCategory},
		{Transaction{Kind: Expense, Amount: decimal.NewFromInt(-1), Category: Food}, ErrInvalidAmount},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestErrorKind(t *testing.T) {
	kind, ok := ErrorKind(ErrNoGoalProvided)
	if !ok || kind != "no-goal-provided" {
		t.Fatalf("unexpected kind %q ok=%v", kind, ok)
	}
	if _, ok := ErrorKind(errors.New("boom")); ok {
		t.Fatalf("plain errors have no kind")
	}
}
