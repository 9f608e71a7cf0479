package ledger_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneyplanner/internal/core"
	"moneyplanner/internal/ledger"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func frozen() ledger.Option {
	return ledger.WithClock(func() time.Time { return fixedNow })
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestRecordIncome_NewestFirst(t *testing.T) {
	l := ledger.New(frozen())

	_, err := l.RecordIncome("100", "Salary")
	require.NoError(t, err)
	_, err = l.RecordIncome("50", "Bonus")
	require.NoError(t, err)

	s := l.Snapshot()
	assertDec(t, "150", s.CurrentBalance)
	assertDec(t, "150", s.MonthlyIncome)
	require.Len(t, s.Transactions, 2)
	assert.Equal(t, "Bonus", s.Transactions[0].Description)
	assert.Equal(t, "Salary", s.Transactions[1].Description)
	assert.Equal(t, core.IncomeCategory, s.Transactions[0].Category)
	assert.Equal(t, core.Income, s.Transactions[0].Kind)
	assert.Empty(t, s.Expenses)
}

func TestRecordIncome_TrimsSource(t *testing.T) {
	l := ledger.New(frozen())
	tx, err := l.RecordIncome("10", "  Freelance  ")
	require.NoError(t, err)
	assert.Equal(t, "Freelance", tx.Description)
}

func TestRecordExpense_AccumulatesCategory(t *testing.T) {
	l := ledger.New(frozen())

	tx, err := l.RecordExpense("40", "food")
	require.NoError(t, err)
	assert.Equal(t, "🍕 Food", tx.Description)
	_, err = l.RecordExpense("10", "food")
	require.NoError(t, err)

	s := l.Snapshot()
	assertDec(t, "50", s.Expenses[core.Food])
	assertDec(t, "50", s.MonthlyExpenses)
	assertDec(t, "-50", s.CurrentBalance)
	assertDec(t, "0", s.MonthlyIncome)
}

func TestValidationFailuresLeaveStateUnchanged(t *testing.T) {
	l := ledger.New(frozen())
	_, err := l.RecordIncome("20", "Gift")
	require.NoError(t, err)
	before := l.Snapshot()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"negative income", func() error { _, err := l.RecordIncome("-5", "x"); return err }, core.ErrInvalidAmount},
		{"zero expense", func() error { _, err := l.RecordExpense("0", "food"); return err }, core.ErrInvalidAmount},
		{"non numeric", func() error { _, err := l.RecordExpense("ten", "food"); return err }, core.ErrInvalidAmount},
		{"missing amount", func() error { _, err := l.RecordIncome("", "x"); return err }, core.ErrInvalidAmount},
		{"blank source", func() error { _, err := l.RecordIncome("5", "   "); return err }, core.ErrMissingSource},
		{"unknown category", func() error { _, err := l.RecordExpense("5", "crypto"); return err }, core.ErrInvalidCategory},
		{"income as category", func() error { _, err := l.RecordExpenseAmount(dec("5"), core.IncomeCategory); return err }, core.ErrInvalidCategory},
		{"typed negative", func() error { _, err := l.RecordIncomeAmount(dec("-1"), "x"); return err }, core.ErrInvalidAmount},
		{"no goals", func() error { return l.SetGoals(nil, nil) }, core.ErrNoGoalProvided},
		{"invalid goals", func() error { return l.SetGoalsText("abc", "-3") }, core.ErrNoGoalProvided},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
			after := l.Snapshot()
			assertDec(t, before.CurrentBalance.String(), after.CurrentBalance)
			assertDec(t, before.MonthlyIncome.String(), after.MonthlyIncome)
			assertDec(t, before.MonthlyExpenses.String(), after.MonthlyExpenses)
			assertDec(t, before.SavingsGoal.String(), after.SavingsGoal)
			assertDec(t, before.BudgetLimit.String(), after.BudgetLimit)
			assert.Len(t, after.Transactions, len(before.Transactions))
			assert.Len(t, after.Expenses, len(before.Expenses))
		})
	}
}

func TestSetGoals(t *testing.T) {
	l := ledger.New(frozen())

	require.NoError(t, l.SetGoals(decPtr("1000"), nil))
	s := l.Snapshot()
	assertDec(t, "1000", s.SavingsGoal)
	assertDec(t, "0", s.BudgetLimit)

	// An invalid field is ignored when the other one is valid.
	require.NoError(t, l.SetGoals(decPtr("-1"), decPtr("200")))
	s = l.Snapshot()
	assertDec(t, "1000", s.SavingsGoal)
	assertDec(t, "200", s.BudgetLimit)

	require.NoError(t, l.SetGoalsText("", "350.5"))
	s = l.Snapshot()
	assertDec(t, "1000", s.SavingsGoal)
	assertDec(t, "350.5", s.BudgetLimit)

	require.ErrorIs(t, l.SetGoals(decPtr("1e400"), nil), core.ErrNoGoalProvided)
	assertDec(t, "1000", l.Snapshot().SavingsGoal)
}

func TestBudgetProgress(t *testing.T) {
	l := ledger.New(frozen())
	p := l.BudgetProgress()
	assert.False(t, p.Set)

	require.NoError(t, l.SetGoals(nil, decPtr("200")))
	_, err := l.RecordExpense("190", "housing")
	require.NoError(t, err)

	p = l.BudgetProgress()
	assert.True(t, p.Set)
	assertDec(t, "95", p.Percentage)
	assert.Equal(t, core.TierCritical, p.Tier)

	_, err = l.RecordExpense("100", "other")
	require.NoError(t, err)
	assertDec(t, "100", l.BudgetProgress().Percentage)
}

func TestSavingsProgress_ClampsNegativeBalance(t *testing.T) {
	l := ledger.New(frozen())
	assert.False(t, l.SavingsProgress().Set)

	require.NoError(t, l.SetGoals(decPtr("1000"), nil))
	_, err := l.RecordExpense("50", "transport")
	require.NoError(t, err)

	p := l.SavingsProgress()
	assert.True(t, p.Set)
	assertDec(t, "0", p.Percentage)

	_, err = l.RecordIncome("300", "Salary")
	require.NoError(t, err)
	assertDec(t, "25", l.SavingsProgress().Percentage)
}

func TestCategoryBreakdown(t *testing.T) {
	l := ledger.New(frozen())
	assert.Empty(t, l.CategoryBreakdown())

	for _, e := range []struct{ amount, cat string }{
		{"10", "shopping"},
		{"30", "food"},
		{"10", "utilities"},
		{"50", "housing"},
	} {
		_, err := l.RecordExpense(e.amount, e.cat)
		require.NoError(t, err)
	}

	got := l.CategoryBreakdown()
	require.Len(t, got, 4)
	assert.Equal(t, []core.Category{core.Housing, core.Food, core.Shopping, core.Utilities},
		[]core.Category{got[0].Category, got[1].Category, got[2].Category, got[3].Category})
	assertDec(t, "50", got[0].Percentage)
	assertDec(t, "30", got[1].Percentage)
	assertDec(t, "10", got[2].Percentage)
}

func TestCategoryBreakdown_RoundsToOneDecimal(t *testing.T) {
	l := ledger.New(frozen())
	_, _ = l.RecordExpense("1", "food")
	_, _ = l.RecordExpense("2", "other")

	got := l.CategoryBreakdown()
	require.Len(t, got, 2)
	assertDec(t, "66.7", got[0].Percentage)
	assertDec(t, "33.3", got[1].Percentage)
}

func TestRecentTransactions(t *testing.T) {
	l := ledger.New(frozen())
	for i := 0; i < 12; i++ {
		_, err := l.RecordIncome("1", "src")
		require.NoError(t, err)
	}
	assert.Len(t, l.RecentTransactions(core.DefaultRecentLimit), 10)
	assert.Len(t, l.RecentTransactions(50), 12)
	assert.Empty(t, l.RecentTransactions(0))
	assert.Empty(t, l.RecentTransactions(-3))

	recent := l.RecentTransactions(2)
	all := l.Snapshot().Transactions
	assert.Equal(t, all[0].ID, recent[0].ID)
	assert.Equal(t, all[1].ID, recent[1].ID)
}

func TestIDsStrictlyIncreaseUnderFrozenClock(t *testing.T) {
	l := ledger.New(frozen())
	a, err := l.RecordIncome("1", "a")
	require.NoError(t, err)
	b, err := l.RecordExpense("1", "food")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.UnixMilli(), a.ID)
	assert.Equal(t, a.ID+1, b.ID)
	assert.Equal(t, fixedNow, a.Date)
}

func TestReset(t *testing.T) {
	l := ledger.New(frozen())
	_, _ = l.RecordIncome("100", "Salary")
	_, _ = l.RecordExpense("40", "food")
	require.NoError(t, l.SetGoals(decPtr("500"), decPtr("300")))

	l.Reset()

	s := l.Snapshot()
	assert.True(t, s.CurrentBalance.IsZero())
	assert.True(t, s.MonthlyIncome.IsZero())
	assert.True(t, s.MonthlyExpenses.IsZero())
	assert.True(t, s.SavingsGoal.IsZero())
	assert.True(t, s.BudgetLimit.IsZero())
	assert.Empty(t, s.Transactions)
	assert.Empty(t, s.Expenses)
	assert.False(t, l.BudgetProgress().Set)
	assert.False(t, l.SavingsProgress().Set)
	assert.Empty(t, l.CategoryBreakdown())
	assert.Empty(t, l.RecentTransactions(10))
}

func TestSnapshotIsIsolated(t *testing.T) {
	l := ledger.New(frozen())
	_, _ = l.RecordExpense("5", "food")

	snap := l.Snapshot()
	snap.Expenses[core.Food] = dec("999")
	snap.Transactions[0].Description = "changed"

	s := l.Snapshot()
	assertDec(t, "5", s.Expenses[core.Food])
	assert.Equal(t, "🍕 Food", s.Transactions[0].Description)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	l := ledger.New(frozen())
	var got []ledger.State
	l.Subscribe(func(s ledger.State) { got = append(got, s) })

	_, _ = l.RecordIncome("10", "a")
	_, _ = l.RecordIncome("-1", "a")
	l.Reset()

	require.Len(t, got, 2)
	assertDec(t, "10", got[0].CurrentBalance)
	assert.Empty(t, got[1].Transactions)
}

func TestRestoreContinuesIDsAndOrder(t *testing.T) {
	l := ledger.New(frozen())
	s := ledger.NewState()
	s.Transactions = []core.Transaction{{ID: fixedNow.UnixMilli() + 10, Kind: core.Expense, Amount: dec("3"), Category: core.Food}}
	s.Expenses = map[core.Category]decimal.Decimal{core.Food: dec("3"), core.Other: dec("3")}
	s.CategoryOrder = []core.Category{core.Other, core.Shopping}
	l.Restore(s)

	tx, err := l.RecordIncome("1", "x")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.UnixMilli()+11, tx.ID)

	got := l.CategoryBreakdown()
	require.Len(t, got, 2)
	assert.Equal(t, core.Other, got[0].Category)
	assert.Equal(t, core.Food, got[1].Category)
}

// Randomised sequences must keep every aggregate equal to the sum over its transactions.
func TestAggregatesMatchTransactions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cats := core.ExpenseCategories()
	l := ledger.New(frozen())

	for i := 0; i < 500; i++ {
		amount := decimal.New(rng.Int63n(100000)+1, -2).String()
		if rng.Intn(2) == 0 {
			_, err := l.RecordIncome(amount, "src")
			require.NoError(t, err)
		} else {
			_, err := l.RecordExpense(amount, string(cats[rng.Intn(len(cats))]))
			require.NoError(t, err)
		}
	}

	s := l.Snapshot()
	income, expenses := decimal.Zero, decimal.Zero
	perCat := map[core.Category]decimal.Decimal{}
	for _, tx := range s.Transactions {
		if tx.Kind == core.Income {
			income = income.Add(tx.Amount)
			continue
		}
		expenses = expenses.Add(tx.Amount)
		perCat[tx.Category] = perCat[tx.Category].Add(tx.Amount)
	}
	assertDec(t, income.String(), s.MonthlyIncome)
	assertDec(t, expenses.String(), s.MonthlyExpenses)
	assertDec(t, income.Sub(expenses).String(), s.CurrentBalance)
	require.Len(t, s.Expenses, len(perCat))
	for c, v := range perCat {
		assertDec(t, v.String(), s.Expenses[c])
	}
}
