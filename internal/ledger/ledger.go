// Package ledger owns the financial state of one planner session.
//
// Every mutating operation either applies completely (transaction plus all
// aggregate updates) or returns a validation error and leaves the state
// untouched. A Ledger is not safe for concurrent use; callers serialise
// access (see services.PlannerService).
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneyplanner/internal/core"
)

// State is the aggregate root persisted and exported by the codec.
type State struct {
	CurrentBalance  decimal.Decimal
	MonthlyIncome   decimal.Decimal
	MonthlyExpenses decimal.Decimal
	SavingsGoal     decimal.Decimal
	BudgetLimit     decimal.Decimal
	// Transactions are ordered newest first.
	Transactions []core.Transaction
	Expenses     map[core.Category]decimal.Decimal
	// CategoryOrder lists Expenses keys in first-seen order.
	CategoryOrder []core.Category
}

// NewState returns the empty, zero-valued state.
func NewState() State {
	return State{
		Transactions: []core.Transaction{},
		Expenses:     map[core.Category]decimal.Decimal{},
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Transactions = append([]core.Transaction{}, s.Transactions...)
	out.Expenses = make(map[core.Category]decimal.Decimal, len(s.Expenses))
	for k, v := range s.Expenses {
		out.Expenses[k] = v
	}
	out.CategoryOrder = append([]core.Category(nil), s.CategoryOrder...)
	return out
}

// Clock returns the current instant.
type Clock func() time.Time

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides time.Now, mostly for tests.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.now = c }
}

// Ledger is the sole authority for mutating a State.
type Ledger struct {
	state       State
	now         Clock
	lastID      int64
	subscribers []func(State)
}

// New creates an empty Ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{state: NewState(), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe registers fn to receive a snapshot after every successful mutation.
func (l *Ledger) Subscribe(fn func(State)) {
	l.subscribers = append(l.subscribers, fn)
}

func (l *Ledger) notify() {
	if len(l.subscribers) == 0 {
		return
	}
	snap := l.Snapshot()
	for _, fn := range l.subscribers {
		fn(snap)
	}
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() State {
	return l.state.Clone()
}

// TransactionCount returns the number of recorded transactions.
func (l *Ledger) TransactionCount() int {
	return len(l.state.Transactions)
}

// Restore replaces the whole state, e.g. after loading or importing a document.
func (l *Ledger) Restore(s State) {
	s = s.Clone()
	if s.Transactions == nil {
		s.Transactions = []core.Transaction{}
	}
	if s.Expenses == nil {
		s.Expenses = map[core.Category]decimal.Decimal{}
	}
	s.CategoryOrder = normalizeOrder(s.CategoryOrder, s.Expenses)
	l.state = s
	l.lastID = 0
	for _, tx := range s.Transactions {
		if tx.ID > l.lastID {
			l.lastID = tx.ID
		}
	}
	l.notify()
}

// RecordIncome parses amount and records an income from source.
func (l *Ledger) RecordIncome(amount, source string) (core.Transaction, error) {
	d, err := core.ParseAmount(amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return l.RecordIncomeAmount(d, source)
}

// RecordIncomeAmount records an income of amount from source.
func (l *Ledger) RecordIncomeAmount(amount decimal.Decimal, source string) (core.Transaction, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.Transaction{}, err
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return core.Transaction{}, core.ErrMissingSource
	}

	tx := l.newTransaction(core.Income, amount, source, core.IncomeCategory)
	l.state.Transactions = prepend(l.state.Transactions, tx)
	l.state.CurrentBalance = l.state.CurrentBalance.Add(amount)
	l.state.MonthlyIncome = l.state.MonthlyIncome.Add(amount)
	l.notify()
	return tx, nil
}

// RecordExpense parses amount and category and records an expense.
func (l *Ledger) RecordExpense(amount, category string) (core.Transaction, error) {
	d, err := core.ParseAmount(amount)
	if err != nil {
		return core.Transaction{}, err
	}
	c, err := core.ParseCategory(category)
	if err != nil {
		return core.Transaction{}, err
	}
	return l.RecordExpenseAmount(d, c)
}

// RecordExpenseAmount records an expense of amount in category.
func (l *Ledger) RecordExpenseAmount(amount decimal.Decimal, category core.Category) (core.Transaction, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.Transaction{}, err
	}
	if !category.IsExpense() {
		return core.Transaction{}, core.ErrInvalidCategory
	}

	tx := l.newTransaction(core.Expense, amount, category.Label(), category)
	l.state.Transactions = prepend(l.state.Transactions, tx)
	l.state.CurrentBalance = l.state.CurrentBalance.Sub(amount)
	l.state.MonthlyExpenses = l.state.MonthlyExpenses.Add(amount)
	if prev, ok := l.state.Expenses[category]; ok {
		l.state.Expenses[category] = prev.Add(amount)
	} else {
		l.state.Expenses[category] = amount
		l.state.CategoryOrder = append(l.state.CategoryOrder, category)
	}
	l.notify()
	return tx, nil
}

// SetGoals applies each provided goal that is strictly positive. Invalid
// values are ignored; if nothing applies ErrNoGoalProvided is returned.
func (l *Ledger) SetGoals(savingsGoal, budgetLimit *decimal.Decimal) error {
	applySavings := savingsGoal != nil && core.ValidateAmount(*savingsGoal) == nil
	applyBudget := budgetLimit != nil && core.ValidateAmount(*budgetLimit) == nil
	if !applySavings && !applyBudget {
		return core.ErrNoGoalProvided
	}
	if applySavings {
		l.state.SavingsGoal = *savingsGoal
	}
	if applyBudget {
		l.state.BudgetLimit = *budgetLimit
	}
	l.notify()
	return nil
}

// SetGoalsText is SetGoals for raw input; blank or unparsable values count as absent.
func (l *Ledger) SetGoalsText(savingsGoal, budgetLimit string) error {
	return l.SetGoals(optionalAmount(savingsGoal), optionalAmount(budgetLimit))
}

func optionalAmount(s string) *decimal.Decimal {
	d, err := core.ParseAmount(s)
	if err != nil {
		return nil
	}
	return &d
}

// Reset zeroes everything. Confirmation is the caller's job.
func (l *Ledger) Reset() {
	l.state = NewState()
	l.notify()
}

// BudgetProgress reports monthly expenses against the budget limit.
func (l *Ledger) BudgetProgress() core.Progress {
	if !l.state.BudgetLimit.IsPositive() {
		return core.Progress{Percentage: decimal.Zero, Tier: core.TierNormal}
	}
	pct := core.Percent(l.state.MonthlyExpenses, l.state.BudgetLimit)
	return core.Progress{Set: true, Percentage: pct, Tier: core.TierFor(pct)}
}

// SavingsProgress reports the non-negative balance against the savings goal.
func (l *Ledger) SavingsProgress() core.Progress {
	if !l.state.SavingsGoal.IsPositive() {
		return core.Progress{Percentage: decimal.Zero, Tier: core.TierNormal}
	}
	pct := core.Percent(l.state.CurrentBalance, l.state.SavingsGoal)
	return core.Progress{Set: true, Percentage: pct, Tier: core.TierNormal}
}

// CategoryBreakdown lists categories by amount descending; equal amounts keep
// first-seen order.
func (l *Ledger) CategoryBreakdown() []core.CategoryShare {
	out := make([]core.CategoryShare, 0, len(l.state.CategoryOrder))
	for _, c := range l.state.CategoryOrder {
		amount := l.state.Expenses[c]
		pct := decimal.Zero
		if l.state.MonthlyExpenses.IsPositive() {
			pct = amount.Mul(decimal.NewFromInt(100)).Div(l.state.MonthlyExpenses).Round(1)
		}
		out = append(out, core.CategoryShare{Category: c, Amount: amount, Percentage: pct})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// RecentTransactions returns up to limit transactions, newest first.
func (l *Ledger) RecentTransactions(limit int) []core.Transaction {
	if limit <= 0 {
		return []core.Transaction{}
	}
	if limit > len(l.state.Transactions) {
		limit = len(l.state.Transactions)
	}
	return append([]core.Transaction{}, l.state.Transactions[:limit]...)
}

func (l *Ledger) newTransaction(kind core.Kind, amount decimal.Decimal, desc string, cat core.Category) core.Transaction {
	now := l.now()
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return core.Transaction{
		ID:          id,
		Kind:        kind,
		Amount:      amount,
		Description: desc,
		Category:    cat,
		Date:        now.UTC().Truncate(time.Millisecond),
	}
}

func prepend(txs []core.Transaction, tx core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs)+1)
	out = append(out, tx)
	return append(out, txs...)
}

// normalizeOrder drops stale keys from order and appends any Expenses keys it
// is missing, sorted by name so restores are deterministic.
func normalizeOrder(order []core.Category, expenses map[core.Category]decimal.Decimal) []core.Category {
	seen := make(map[core.Category]struct{}, len(expenses))
	out := make([]core.Category, 0, len(expenses))
	for _, c := range order {
		if _, ok := expenses[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	var missing []core.Category
	for c := range expenses {
		if _, ok := seen[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return append(out, missing...)
}
