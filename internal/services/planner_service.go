package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moneyplanner/internal/amqp"
	"moneyplanner/internal/codec"
	"moneyplanner/internal/core"
	"moneyplanner/internal/ledger"
	"moneyplanner/internal/metrics"
	"moneyplanner/internal/storage"
)

// Operation names used for metrics and change events.
const (
	OpRecordIncome  = "record_income"
	OpRecordExpense = "record_expense"
	OpSetGoals      = "set_goals"
	OpReset         = "reset"
	OpSetCurrency   = "set_currency"
	OpImport        = "import"
)

// EventPublisher announces ledger changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// PlannerService owns the single planner session. It serialises access to the
// ledger and, after every successful mutation, stores the document and
// publishes a change event. Neither side effect can fail the mutation.
type PlannerService struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	currency core.Currency
	dirty    bool

	store     storage.Store
	publisher EventPublisher
	metrics   metrics.Collector
	now       func() time.Time
}

// Option configures a PlannerService.
type Option func(*PlannerService)

func WithPublisher(p EventPublisher) Option {
	return func(s *PlannerService) { s.publisher = p }
}

func WithMetrics(m metrics.Collector) Option {
	return func(s *PlannerService) { s.metrics = m }
}

// WithClock sets the clock used for timestamps and transaction IDs.
func WithClock(now func() time.Time) Option {
	return func(s *PlannerService) { s.now = now }
}

func WithCurrency(c core.Currency) Option {
	return func(s *PlannerService) { s.currency = c }
}

func NewPlannerService(store storage.Store, opts ...Option) *PlannerService {
	s := &PlannerService{
		currency: core.DefaultCurrency,
		store:    store,
		metrics:  metrics.NoOp{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = ledger.New(ledger.WithClock(s.now))
	// Runs inside the ledger call, so s.mu is already held.
	s.ledger.Subscribe(func(ledger.State) { s.dirty = true })
	return s
}

// Load restores the last saved document. A missing document leaves the
// ledger empty.
func (s *PlannerService) Load(ctx context.Context) error {
	data, err := s.store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "No saved planner document, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	state, currency, err := codec.Deserialize(data)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Restore(state)
	s.currency = currency
	s.dirty = false
	slog.InfoContext(ctx, "Planner document loaded",
		"transactions", len(state.Transactions),
		"currency", currency)
	return nil
}

// Save persists the document if it changed since the last successful save.
func (s *PlannerService) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.persistLocked(ctx)
}

// Dirty reports whether there are unsaved changes.
func (s *PlannerService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *PlannerService) persistLocked(ctx context.Context) error {
	start := time.Now()
	body, err := codec.Marshal(codec.Serialize(s.ledger.Snapshot(), s.currency, s.now()))
	if err == nil {
		err = s.store.Store(ctx, body)
	}
	if err != nil {
		s.metrics.RecordPersist(metrics.OutcomeError, time.Since(start))
		return fmt.Errorf("persist document: %w", err)
	}
	s.metrics.RecordPersist(metrics.OutcomeOK, time.Since(start))
	s.dirty = false
	return nil
}

// mutate runs fn under the lock and, on success, persists and publishes.
func (s *PlannerService) mutate(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		s.metrics.RecordOperation(op, metrics.OutcomeRejected, time.Since(start))
		return err
	}
	if err := s.persistLocked(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to persist planner document, keeping in-memory state",
			"operation", op, "error", err)
	}
	msg := amqp.NewLedgerChangedMessage(op, s.ledger.TransactionCount(), string(s.currency))
	s.mu.Unlock()

	s.publish(ctx, msg)
	s.metrics.RecordOperation(op, metrics.OutcomeOK, time.Since(start))
	return nil
}

func (s *PlannerService) publish(ctx context.Context, msg *amqp.LedgerChangedMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		s.metrics.RecordEvent(metrics.OutcomeError)
		slog.WarnContext(ctx, "Failed to publish ledger change",
			"operation", msg.Operation, "error", err)
		return
	}
	s.metrics.RecordEvent(metrics.OutcomeOK)
}

func (s *PlannerService) RecordIncome(ctx context.Context, amount, source string) (core.Transaction, error) {
	var tx core.Transaction
	err := s.mutate(ctx, OpRecordIncome, func() error {
		var err error
		tx, err = s.ledger.RecordIncome(amount, source)
		return err
	})
	return tx, err
}

func (s *PlannerService) RecordExpense(ctx context.Context, amount, category string) (core.Transaction, error) {
	var tx core.Transaction
	err := s.mutate(ctx, OpRecordExpense, func() error {
		var err error
		tx, err = s.ledger.RecordExpense(amount, category)
		return err
	})
	return tx, err
}

// SetGoals takes raw input; blank or invalid values are ignored.
func (s *PlannerService) SetGoals(ctx context.Context, savingsGoal, budgetLimit string) error {
	return s.mutate(ctx, OpSetGoals, func() error {
		return s.ledger.SetGoalsText(savingsGoal, budgetLimit)
	})
}

// Reset zeroes the ledger. The active currency is kept.
func (s *PlannerService) Reset(ctx context.Context) error {
	return s.mutate(ctx, OpReset, func() error {
		s.ledger.Reset()
		return nil
	})
}

// SetCurrency changes the display currency. Amounts are not converted.
func (s *PlannerService) SetCurrency(ctx context.Context, code string) (core.Currency, error) {
	c, err := core.ParseCurrency(code)
	if err != nil {
		s.metrics.RecordOperation(OpSetCurrency, metrics.OutcomeRejected, 0)
		return "", err
	}
	err = s.mutate(ctx, OpSetCurrency, func() error {
		s.currency = c
		s.dirty = true
		return nil
	})
	return c, err
}

// Import replaces the whole session with an imported document.
func (s *PlannerService) Import(ctx context.Context, data []byte) error {
	state, currency, err := codec.Import(data)
	if err != nil {
		s.metrics.RecordOperation(OpImport, metrics.OutcomeRejected, 0)
		return err
	}
	return s.mutate(ctx, OpImport, func() error {
		s.ledger.Restore(state)
		s.currency = currency
		return nil
	})
}

// Snapshot returns a copy of the state and the active currency.
func (s *PlannerService) Snapshot() (ledger.State, core.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot(), s.currency
}

func (s *PlannerService) Currency() core.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency
}

func (s *PlannerService) BudgetProgress() core.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BudgetProgress()
}

func (s *PlannerService) SavingsProgress() core.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.SavingsProgress()
}

func (s *PlannerService) CategoryBreakdown() []core.CategoryShare {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.CategoryBreakdown()
}

func (s *PlannerService) RecentTransactions(limit int) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.RecentTransactions(limit)
}

// ExportJSON renders the downloadable document.
func (s *PlannerService) ExportJSON() ([]byte, error) {
	state, currency := s.Snapshot()
	return codec.Marshal(codec.Export(state, currency, s.now()))
}

func (s *PlannerService) ExportCSV() (string, error) {
	state, currency := s.Snapshot()
	return codec.ToCSV(state, currency)
}

func (s *PlannerService) ExportTabSeparated() (string, error) {
	state, currency := s.Snapshot()
	return codec.ToTabSeparated(state, currency)
}
