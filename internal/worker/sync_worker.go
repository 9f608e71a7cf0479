package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"moneyplanner/internal/amqp"
	"moneyplanner/internal/codec"
	"moneyplanner/internal/core"
	"moneyplanner/internal/metrics"
	"moneyplanner/internal/sheets"
	"moneyplanner/internal/storage"
)

// SyncWorker mirrors the latest planner snapshot into a spreadsheet whenever
// a ledger change event arrives.
type SyncWorker struct {
	store   storage.Store
	sheet   sheets.SnapshotWriter
	breaker *gobreaker.CircuitBreaker
	metrics metrics.Collector

	// openBackoff delays the requeue while the breaker is open.
	openBackoff time.Duration

	mu         sync.Mutex
	lastSynced time.Time
}

// SyncOption configures a SyncWorker.
type SyncOption func(*syncSettings)

type syncSettings struct {
	metrics     metrics.Collector
	maxFailures uint32
	openTimeout time.Duration
	openBackoff time.Duration
}

func WithSyncMetrics(m metrics.Collector) SyncOption {
	return func(s *syncSettings) { s.metrics = m }
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) SyncOption {
	return func(s *syncSettings) {
		s.maxFailures = maxFailures
		s.openTimeout = openTimeout
	}
}

// WithOpenBackoff sets the pause before a message rejected by the open breaker
// is requeued.
func WithOpenBackoff(d time.Duration) SyncOption {
	return func(s *syncSettings) { s.openBackoff = d }
}

func NewSyncWorker(store storage.Store, sheet sheets.SnapshotWriter, opts ...SyncOption) *SyncWorker {
	cfg := syncSettings{
		metrics:     metrics.NoOp{},
		maxFailures: 3,
		openTimeout: time.Minute,
		openBackoff: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &SyncWorker{
		store:       store,
		sheet:       sheet,
		metrics:     cfg.metrics,
		openBackoff: cfg.openBackoff,
	}
	w.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sheets",
		Timeout: cfg.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Sheets circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			w.metrics.RecordCircuitState(name, circuitState(to))
		},
	})
	return w
}

func circuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// HandleLedgerChanged processes one change event. Returning an error makes the
// consumer requeue the message.
func (w *SyncWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.mu.Lock()
	stale := msg.Timestamp.Before(w.lastSynced)
	w.mu.Unlock()
	if stale {
		slog.DebugContext(ctx, "Skipping stale change event", "message_id", msg.ID)
		return nil
	}

	slog.InfoContext(ctx, "Processing ledger change",
		"message_id", msg.ID,
		"operation", msg.Operation)

	rows, err := w.snapshotRows(ctx)
	if err != nil {
		return err
	}
	if rows == nil {
		slog.InfoContext(ctx, "No saved planner document yet, nothing to mirror")
		return nil
	}

	start := time.Now()
	res, err := w.breaker.Execute(func() (interface{}, error) {
		return w.sheet.WriteSnapshot(ctx, rows)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		w.metrics.RecordSheetsSync(metrics.OutcomeRejected, time.Since(start))
		slog.WarnContext(ctx, "Sheets circuit open, delaying requeue", "message_id", msg.ID, "backoff", w.openBackoff)
		select {
		case <-ctx.Done():
		case <-time.After(w.openBackoff):
		}
		return fmt.Errorf("sheets unavailable: %w", err)
	}
	if err != nil {
		w.metrics.RecordSheetsSync(metrics.OutcomeError, time.Since(start))
		return fmt.Errorf("write snapshot to sheets: %w", err)
	}
	w.metrics.RecordSheetsSync(metrics.OutcomeOK, time.Since(start))

	w.mu.Lock()
	if msg.Timestamp.After(w.lastSynced) {
		w.lastSynced = msg.Timestamp
	}
	w.mu.Unlock()

	slog.InfoContext(ctx, "Mirrored planner snapshot",
		"message_id", msg.ID,
		"ref", res,
		"rows", len(rows))
	return nil
}

// snapshotRows returns nil rows when nothing has been saved. An empty ledger
// mirrors as the header alone so the sheet is cleared.
func (w *SyncWorker) snapshotRows(ctx context.Context) ([][]string, error) {
	data, err := w.store.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	state, currency, err := codec.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	rows, err := codec.Rows(state, currency)
	if errors.Is(err, core.ErrNothingToExport) {
		return [][]string{append([]string(nil), codec.Header...)}, nil
	}
	return rows, err
}

// Run consumes change events until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged)
}
