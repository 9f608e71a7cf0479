package worker

import (
	"context"
	"log/slog"
	"time"
)

// DefaultAutosaveInterval matches how often the planner checkpoints its state.
const DefaultAutosaveInterval = 30 * time.Second

const finalSaveTimeout = 5 * time.Second

// Saver persists pending changes. services.PlannerService implements it.
type Saver interface {
	Save(ctx context.Context) error
}

// Autosaver calls Save on a fixed interval and once more on shutdown.
type Autosaver struct {
	saver    Saver
	interval time.Duration
}

func NewAutosaver(saver Saver, interval time.Duration) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{saver: saver, interval: interval}
}

// Run blocks until ctx is done. Save errors are logged and retried on the
// next tick.
func (a *Autosaver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Autosave started", "interval", a.interval)
	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
			defer cancel()
			if err := a.saver.Save(saveCtx); err != nil {
				slog.Error("Final save failed", "error", err)
				return err
			}
			slog.Info("Autosave stopped after final save")
			return nil
		case <-ticker.C:
			if err := a.saver.Save(ctx); err != nil {
				slog.WarnContext(ctx, "Autosave failed", "error", err)
			}
		}
	}
}
