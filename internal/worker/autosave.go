// Package worker runs background jobs next to the interactive console.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledgerlite/internal/core"
	applog "ledgerlite/internal/log"
)

// Saver is what the autosaver flushes.
type Saver interface {
	Save(ctx context.Context) error
	Revision() uint64
}

// AutosaveConfig holds configuration for the autosaver
type AutosaveConfig struct {
	// Interval between flush attempts (default: 30s)
	Interval time.Duration

	// FlushTimeout bounds a single flush, including the final one on
	// shutdown (default: 10s)
	FlushTimeout time.Duration
}

// DefaultAutosaveConfig returns sensible defaults
func DefaultAutosaveConfig() AutosaveConfig {
	return AutosaveConfig{
		Interval:     30 * time.Second,
		FlushTimeout: 10 * time.Second,
	}
}

// Autosaver periodically flushes the ledger when it has changed since the
// last successful flush.
type Autosaver struct {
	target Saver
	config AutosaveConfig
	logger *slog.Logger

	mu        sync.Mutex
	saved     bool
	lastSaved uint64
}

func NewAutosaver(target Saver, config AutosaveConfig, logger *slog.Logger) *Autosaver {
	defaults := DefaultAutosaveConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = defaults.FlushTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{
		target: target,
		config: config,
		logger: logger.With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// Run flushes on every tick until ctx is done, then flushes one last time.
// Tick failures are logged and retried on the next tick; only the final
// flush error is returned.
func (a *Autosaver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "Autosave started", "interval", a.config.Interval)

	for {
		select {
		case <-ctx.Done():
			// The parent context is gone; give the final flush its own deadline.
			finalCtx, cancel := context.WithTimeout(context.Background(), a.config.FlushTimeout)
			defer cancel()
			if _, err := a.FlushIfChanged(finalCtx); err != nil {
				return fmt.Errorf("final autosave: %w", err)
			}
			a.logger.Info("Autosave stopped")
			return nil
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(ctx, a.config.FlushTimeout)
			if _, err := a.FlushIfChanged(flushCtx); err != nil {
				a.logger.WarnContext(ctx, "Autosave failed, will retry",
					applog.FieldOperation, applog.OpFlush,
					applog.FieldError, err.Error())
			}
			cancel()
		}
	}
}

// FlushIfChanged saves when the revision moved since the last successful
// save and reports whether it did. A target that refuses with
// core.ErrStoreNotLoaded is skipped without error.
func (a *Autosaver) FlushIfChanged(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rev := a.target.Revision()
	if a.saved && rev == a.lastSaved {
		return false, nil
	}
	if err := a.target.Save(ctx); err != nil {
		if errors.Is(err, core.ErrStoreNotLoaded) {
			a.logger.DebugContext(ctx, "Autosave skipped, stored ledger not loaded")
			return false, nil
		}
		return false, err
	}
	a.saved, a.lastSaved = true, rev
	a.logger.DebugContext(ctx, "Autosave flushed", "revision", rev)
	return true, nil
}
