package transfer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tonimelisma/drivegate/internal/gdrive"
)

// Poll defaults: 15 attempts 1.5s apart, about 22 seconds of waiting.
const (
	DefaultPollAttempts = 15
	DefaultPollInterval = 1500 * time.Millisecond
)

// Readiness is the outcome of waiting for a copied file's metadata.
type Readiness int

const (
	// ReadinessPending means the attempt budget ran out before Drive reported
	// a size. The copy exists; downloads that need the total length may fail.
	ReadinessPending Readiness = iota
	// ReadinessReady means Drive reports a size for the item.
	ReadinessReady
	// ReadinessFailed means polling stopped early: the item vanished or the
	// wait was canceled.
	ReadinessFailed
)

func (r Readiness) String() string {
	switch r {
	case ReadinessReady:
		return "ready"
	case ReadinessPending:
		return "pending"
	case ReadinessFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PollResult reports how a readiness wait ended.
type PollResult struct {
	State    Readiness
	Attempts int
	Err      error // set only when State is ReadinessFailed
}

// Ready reports whether the item became ready.
func (r PollResult) Ready() bool {
	return r.State == ReadinessReady
}

// ReadinessPoller waits for a freshly copied file to report its size.
type ReadinessPoller struct {
	drive       ItemGetter
	logger      *slog.Logger
	maxAttempts int
	interval    time.Duration

	// sleepFunc waits between attempts. Tests override it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewReadinessPoller creates a poller. Non-positive values select the defaults.
func NewReadinessPoller(drive ItemGetter, maxAttempts int, interval time.Duration, logger *slog.Logger) *ReadinessPoller {
	if logger == nil {
		logger = slog.Default()
	}

	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}

	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &ReadinessPoller{
		drive:       drive,
		logger:      logger,
		maxAttempts: maxAttempts,
		interval:    interval,
		sleepFunc:   sleepCtx,
	}
}

// AwaitReady polls the item's size field until Drive reports one or the
// attempt budget is spent. Running out of attempts yields ReadinessPending,
// never an error. Transient metadata errors use up an attempt and polling
// continues; a missing item or a canceled context yields ReadinessFailed.
func (p *ReadinessPoller) AwaitReady(ctx context.Context, itemID string) PollResult {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		item, err := p.drive.GetItem(ctx, itemID, "size")

		switch {
		case err == nil && item.HasSize:
			p.logger.Debug("copied item ready",
				slog.String("item_id", itemID),
				slog.Int("attempts", attempt),
				slog.Int64("size", item.Size),
			)

			return PollResult{State: ReadinessReady, Attempts: attempt}
		case err != nil && (errors.Is(err, gdrive.ErrNotFound) || ctx.Err() != nil):
			return PollResult{State: ReadinessFailed, Attempts: attempt, Err: err}
		case err != nil:
			p.logger.Warn("readiness poll failed, will retry",
				slog.String("item_id", itemID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}

		if attempt == p.maxAttempts {
			break
		}

		if err := p.sleepFunc(ctx, p.interval); err != nil {
			return PollResult{State: ReadinessFailed, Attempts: attempt, Err: err}
		}
	}

	p.logger.Info("copied item still processing",
		slog.String("item_id", itemID),
		slog.Int("attempts", p.maxAttempts),
	)

	return PollResult{State: ReadinessPending, Attempts: p.maxAttempts}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
