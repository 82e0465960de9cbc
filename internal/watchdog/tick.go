package watchdog

import (
	"context"
	"time"

	"github.com/mkarpenko/keywarden/internal/timex"
	"github.com/mkarpenko/keywarden/internal/watchdog/models"
	"github.com/mkarpenko/keywarden/internal/watchdog/services"
)

// runTick processes the full working set once: active records through the
// escalation and trigger services, then disclosed records through the
// reaper. Every per-record failure is logged and the loop moves on; one
// poisoned record never aborts the tick.
func (app *App) runTick(ctx context.Context, now time.Time) {
	app.processActive(ctx, now)
	app.reapDisclosed(ctx, now)
}

func (app *App) processActive(ctx context.Context, now time.Time) {
	records, err := app.repo.ListByStatus(ctx, models.StatusActive)
	if err != nil {
		app.logger.Error(ctx, "listing active trusts failed", "error", err.Error())
		return
	}

	for _, t := range records {
		func() {
			rctx, cancel := context.WithTimeout(ctx, app.config.RecordTimeout)
			defer cancel()
			if err := app.processActiveRecord(rctx, t, now); err != nil {
				app.logger.Error(ctx, "trust processing failed", "trust_id", t.ID, "error", err.Error())
			}
		}()
	}
}

func (app *App) processActiveRecord(ctx context.Context, t *models.Trust, now time.Time) error {
	lastCheckin, err := timex.Parse(t.LastCheckinAt)
	if err != nil {
		// Skip just this record for the tick.
		return err
	}

	v := services.EvaluateVitals(lastCheckin, t.Timeout(), now)

	// Flush due warnings before the trigger check so a missed tick never
	// swallows promised reminders; an escalation failure must not block the
	// release decision.
	if err := app.escalation.Process(ctx, t, v, now); err != nil {
		app.logger.Warn(ctx, "escalation failed", "trust_id", t.ID, "error", err.Error())
	}

	if v.Breached() {
		return app.trigger.Process(ctx, t, now)
	}
	return nil
}

func (app *App) reapDisclosed(ctx context.Context, now time.Time) {
	for _, status := range []models.Status{models.StatusDispatched, models.StatusReading} {
		records, err := app.repo.ListByStatus(ctx, status)
		if err != nil {
			app.logger.Error(ctx, "listing disclosed trusts failed", "status", string(status), "error", err.Error())
			continue
		}

		for _, t := range records {
			func() {
				rctx, cancel := context.WithTimeout(ctx, app.config.RecordTimeout)
				defer cancel()
				if err := app.reaper.Process(rctx, t, now); err != nil {
					app.logger.Error(ctx, "reaping failed", "trust_id", t.ID, "error", err.Error())
				}
			}()
		}
	}
}
