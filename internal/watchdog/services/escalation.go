package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mkarpenko/keywarden/internal/logging"
	"github.com/mkarpenko/keywarden/internal/timex"
	"github.com/mkarpenko/keywarden/internal/watchdog/mail"
	"github.com/mkarpenko/keywarden/internal/watchdog/models"
	"github.com/mkarpenko/keywarden/internal/watchdog/repositories/trusts"
)

// Escalation sends numbered check-in reminders as a record approaches its
// deadline. Missed levels are caught up in one tick: a warning may be late
// but is never skipped.
type Escalation struct {
	repo     trusts.Repository
	notifier mail.Notifier
	log      logging.Logger

	// cooldown is a fixed safety floor between sends for one record,
	// independent of the owner-configured interval. It stops a mail flood
	// when a failing send is retried tick after tick.
	cooldown time.Duration
}

func NewEscalation(repo trusts.Repository, notifier mail.Notifier, log logging.Logger, cooldown time.Duration) *Escalation {
	return &Escalation{repo: repo, notifier: notifier, log: log, cooldown: cooldown}
}

// DueWarnLevel returns the highest warning level (1-based) that should have
// fired by now, clamped to the configured maximum and 0 before the window
// opens. Level k becomes due at elapsed >= timeout - warnStart + (k-1)*interval,
// so with the default window the final warning lands exactly on the deadline.
func DueWarnLevel(t *models.Trust, v Vitals) int {
	if t.WarnMaxCount <= 0 || t.WarnInterval() <= 0 {
		return 0
	}
	windowOpensAt := t.Timeout() - t.WarnStart()
	if v.Elapsed < windowOpensAt {
		return 0
	}
	level := int((v.Elapsed-windowOpensAt)/t.WarnInterval()) + 1
	if level > t.WarnMaxCount {
		level = t.WarnMaxCount
	}
	return level
}

// Process sends every due-but-unsent warning level for an active record, in
// order. Each level is sent at most once per instance and recorded with a
// conditional update on warn_sent_count, so racing instances cannot advance
// the counter twice; a lost race aborts the batch (the winner owns the rest).
// A failed send leaves the counter untouched and the level is retried next
// tick: at-least-once for warnings, duplicates tolerable, omissions not.
func (s *Escalation) Process(ctx context.Context, t *models.Trust, v Vitals, now time.Time) error {
	due := DueWarnLevel(t, v)
	if due <= t.WarnSentCount {
		return nil
	}

	if t.LastWarnAt != "" {
		if lastWarn, err := timex.Parse(t.LastWarnAt); err == nil && now.Sub(lastWarn) < s.cooldown {
			s.log.Info(ctx, "warning deferred by cooldown", "trust_id", t.ID, "due_level", due)
			return nil
		}
	}

	nowRaw := timex.Format(now)
	for level := t.WarnSentCount + 1; level <= due; level++ {
		subject := fmt.Sprintf("Check-in reminder %d of %d", level, t.WarnMaxCount)
		if err := s.notifier.Send(ctx, t.WarningEmail, subject, warningBody(t, v, level)); err != nil {
			return fmt.Errorf("warning level %d: %w", level, err)
		}

		ok, err := s.repo.ConditionalUpdate(ctx, t.ID,
			map[string]any{
				"status":          string(models.StatusActive),
				"warn_sent_count": level - 1,
			},
			map[string]any{
				"warn_sent_count": level,
				"last_warn_at":    nowRaw,
			})
		if err != nil {
			return fmt.Errorf("recording warning level %d: %w", level, err)
		}
		if !ok {
			// Another instance recorded this level first. The duplicate mail
			// just sent is tolerable; the counter stayed correct.
			s.log.Warn(ctx, "lost warning counter race", "trust_id", t.ID, "level", level)
			return nil
		}

		t.WarnSentCount = level
		t.LastWarnAt = nowRaw
		s.log.Info(ctx, "warning sent", "trust_id", t.ID, "level", level, "of", t.WarnMaxCount)
	}
	return nil
}

func warningBody(t *models.Trust, v Vitals, level int) string {
	remaining := v.Remaining
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf(
		"This is reminder %d of %d from your keywarden trust.\n\n"+
			"We have not seen a check-in for %s. If you remain silent for another %s,\n"+
			"your sealed key will be released to your beneficiary and the trust will be\n"+
			"scheduled for destruction.\n\n"+
			"Log in and check in to reset the timer.\n\n"+
			"(This message is automated; replies are not read.)",
		level, t.WarnMaxCount, v.Elapsed, remaining,
	)
}
