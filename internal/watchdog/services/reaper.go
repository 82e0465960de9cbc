package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mkarpenko/keywarden/internal/logging"
	"github.com/mkarpenko/keywarden/internal/timex"
	"github.com/mkarpenko/keywarden/internal/watchdog/models"
	"github.com/mkarpenko/keywarden/internal/watchdog/repositories/trusts"
)

// Reaper permanently destroys disclosed records once the grace window has
// elapsed. Deletion is idempotent; the owner's authentication identity is
// removed best-effort afterwards.
type Reaper struct {
	repo  trusts.Repository
	log   logging.Logger
	grace time.Duration
}

func NewReaper(repo trusts.Repository, log logging.Logger, grace time.Duration) *Reaper {
	return &Reaper{repo: repo, log: log, grace: grace}
}

// Process deletes the record if its disclosure is at least the grace window
// in the past. Records disclosed through the legacy web flow stamp
// last_checkin_at instead of disclosed_at, so that field is the fallback.
func (s *Reaper) Process(ctx context.Context, t *models.Trust, now time.Time) error {
	raw := t.DisclosedAt
	if raw == "" {
		raw = t.LastCheckinAt
	}
	disclosedAt, err := timex.Parse(raw)
	if err != nil {
		return fmt.Errorf("record %s: disclosure timestamp: %w", t.ID, err)
	}

	if now.Sub(disclosedAt) < s.grace {
		return nil
	}

	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("record %s: %w", t.ID, err)
	}

	if err := s.repo.DeleteIdentity(ctx, t.OwnerID); err != nil {
		// Best-effort: the trust row is already gone, a dangling identity is
		// an inconvenience, not a disclosure risk.
		s.log.Warn(ctx, "identity delete failed", "owner_id", t.OwnerID, "error", err.Error())
	}

	s.log.Info(ctx, "trust reaped", "trust_id", t.ID)
	return nil
}
