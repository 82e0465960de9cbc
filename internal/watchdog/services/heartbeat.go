// Package services implements the watchdog state engine: heartbeat
// evaluation, warning escalation, the one-shot trigger/release transition,
// and the post-disclosure reaper. All happens-once mutations go through the
// store's conditional update, so any number of watchdog instances can process
// the same records concurrently.
package services

import "time"

// Vitals is the result of evaluating one record's silence against its
// deadline. Both fields are signed: Remaining goes negative once the
// deadline has passed.
type Vitals struct {
	Elapsed   time.Duration
	Remaining time.Duration
}

// EvaluateVitals computes elapsed silence and time left to the deadline.
// Pure function; whole-second arithmetic. Legacy minutes-based timeouts are
// converted by the record accessor before they get here, never inside.
func EvaluateVitals(lastCheckin time.Time, timeout time.Duration, now time.Time) Vitals {
	elapsed := now.Sub(lastCheckin).Truncate(time.Second)
	return Vitals{
		Elapsed:   elapsed,
		Remaining: timeout - elapsed,
	}
}

// Breached reports whether the deadline has been reached. Zero remaining
// counts as breached, not as still active.
func (v Vitals) Breached() bool {
	return v.Remaining <= 0
}
