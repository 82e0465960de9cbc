// Package models defines the typed trust record persisted in the store.
package models

import "time"

// Status enumerates the trust state machine. Transitions are monotonic:
//
//	active -> triggered -> dispatched -> (row deleted)
//
// reading is written by the external beneficiary open flow and, like
// dispatched, only moves forward into deletion. No state ever returns to
// active except through an owner check-in, which does not change the status.
type Status string

const (
	StatusActive     Status = "active"
	StatusTriggered  Status = "triggered"
	StatusReading    Status = "reading"
	StatusDispatched Status = "dispatched"
)

// Disclosed reports whether the secret has been revealed in this state,
// which makes the record eligible for reaping.
func (s Status) Disclosed() bool {
	return s == StatusReading || s == StatusDispatched
}

// KeyStorageBurned is the tombstone written over key_storage after release.
// It is deliberately not decryptable: once consumed, an envelope can never be
// unwrapped a second time.
const KeyStorageBurned = "BURNED"

// DefaultWarnInterval applies when a record configures warnings but no
// interval.
const DefaultWarnInterval = 600 * time.Second

// Trust is one owner's dead-man's-switch record.
//
// The *At fields hold the raw timestamp strings exactly as the web layer
// wrote them; they are parsed per tick by timex.Parse so one malformed row
// cannot poison a batch.
type Trust struct {
	ID      string
	OwnerID string
	Status  Status

	OwnerEmail       string
	WarningEmail     string
	BeneficiaryEmail string

	EncryptedData string
	KeyStorage    string

	// Silence threshold. TimeoutSeconds wins when both are set;
	// TimeoutMinutes is the legacy column converted at this boundary only.
	TimeoutSeconds int64
	TimeoutMinutes int64

	// Escalation configuration and progress.
	WarnStartSeconds    int64
	WarnIntervalSeconds int64
	WarnMaxCount        int
	WarnSentCount       int

	LastCheckinAt string
	LastWarnAt    string
	DisclosedAt   string

	CreatedAt time.Time
}

// ApplyDefaults fills documented defaults once at deserialization so the
// engine logic never has to special-case zero values.
func (t *Trust) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusActive
	}
	if t.WarnMaxCount > 0 && t.WarnIntervalSeconds <= 0 {
		t.WarnIntervalSeconds = int64(DefaultWarnInterval / time.Second)
	}
	if t.WarningEmail == "" {
		t.WarningEmail = t.OwnerEmail
	}
}

// Timeout returns the owner-configured silence threshold. Legacy
// minutes-configured records are converted here, never inside the evaluator.
func (t *Trust) Timeout() time.Duration {
	if t.TimeoutSeconds > 0 {
		return time.Duration(t.TimeoutSeconds) * time.Second
	}
	return time.Duration(t.TimeoutMinutes) * time.Minute
}

// WarnInterval returns the configured gap between warning levels.
func (t *Trust) WarnInterval() time.Duration {
	return time.Duration(t.WarnIntervalSeconds) * time.Second
}

// WarnStart returns how long before the deadline the warning window opens.
// When the owner did not configure one, the window is sized so the final
// warning lands exactly on the deadline: (max-1) * interval.
func (t *Trust) WarnStart() time.Duration {
	if t.WarnStartSeconds > 0 {
		return time.Duration(t.WarnStartSeconds) * time.Second
	}
	if t.WarnMaxCount <= 0 {
		return 0
	}
	return time.Duration(t.WarnMaxCount-1) * t.WarnInterval()
}

// Burned reports whether the envelope has already been consumed.
func (t *Trust) Burned() bool {
	return t.KeyStorage == KeyStorageBurned
}
