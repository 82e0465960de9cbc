package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mkarpenko/keywarden/internal/common"
	"github.com/mkarpenko/keywarden/internal/cryptox"
	"github.com/mkarpenko/keywarden/internal/logging"
	"github.com/mkarpenko/keywarden/internal/timex"
	"github.com/mkarpenko/keywarden/internal/watchdog/claims"
	"github.com/mkarpenko/keywarden/internal/watchdog/mail"
	"github.com/mkarpenko/keywarden/internal/watchdog/models"
	"github.com/mkarpenko/keywarden/internal/watchdog/repositories/trusts"
)

// Trigger performs the irreversible release: claim the record with a
// conditional status update, unwrap the envelope, notify the beneficiary,
// then burn the key storage. The initial compare-and-swap out of active is
// the sole concurrency gate; everything after it either completes or leaves
// the record quarantined in triggered for an operator.
type Trigger struct {
	repo     trusts.Repository
	notifier mail.Notifier
	log      logging.Logger
	issuer   *claims.Issuer

	publicKey  string
	privateKey string
}

func NewTrigger(repo trusts.Repository, notifier mail.Notifier, log logging.Logger, issuer *claims.Issuer, publicKey, privateKey string) *Trigger {
	return &Trigger{
		repo:       repo,
		notifier:   notifier,
		log:        log,
		issuer:     issuer,
		publicKey:  publicKey,
		privateKey: privateKey,
	}
}

// Process fires the release for a breached record. Returning a non-nil error
// always means the record is quarantined in triggered: it will not be
// retried automatically, because a silent revert to active risks a second
// unwrap and a silent delete risks data loss.
func (s *Trigger) Process(ctx context.Context, t *models.Trust, now time.Time) error {
	ok, err := s.repo.ConditionalUpdate(ctx, t.ID,
		map[string]any{"status": string(models.StatusActive)},
		map[string]any{"status": string(models.StatusTriggered)})
	if err != nil {
		return fmt.Errorf("claiming record: %w", err)
	}
	if !ok {
		// Another instance already transitioned this record.
		return nil
	}

	if t.Burned() {
		return fmt.Errorf("record %s: %w", t.ID, common.ErrKeyBurned)
	}

	payloadRaw, err := cryptox.Unwrap(t.KeyStorage, s.publicKey, s.privateKey)
	if err != nil {
		return fmt.Errorf("record %s quarantined: %w", t.ID, err)
	}
	payload, err := cryptox.ParsePayload(payloadRaw)
	if err != nil {
		return fmt.Errorf("record %s quarantined: %w", t.ID, err)
	}

	recipient := payload.Recipient
	if recipient == "" {
		recipient = t.BeneficiaryEmail
	}
	if recipient == "" {
		return fmt.Errorf("record %s quarantined: no beneficiary address", t.ID)
	}

	token, err := s.issuer.Issue(t.ID, now)
	if err != nil {
		return fmt.Errorf("record %s quarantined: %w", t.ID, err)
	}

	// The unwrapped key exists only inside this message for the duration of
	// the send; it is never persisted.
	if err := s.notifier.Send(ctx, recipient, "Trust released — key enclosed", disclosureBody(t.ID, payload.Key, token)); err != nil {
		// Quarantine rather than roll back: once DATA was attempted there is
		// no way to prove the key never left the process.
		return fmt.Errorf("record %s quarantined: %w", t.ID, err)
	}

	ok, err = s.repo.ConditionalUpdate(ctx, t.ID,
		map[string]any{"status": string(models.StatusTriggered)},
		map[string]any{
			"status":       string(models.StatusDispatched),
			"key_storage":  models.KeyStorageBurned,
			"disclosed_at": timex.Format(now),
		})
	if err != nil {
		return fmt.Errorf("record %s: burning key storage: %w", t.ID, err)
	}
	if !ok {
		return fmt.Errorf("record %s: burn lost its conditional update, manual check required", t.ID)
	}

	s.log.Info(ctx, "trust released", "trust_id", t.ID)
	return nil
}

func disclosureBody(recordID, key, token string) string {
	return fmt.Sprintf(
		"You are the registered beneficiary of a keywarden trust.\n\n"+
			"The owner has missed every check-in deadline, so control now passes to you.\n\n"+
			"Record ID:      %s\n"+
			"Decryption key: %s\n"+
			"Claim token:    %s\n\n"+
			"Open the heir page, enter the record ID and the key to decrypt the message\n"+
			"left for you. The record will be destroyed shortly after it is first opened.\n\n"+
			"(This message is automated; replies are not read.)",
		recordID, key, token,
	)
}
