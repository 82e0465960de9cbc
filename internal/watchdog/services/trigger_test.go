package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mkarpenko/keywarden/internal/common"
	"github.com/mkarpenko/keywarden/internal/cryptox"
	"github.com/mkarpenko/keywarden/internal/timex"
	"github.com/mkarpenko/keywarden/internal/watchdog/claims"
	"github.com/mkarpenko/keywarden/internal/watchdog/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTriggerFixture(t *testing.T, repo *fakeRepo, notifier *fakeNotifier) (*Trigger, *cryptox.KeyPair) {
	t.Helper()
	kp, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)
	issuer := claims.NewIssuer("secret", time.Hour)
	return NewTrigger(repo, notifier, testLogger(), issuer, kp.PublicKey, kp.PrivateKey), kp
}

func breachedTrust(t *testing.T, kp *cryptox.KeyPair, payload string) *models.Trust {
	t.Helper()
	env, err := cryptox.Wrap([]byte(payload), kp.PublicKey)
	require.NoError(t, err)
	tr := &models.Trust{
		ID:               "t-1",
		OwnerID:          "o-1",
		Status:           models.StatusActive,
		OwnerEmail:       "owner@example.com",
		BeneficiaryEmail: "heir@example.com",
		EncryptedData:    "ciphertext",
		KeyStorage:       env,
		TimeoutSeconds:   60,
		LastCheckinAt:    timex.Format(testNow.Add(-61 * time.Second)),
	}
	tr.ApplyDefaults()
	return tr
}

// Scenario C: breach releases the key, notifies the beneficiary once, and
// burns the envelope.
func TestTrigger_ReleasesAndBurns(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	svc, kp := newTriggerFixture(t, repo, notifier)

	tr := breachedTrust(t, kp, `{"k":"vault-key-123"}`)
	require.NoError(t, svc.Process(context.Background(), tr, testNow))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "heir@example.com", notifier.sent[0].to)
	assert.Contains(t, notifier.sent[0].body, "vault-key-123")
	assert.Contains(t, notifier.sent[0].body, "t-1")

	require.Len(t, repo.casCalls, 2)

	claim := repo.casCalls[0]
	assert.Equal(t, string(models.StatusActive), claim.where["status"])
	assert.Equal(t, string(models.StatusTriggered), claim.set["status"])

	burn := repo.casCalls[1]
	assert.Equal(t, string(models.StatusTriggered), burn.where["status"])
	assert.Equal(t, string(models.StatusDispatched), burn.set["status"])
	assert.Equal(t, models.KeyStorageBurned, burn.set["key_storage"])
	assert.Equal(t, timex.Format(testNow), burn.set["disclosed_at"])
}

// Scenario C, concurrent half: two instances race the same record; the claim
// CAS lets exactly one through, so the beneficiary is notified exactly once.
func TestTrigger_ConcurrentInstancesNotifyOnce(t *testing.T) {
	// One shared CAS result queue: the first instance claims and burns, the
	// second instance's claim loses.
	repo := &fakeRepo{casResults: []bool{true, true, false}}
	notifier := &fakeNotifier{}
	svcA, kp := newTriggerFixture(t, repo, notifier)
	svcB := NewTrigger(repo, notifier, testLogger(), claims.NewIssuer("secret", time.Hour), kp.PublicKey, kp.PrivateKey)

	tr := breachedTrust(t, kp, `{"k":"vault-key-123"}`)
	other := *tr

	require.NoError(t, svcA.Process(context.Background(), tr, testNow))
	require.NoError(t, svcB.Process(context.Background(), &other, testNow))

	assert.Len(t, notifier.sent, 1)
}

// Scenario E: corrupted key storage quarantines the record in triggered.
func TestTrigger_DecryptFailureQuarantines(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	svc, kp := newTriggerFixture(t, repo, notifier)

	tr := breachedTrust(t, kp, `{"k":"vault-key-123"}`)
	tr.KeyStorage = "Y29ycnVwdGVk"

	err := svc.Process(context.Background(), tr, testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrEnvelopeDecrypt))

	// No notification, and no second CAS: the record stays triggered.
	assert.Empty(t, notifier.sent)
	require.Len(t, repo.casCalls, 1)
	assert.Equal(t, string(models.StatusTriggered), repo.casCalls[0].set["status"])
}

func TestTrigger_DeliveryFailureQuarantines(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{errs: []error{errors.New("smtp down")}}
	svc, kp := newTriggerFixture(t, repo, notifier)

	tr := breachedTrust(t, kp, `{"k":"vault-key-123"}`)
	err := svc.Process(context.Background(), tr, testNow)

	require.Error(t, err)
	// Quarantined: claimed out of active but never burned or reverted.
	require.Len(t, repo.casCalls, 1)
	assert.Empty(t, notifier.sent)
}

func TestTrigger_ConcealedRecipientWins(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	svc, kp := newTriggerFixture(t, repo, notifier)

	tr := breachedTrust(t, kp, `{"k":"vault-key-123","t":"concealed@example.com"}`)
	require.NoError(t, svc.Process(context.Background(), tr, testNow))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "concealed@example.com", notifier.sent[0].to)
}

func TestTrigger_LegacyRawKeyPayload(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	svc, kp := newTriggerFixture(t, repo, notifier)

	tr := breachedTrust(t, kp, "raw-legacy-key")
	require.NoError(t, svc.Process(context.Background(), tr, testNow))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "heir@example.com", notifier.sent[0].to)
	assert.Contains(t, notifier.sent[0].body, "raw-legacy-key")
}

func TestTrigger_NoRecipientQuarantines(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	svc, kp := newTriggerFixture(t, repo, notifier)

	tr := breachedTrust(t, kp, `{"k":"vault-key-123"}`)
	tr.BeneficiaryEmail = ""

	require.Error(t, svc.Process(context.Background(), tr, testNow))
	assert.Empty(t, notifier.sent)
	require.Len(t, repo.casCalls, 1)
}

func TestTrigger_AlreadyBurnedRefusesReRelease(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	svc, kp := newTriggerFixture(t, repo, notifier)

	tr := breachedTrust(t, kp, `{"k":"vault-key-123"}`)
	tr.KeyStorage = models.KeyStorageBurned

	err := svc.Process(context.Background(), tr, testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrKeyBurned))
	assert.Empty(t, notifier.sent)
}

func TestTrigger_ClaimTokenVerifies(t *testing.T) {
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}
	svc, kp := newTriggerFixture(t, repo, notifier)

	tr := breachedTrust(t, kp, `{"k":"vault-key-123"}`)
	require.NoError(t, svc.Process(context.Background(), tr, testNow))
	require.Len(t, notifier.sent, 1)

	// The claim token in the mail body verifies against the same secret and
	// names the record.
	body := notifier.sent[0].body
	idx := strings.Index(body, "Claim token:")
	require.GreaterOrEqual(t, idx, 0)
	token := strings.Fields(body[idx+len("Claim token:"):])[0]

	recordID, err := claims.NewIssuer("secret", time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "t-1", recordID)
}
