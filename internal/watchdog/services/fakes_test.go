package services

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/mkarpenko/keywarden/internal/logging"
	"github.com/mkarpenko/keywarden/internal/watchdog/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// -------- test fakes --------

type casCall struct {
	id    string
	where map[string]any
	set   map[string]any
}

// fakeRepo implements trusts.Repository in memory. CAS outcomes can be
// scripted per call via casResults; unscripted calls succeed.
type fakeRepo struct {
	mu sync.Mutex

	listed  map[models.Status][]*models.Trust
	listErr error

	casCalls   []casCall
	casResults []bool
	casErr     error

	deleted     []string
	deleteErr   error
	identities  []string
	identityErr error
}

func (f *fakeRepo) ListByStatus(ctx context.Context, status models.Status) ([]*models.Trust, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listed[status], nil
}

func (f *fakeRepo) ConditionalUpdate(ctx context.Context, id string, where, set map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casErr != nil {
		return false, f.casErr
	}
	f.casCalls = append(f.casCalls, casCall{id: id, where: where, set: set})
	if len(f.casResults) > 0 {
		ok := f.casResults[0]
		f.casResults = f.casResults[1:]
		return ok, nil
	}
	return true, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepo) DeleteIdentity(ctx context.Context, ownerID string) error {
	if f.identityErr != nil {
		return f.identityErr
	}
	f.identities = append(f.identities, ownerID)
	return nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

// fakeNotifier records sends; errs are popped per call, nil entries succeed.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	errs []error
}

func (f *fakeNotifier) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}
