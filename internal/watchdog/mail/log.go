package mail

import (
	"context"

	"github.com/mkarpenko/keywarden/internal/logging"
)

// LogNotifier writes messages to the log instead of sending them. Used for
// dry runs and local development against a real store.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.log.Info(ctx, "dry-run mail", "to", to, "subject", subject, "bytes", len(body))
	return nil
}
