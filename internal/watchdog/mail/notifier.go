// Package mail defines the outbound notification contract and its SMTP
// implementation. The engine only ever asks for "deliver this text to this
// address"; templates, transport security and retries-across-ticks are the
// callers' concern.
package mail

import "context"

// Notifier delivers one plain-text message. A nil error means the transport
// accepted the message; anything else is reported to the caller, which
// decides whether the send may be retried on a later tick.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
