package mail

import (
	"context"
	"fmt"

	"github.com/mkarpenko/keywarden/internal/common"
	gomail "github.com/wneessen/go-mail"
)

// SMTPNotifier sends mail through an authenticated SMTP relay.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPNotifier configures a notifier for the given relay. The connection
// is dialed per send; the watchdog sends too rarely to keep one open.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, username: username, password: password, from: from}
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("%w: invalid sender %q: %v", common.ErrDelivery, n.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: invalid recipient %q: %v", common.ErrDelivery, to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(n.host,
		gomail.WithPort(n.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(n.username),
		gomail.WithPassword(n.password),
	)
	if err != nil {
		return fmt.Errorf("%w: client init: %v", common.ErrDelivery, err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDelivery, err)
	}
	return nil
}
