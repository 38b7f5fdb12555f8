package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"amazon-scraper/config"
	"amazon-scraper/utils"
)

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends failure alerts over SMTP with STARTTLS when the server offers it.
type EmailNotifier struct {
	addr  string
	auth  smtp.Auth
	from  string
	to    []string
	clock utils.Clock
	send  sendMailFunc
}

// NewEmailNotifier returns an EmailNotifier for the alert settings.
func NewEmailNotifier(cfg config.Alerts, clock utils.Clock) (*EmailNotifier, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("notify: smtp host is not configured")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("notify: no alert recipients configured")
	}
	from := cfg.From
	if from == "" {
		from = cfg.SMTPUser
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &EmailNotifier{
		addr:  net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:  auth,
		from:  from,
		to:    cfg.To,
		clock: clock,
		send:  smtp.SendMail,
	}, nil
}

func (n *EmailNotifier) NotifyFailure(ctx context.Context, message, frequency string) error {
	msg := n.compose(message, frequency)

	done := make(chan error, 1)
	go func() {
		done <- n.send(n.addr, n.auth, n.from, n.to, msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("can't send failure email: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("can't send failure email: %w", err)
		}
		return nil
	}
}

func (n *EmailNotifier) compose(message, frequency string) []byte {
	var b strings.Builder
	b.WriteString("From: " + n.from + "\r\n")
	b.WriteString("To: " + strings.Join(n.to, ", ") + "\r\n")
	b.WriteString("Subject: " + FailureSubject(frequency, n.clock.Now()) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hello,\r\n\r\nThe Amazon scraping task for schedule '%s' has failed.\r\n\r\n", frequency)
	b.WriteString("Error Details:\r\n----------------\r\n")
	b.WriteString(strings.ReplaceAll(message, "\n", "\r\n"))
	b.WriteString("\r\n\r\nPlease check the logs or server for details.\r\n\r\nRegards,\r\nScraper Monitoring System\r\n")
	return []byte(b.String())
}
