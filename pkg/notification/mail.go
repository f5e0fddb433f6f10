package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type MailConfig struct {
	Host     string `env:"MAIL_HOST"`
	Port     int64  `env:"MAIL_PORT" envDefault:"587"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	From     string `env:"MAIL_FROM"`
	FromName string `env:"MAIL_FROM_NAME" envDefault:"GuardianPath Emergency Alert"`
	// InsecureSkipVerify is for local relays with self-signed certificates.
	InsecureSkipVerify bool `env:"MAIL_INSECURE_SKIP_VERIFY"`
}

// Configured reports whether live SMTP credentials are present.
func (c MailConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

type Mail struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers one message to all recipients. Delivery is atomic from
// the caller's point of view: either every recipient was accepted or err is set.
type Transport interface {
	Send(ctx context.Context, m *Mail) (messageID string, err error)
}

// NewTransport returns an SMTP transport when cfg has credentials and a
// simulated one otherwise.
func NewTransport(cfg MailConfig, log *zap.Logger) Transport {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Configured() {
		log.Warn("mail credentials not configured, using simulated transport")
		return &SimulatedTransport{log: log}
	}
	return NewSMTPTransport(cfg)
}

type SMTPTransport struct {
	cfg    MailConfig
	dialer *gomail.Dialer
}

func NewSMTPTransport(cfg MailConfig) *SMTPTransport {
	d := gomail.NewDialer(cfg.Host, int(cfg.Port), cfg.Username, cfg.Password)
	d.SSL = cfg.Port == 465
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true}
	}
	return &SMTPTransport{cfg: cfg, dialer: d}
}

func (t *SMTPTransport) Send(ctx context.Context, m *Mail) (string, error) {
	if len(m.To) == 0 {
		return "", fmt.Errorf("smtp: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	from := t.cfg.From
	if from == "" {
		from = t.cfg.Username
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.cfg.Host)

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", from, t.cfg.FromName)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", m.Subject)
	msg.SetHeader("Message-ID", messageID)
	msg.SetBody("text/plain", m.Text)
	if m.HTML != "" {
		msg.AddAlternative("text/html", m.HTML)
	}

	// gomail has no context support; the dial itself is bounded by the server.
	if err := t.dialer.DialAndSend(msg); err != nil {
		return "", fmt.Errorf("smtp send to %d recipients: %w", len(m.To), err)
	}
	return messageID, nil
}

// SimulatedTransport stands in for SMTP when no credentials are configured.
// It logs what would have been sent and always succeeds.
type SimulatedTransport struct {
	log *zap.Logger
}

func NewSimulatedTransport(log *zap.Logger) *SimulatedTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &SimulatedTransport{log: log}
}

func (t *SimulatedTransport) Send(_ context.Context, m *Mail) (string, error) {
	id := "mock_" + uuid.NewString()
	t.log.Info("simulated email sent",
		zap.String("message_id", id),
		zap.Strings("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("preview", preview(m.Text, 200)),
	)
	return id, nil
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
