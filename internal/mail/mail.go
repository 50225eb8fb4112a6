// Package mail sends verification mail over SMTP.
package mail

import (
	"context"
	htmltpl "html/template"
	texttpl "text/template"
	"time"

	"formpilot/internal/config"
	"formpilot/internal/errors"

	gomail "github.com/wneessen/go-mail"
)

const verificationSubject = "Verify your email"

var (
	verificationHTML = htmltpl.Must(htmltpl.New("verify.html").Parse(
		`<p>Hello,</p>
<p>Please confirm your email address to finish signing in.</p>
<p><a href="{{.Link}}">Verify email</a></p>
<p>If you did not request this, ignore this message.</p>`))

	verificationText = texttpl.Must(texttpl.New("verify.txt").Parse(
		`Hello,

Please confirm your email address to finish signing in:

{{.Link}}

If you did not request this, ignore this message.
`))
)

// Sender delivers prepared messages. *gomail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// Mailer builds and sends verification messages.
type Mailer struct {
	sender   Sender
	from     string
	fromName string
	logger   *errors.Logger
}

// New creates a Mailer backed by an SMTP client.
func New(cfg config.MailConfig, logger *errors.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "mail host is required", nil)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(timeout),
	}
	if cfg.SSL {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to create SMTP client", err)
	}
	return NewWithSender(client, cfg, logger), nil
}

// NewWithSender creates a Mailer with a custom sender.
func NewWithSender(sender Sender, cfg config.MailConfig, logger *errors.Logger) *Mailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "Job Extension"
	}
	return &Mailer{sender: sender, from: from, fromName: fromName, logger: logger}
}

// VerificationMessage builds the verification mail for to.
func (m *Mailer) VerificationMessage(to, link string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject(verificationSubject)

	data := struct{ Link string }{Link: link}
	if err := msg.SetBodyHTMLTemplate(verificationHTML, data); err != nil {
		return nil, err
	}
	if err := msg.AddAlternativeTextTemplate(verificationText, data); err != nil {
		return nil, err
	}
	return msg, nil
}

// SendVerification mails link to the given address.
func (m *Mailer) SendVerification(ctx context.Context, to, link string) error {
	msg, err := m.VerificationMessage(to, link)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid verification message", err).
			WithContext("to", to)
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.LogError(err, "Failed to send verification email", "to", to)
		return err
	}
	m.logger.Debug("Verification email delivered", "to", to)
	return nil
}
