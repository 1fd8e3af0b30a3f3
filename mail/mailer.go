// Package mail sends the transactional messages the auth flows
// produce: welcome, password reset, and email verification.
package mail

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	gomail "github.com/wneessen/go-mail"
)

// Config carries the SMTP transport and branding options.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	From     string
	FromName string

	// AppName shows up in subjects and in the message body.
	AppName string

	// SupportEmail is printed in the footer when set.
	SupportEmail string
}

// Mailer delivers transactional auth mail over SMTP.
type Mailer struct {
	cfg    Config
	client *gomail.Client
}

// New builds a Mailer from the given config.
func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, goerrors.New("mailer requires a SMTP host", goerrors.CategoryValidation)
	}

	if cfg.From == "" {
		return nil, goerrors.New("mailer requires a from address", goerrors.CategoryValidation)
	}

	if cfg.AppName == "" {
		cfg.AppName = "Auth"
	}

	opts := []gomail.Option{
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}

	if cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
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
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not build mail client")
	}

	return &Mailer{cfg: cfg, client: client}, nil
}

// SendResetPasswordMail mails the single-use password reset link.
func (m *Mailer) SendResetPasswordMail(ctx context.Context, to, name, link string) error {
	body := renderMail(mailData{
		AppName:      m.cfg.AppName,
		Title:        "Reset your password",
		Greeting:     greeting(name),
		Intro:        "We received a request to reset the password for your account. The link below is valid for a short time and can be used once.",
		ActionLabel:  "Reset password",
		ActionURL:    link,
		Outro:        "If you did not request this, you can safely ignore this message. Your password will not change.",
		SupportEmail: m.cfg.SupportEmail,
	})

	return m.send(ctx, to, m.cfg.AppName+": password reset", body)
}

// SendVerificationMail mails the single-use email verification link.
func (m *Mailer) SendVerificationMail(ctx context.Context, to, name, link string) error {
	body := renderMail(mailData{
		AppName:      m.cfg.AppName,
		Title:        "Verify your email",
		Greeting:     greeting(name),
		Intro:        "Please confirm this address belongs to you. The link below is valid for a short time and can be used once.",
		ActionLabel:  "Verify email",
		ActionURL:    link,
		Outro:        "If you did not create an account, no further action is required.",
		SupportEmail: m.cfg.SupportEmail,
	})

	return m.send(ctx, to, m.cfg.AppName+": verify your email", body)
}

// SendWelcomeMail greets a freshly created account.
func (m *Mailer) SendWelcomeMail(ctx context.Context, to string) error {
	body := renderMail(mailData{
		AppName:      m.cfg.AppName,
		Title:        "Welcome to " + m.cfg.AppName,
		Greeting:     "Hello,",
		Intro:        "Your account has been created. You can sign in with your email address at any time.",
		Outro:        "We are glad to have you on board.",
		SupportEmail: m.cfg.SupportEmail,
	})

	return m.send(ctx, to, "Welcome to "+m.cfg.AppName, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()

	from := m.cfg.From
	if m.cfg.FromName != "" {
		if err := msg.FromFormat(m.cfg.FromName, from); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid from address")
		}
	} else if err := msg.From(from); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid from address")
	}

	if err := msg.To(to); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid recipient address")
	}

	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "could not deliver mail").
			WithMetadata(map[string]any{
				"subject": subject,
			})
	}

	return nil
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Hello,"
	}
	return "Hello " + name + ","
}
