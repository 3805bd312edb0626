package mailer

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool
	Username string
	Password string
}

// SMTPMailer sends through a plain SMTP relay
type SMTPMailer struct {
	client *gomail.Client
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Secure {
		opts = append(opts, gomail.WithSSL())
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
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPMailer{client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) (Delivery, error) {
	if err := msg.Validate(); err != nil {
		return Delivery{}, err
	}

	out, err := buildSMTPMessage(msg)
	if err != nil {
		return Delivery{}, err
	}

	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return Delivery{}, fmt.Errorf("smtp delivery failed: %w", err)
	}

	delivery := Delivery{Provider: "smtp"}
	if ids := out.GetGenHeader(gomail.HeaderMessageID); len(ids) > 0 {
		delivery.MessageID = ids[0]
	}
	return delivery, nil
}

func buildSMTPMessage(msg Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.FromFormat(msg.From.Name, msg.From.Email); err != nil {
		return nil, fmt.Errorf("%w: sender: %v", ErrInvalidMessage, err)
	}
	if err := out.AddToFormat(msg.To.Name, msg.To.Email); err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidMessage, err)
	}
	out.Subject(msg.Subject)
	out.SetMessageID()

	switch {
	case msg.Text != "" && msg.HTML != "":
		out.SetBodyString(gomail.TypeTextPlain, msg.Text)
		out.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		out.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	default:
		out.SetBodyString(gomail.TypeTextPlain, msg.Text)
	}

	return out, nil
}
