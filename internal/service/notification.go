package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/Payphone-Digital/socialhub/internal/constants"
	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/Payphone-Digital/socialhub/pkg/circuit"
	ctxutil "github.com/Payphone-Digital/socialhub/pkg/context"
	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/Payphone-Digital/socialhub/pkg/mailer"
)

//go:embed templates/*.tmpl
var mailTemplates embed.FS

const (
	subjectConfirmation = "Confirm your email address"
	subjectWelcome      = "Welcome! Your account is ready"
)

var welcomeNextSteps = []string{
	"Complete your profile with a photo and bio",
	"Find and follow interesting people",
	"Share your first post",
	"Join conversations and connect with others",
}

type NotifierConfig struct {
	AppName            string
	From               mailer.Address
	APIBaseURL         string
	FrontendBaseURL    string
	ConfirmationWindow time.Duration
	// SendTimeout bounds one provider call
	SendTimeout time.Duration
}

// Notifier renders and sends account mails. Calls go through a circuit
// breaker so a dead provider fails fast instead of stalling requests.
type Notifier struct {
	mailer  mailer.Mailer
	breaker *circuit.Breaker
	cfg     NotifierConfig
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

type mailData struct {
	AppName          string
	Name             string
	Link             string
	HelpLink         string
	ExpiresInMinutes int
	NextSteps        []string
}

func NewNotifier(m mailer.Mailer, breaker *circuit.Breaker, cfg NotifierConfig) (*Notifier, error) {
	if cfg.ConfirmationWindow <= 0 {
		cfg.ConfirmationWindow = constants.ConfirmationWindow
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.AppName == "" {
		cfg.AppName = cfg.From.Name
	}

	html, err := htmltemplate.New("mail").Funcs(sprig.HtmlFuncMap()).ParseFS(mailTemplates, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html mail templates: %w", err)
	}
	text, err := texttemplate.New("mail").Funcs(sprig.TxtFuncMap()).ParseFS(mailTemplates, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text mail templates: %w", err)
	}

	return &Notifier{mailer: m, breaker: breaker, cfg: cfg, html: html, text: text}, nil
}

// ConfirmationLink is the URL mailed to a pending registration
func (n *Notifier) ConfirmationLink(pendingID string) string {
	return strings.TrimRight(n.cfg.APIBaseURL, "/") + constants.ConfirmEmailPath + "?user_id=" + url.QueryEscape(pendingID)
}

func (n *Notifier) SendConfirmation(ctx context.Context, pending *model.UnconfirmedUser) error {
	ctx = ctxutil.WithFunction(ctx, moduleName, "SendConfirmation")

	data := mailData{
		AppName:          n.cfg.AppName,
		Name:             pending.Name,
		Link:             n.ConfirmationLink(pending.ID),
		ExpiresInMinutes: int(n.cfg.ConfirmationWindow / time.Minute),
	}

	return n.send(ctx, "confirmation", subjectConfirmation, mailer.Address{Name: pending.Name, Email: pending.Email}, data)
}

func (n *Notifier) SendWelcome(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithFunction(ctx, moduleName, "SendWelcome")

	base := strings.TrimRight(n.cfg.FrontendBaseURL, "/")
	data := mailData{
		AppName:   n.cfg.AppName,
		Name:      user.Name,
		Link:      base + constants.FrontendPathLogin,
		HelpLink:  base + constants.FrontendPathHelp,
		NextSteps: welcomeNextSteps,
	}

	return n.send(ctx, "welcome", subjectWelcome, mailer.Address{Name: user.Name, Email: user.Email}, data)
}

// BreakerStats reports the state of the mail circuit
func (n *Notifier) BreakerStats() circuit.Stats {
	return n.breaker.Stats()
}

func (n *Notifier) send(ctx context.Context, tmpl, subject string, to mailer.Address, data mailData) error {
	start := time.Now()

	html, text, err := n.render(tmpl, data)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to render mail").
			String("template", tmpl).
			Err(err).
			Log()
		return err
	}

	msg := mailer.Message{From: n.cfg.From, To: to, Subject: subject, HTML: html, Text: text}

	var delivery mailer.Delivery
	err = n.breaker.Execute(ctx, func(ctx context.Context) error {
		sendCtx, cancel := context.WithTimeout(ctx, n.cfg.SendTimeout)
		defer cancel()

		var sendErr error
		delivery, sendErr = n.mailer.Send(sendCtx, msg)
		return sendErr
	})
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to send mail").
			String("template", tmpl).
			String("to", to.Email).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Mail sent").
		String("template", tmpl).
		String("to", to.Email).
		String("provider", delivery.Provider).
		String("message_id", delivery.MessageID).
		Duration(time.Since(start)).
		Log()

	return nil
}

func (n *Notifier) render(name string, data mailData) (string, string, error) {
	var html, text bytes.Buffer

	if err := n.html.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	if err := n.text.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", name, err)
	}

	return html.String(), text.String(), nil
}
