package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridMailer sends through the SendGrid v3 API
type SendGridMailer struct {
	apiKey string
	host   string
}

// NewSendGridMailer returns a mailer for the public API. host overrides the
// API base URL and may be empty.
func NewSendGridMailer(apiKey, host string) *SendGridMailer {
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	return &SendGridMailer{apiKey: apiKey, host: host}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) (Delivery, error) {
	if err := msg.Validate(); err != nil {
		return Delivery{}, err
	}

	v3 := sgmail.NewSingleEmail(
		sgmail.NewEmail(msg.From.Name, msg.From.Email),
		msg.Subject,
		sgmail.NewEmail(msg.To.Name, msg.To.Email),
		msg.Text,
		msg.HTML,
	)

	request := sendgrid.GetRequest(m.apiKey, sendGridEndpoint, m.host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(v3)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return Delivery{}, fmt.Errorf("sendgrid request failed: %w", err)
	}

	delivery := Delivery{Provider: "sendgrid", StatusCode: response.StatusCode}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		delivery.MessageID = ids[0]
	}

	if response.StatusCode >= 300 {
		return delivery, fmt.Errorf("sendgrid rejected message: status %d: %s", response.StatusCode, response.Body)
	}

	return delivery, nil
}
