// Package mailer delivers transactional email through a pluggable provider.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

var ErrInvalidMessage = errors.New("invalid mail message")

type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}

type Message struct {
	From    Address
	To      Address
	Subject string
	HTML    string
	Text    string
}

// Validate checks the fields every provider needs
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.From.Email); err != nil {
		return fmt.Errorf("%w: sender: %v", ErrInvalidMessage, err)
	}
	if _, err := mail.ParseAddress(m.To.Email); err != nil {
		return fmt.Errorf("%w: recipient: %v", ErrInvalidMessage, err)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: empty subject", ErrInvalidMessage)
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}

// Delivery describes what the provider accepted
type Delivery struct {
	Provider   string
	MessageID  string
	StatusCode int
}

type Mailer interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}
