package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Payphone-Digital/socialhub/internal/model"
	"github.com/Payphone-Digital/socialhub/pkg/circuit"
	"github.com/Payphone-Digital/socialhub/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingMailer struct{ calls int }

func (m *failingMailer) Send(context.Context, mailer.Message) (mailer.Delivery, error) {
	m.calls++
	return mailer.Delivery{}, errors.New("provider down")
}

func testNotifierConfig() NotifierConfig {
	return NotifierConfig{
		From:               mailer.Address{Name: "Social Media App", Email: "noreply@socialmediaapp.com"},
		APIBaseURL:         "http://api.test/",
		FrontendBaseURL:    "http://app.test",
		ConfirmationWindow: 15 * time.Minute,
	}
}

func TestNotifier_SendConfirmation(t *testing.T) {
	outbox := mailer.NewLogMailer()
	n, err := NewNotifier(outbox, circuit.NewBreaker("mail", circuit.DefaultConfig()), testNotifierConfig())
	require.NoError(t, err)

	pending := &model.UnconfirmedUser{ID: "0b6f1c1e-4a4e-4c1e-9b7a-3d7c9c1b2a10", Email: "ann@example.com", Name: "Ann"}
	require.NoError(t, n.SendConfirmation(context.Background(), pending))

	sent := outbox.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]

	link := "http://api.test/api/auth/confirm-email?user_id=0b6f1c1e-4a4e-4c1e-9b7a-3d7c9c1b2a10"
	assert.Equal(t, link, n.ConfirmationLink(pending.ID))
	assert.Equal(t, "Confirm your email address", msg.Subject)
	assert.Equal(t, "ann@example.com", msg.To.Email)
	assert.Equal(t, "noreply@socialmediaapp.com", msg.From.Email)
	assert.Contains(t, msg.HTML, link)
	assert.Contains(t, msg.HTML, "Hi Ann,")
	assert.Contains(t, msg.Text, link)
	assert.Contains(t, msg.Text, "expire in 15 minutes")
}

func TestNotifier_SendWelcome(t *testing.T) {
	outbox := mailer.NewLogMailer()
	n, err := NewNotifier(outbox, circuit.NewBreaker("mail", circuit.DefaultConfig()), testNotifierConfig())
	require.NoError(t, err)

	require.NoError(t, n.SendWelcome(context.Background(), &model.User{Email: "ann@example.com", Name: "Ann"}))

	sent := outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Welcome! Your account is ready", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "http://app.test/login")
	assert.Contains(t, sent[0].HTML, "http://app.test/help")
	assert.Contains(t, sent[0].Text, "Share your first post")
}

func TestNotifier_BreakerStopsCallingDeadProvider(t *testing.T) {
	m := &failingMailer{}
	breaker := circuit.NewBreaker("mail", circuit.Config{Threshold: 2, Timeout: time.Hour})
	n, err := NewNotifier(m, breaker, testNotifierConfig())
	require.NoError(t, err)

	user := &model.User{Email: "ann@example.com", Name: "Ann"}
	for i := 0; i < 2; i++ {
		assert.Error(t, n.SendWelcome(context.Background(), user))
	}

	err = n.SendWelcome(context.Background(), user)
	assert.ErrorIs(t, err, circuit.ErrCircuitOpen)
	assert.Equal(t, 2, m.calls)
	assert.Equal(t, "OPEN", n.BreakerStats().State)
}
