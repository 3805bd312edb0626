package mailer

import (
	"context"
	"sync"

	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/google/uuid"
)

// LogMailer writes messages to the log instead of sending them. It keeps an
// outbox so local runs and tests can inspect what would have gone out.
type LogMailer struct {
	mu     sync.Mutex
	outbox []Message
}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) (Delivery, error) {
	if err := msg.Validate(); err != nil {
		return Delivery{}, err
	}

	m.mu.Lock()
	m.outbox = append(m.outbox, msg)
	m.mu.Unlock()

	id := uuid.NewString()
	logger.InfoWithContext(ctx, "Mail captured by log mailer").
		String("message_id", id).
		String("to", msg.To.Email).
		String("subject", msg.Subject).
		Log()

	return Delivery{Provider: "log", MessageID: id}, nil
}

// Sent returns a copy of every captured message
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.outbox))
	copy(out, m.outbox)
	return out
}
