// Package events publishes account lifecycle events for other services.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Payphone-Digital/socialhub/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Envelope wraps every published payload
type Envelope struct {
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// NATSPublisher publishes JSON envelopes on a NATS connection. Subjects are
// namespaced with a prefix, e.g. "socialhub.auth.user.registered".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	now    func() time.Time
}

// Connect dials NATS with reconnects enabled
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WarnWithContext(context.Background(), "NATS disconnected").Err(err).Log()
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.InfoWithContext(context.Background(), "NATS reconnected").
				String("url", c.ConnectedUrl()).
				Log()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, now: time.Now}
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	full := Subject(p.prefix, subject)
	data, err := Encode(full, payload, p.now())
	if err != nil {
		return err
	}

	if err := p.conn.Publish(full, data); err != nil {
		return fmt.Errorf("publish %s: %w", full, err)
	}

	logger.DebugWithContext(ctx, "Event published").
		String("subject", full).
		Int("bytes", len(data)).
		Log()
	return nil
}

// Close drains pending messages before closing the connection
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Subject joins prefix and name with a dot, skipping an empty prefix
func Subject(prefix, name string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Encode renders the wire form of one event
func Encode(subject string, payload any, at time.Time) ([]byte, error) {
	if subject == "" {
		return nil, errors.New("event subject is empty")
	}
	data, err := json.Marshal(Envelope{Subject: subject, OccurredAt: at.UTC(), Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", subject, err)
	}
	return data, nil
}

// NopPublisher drops events. Used when NATS is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
