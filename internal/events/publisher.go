// internal/events/publisher.go

// Package events mirrors outbound worker messages onto NATS so other local
// processes can observe the photo pipeline without holding a websocket.
package events

import (
	"log"

	"github.com/nats-io/nats.go"
)

// Publisher mirrors outbound messages to a NATS subject. A nil Publisher is
// valid and publishes nothing.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher creates a publisher on the given subject. Returns nil when
// conn is nil so callers can wire the mirror unconditionally.
func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	if conn == nil {
		return nil
	}
	return &Publisher{conn: conn, subject: subject}
}

// Publish sends one encoded message. Publish failures are logged, never
// surfaced; the mirror is best-effort.
func (p *Publisher) Publish(data []byte) {
	if p == nil {
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		log.Printf("Failed to publish event to NATS: %v", err)
	}
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
