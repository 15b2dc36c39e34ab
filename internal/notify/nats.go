package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/pranshuparmar/procalert/pkg/model"
)

// DefaultNATSSubject is the subject used when none is configured.
const DefaultNATSSubject = "procalert.alerts"

// NATSPublisher is the part of *nats.Conn used by NATS.
type NATSPublisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes notifications as JSON on a subject.
type NATS struct {
	conn    NATSPublisher
	subject string
	closer  func() error
}

// NewNATS publishes on subject through conn. The connection is not closed by
// Close.
func NewNATS(conn NATSPublisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATS{conn: conn, subject: subject}
}

// DialNATS connects to the server at url.
func DialNATS(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("procalert"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	n := NewNATS(conn, subject)
	n.closer = conn.Drain
	return n, nil
}

func (n *NATS) Name() string {
	return "nats"
}

func (n *NATS) Notify(ctx context.Context, msg model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", n.subject, err)
	}
	return nil
}

func (n *NATS) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
