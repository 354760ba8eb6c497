// Package events publishes notifications about newly inserted breach
// records to NATS so downstream consumers can react without polling the
// central store. Publishing is advisory: a failed publish is logged and
// counted but never changes the outcome of an insert.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const connectTimeout = 5 * time.Second

// Publisher sends record-inserted events on a single subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

func NewPublisher(url, subject string) (*Publisher, error) {
	if subject == "" {
		return nil, fmt.Errorf("events subject is not set")
	}

	nc, err := nats.Connect(url,
		nats.Name("breach-comb"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{nc: nc, subject: subject}, nil
}

// PublishInserted emits one event per freshly inserted record. The payload
// is the stored row as JSON; portal and hash ride in headers so consumers
// can filter without decoding the body.
func (p *Publisher) PublishInserted(ctx context.Context, portalID, hash string, payload []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set("x-portal-id", portalID)
	msg.Header.Set("x-hash", hash)
	msg.Data = payload

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish inserted event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}
