package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Bus wraps a NATS JetStream connection for publishing events.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// New creates a Bus connected to the provided NATS endpoint.
func New(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Bus{conn: nc, js: js}, nil
}

// Close drains and shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// EnsureStream creates the named stream over subjects unless it already exists.
func (b *Bus) EnsureStream(name string, subjects ...string) error {
	if b == nil {
		return errors.New("nil bus")
	}

	_, err := b.js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("bus: stream info %s: %w", name, err)
	}

	if _, err := b.js.AddStream(&nats.StreamConfig{Name: name, Subjects: subjects}); err != nil {
		return fmt.Errorf("bus: add stream %s: %w", name, err)
	}
	return nil
}

// Publish encodes v as JSON and publishes it to the given subject.
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(subj, data, nats.Context(ctx))
	return err
}
