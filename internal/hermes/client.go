package hermes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrPayloadTooLarge is returned when an event exceeds the server's
// max payload. Documents are sent inline, so large requests hit this.
var ErrPayloadTooLarge = errors.New("hermes: payload exceeds server limit")

type Client interface {
	Publish(subject string, data interface{}) error
	Subscribe(subject string, handler func(subject string, data []byte)) error
	Close()
}

// Nop discards every event. It stands in when no NATS URL is configured.
type Nop struct{}

func (Nop) Publish(string, interface{}) error            { return nil }
func (Nop) Subscribe(string, func(string, []byte)) error { return nil }
func (Nop) Close()                                       {}

type NATSClient struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewNATSClient(ctx context.Context, url string, logger *slog.Logger) (*NATSClient, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	c := &NATSClient{conn: nc, js: js, logger: logger}
	if err := c.ensureStream(ctx); err != nil {
		logger.Warn("failed to ensure stream", "error", err)
	}
	return c, nil
}

func (c *NATSClient) ensureStream(ctx context.Context) error {
	maxAge, _ := time.ParseDuration(StreamMaxAge)
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: StreamSubjects,
		MaxAge:   maxAge,
	})
	return err
}

// identified events carry a stable de-duplication ID.
type identified interface {
	MessageID() string
}

func (c *NATSClient) Publish(subject string, data interface{}) error {
	msg, err := newMsg(subject, data)
	if err != nil {
		return err
	}
	if limit := c.conn.MaxPayload(); limit > 0 && int64(len(msg.Data)) > limit {
		return fmt.Errorf("%w: %d bytes on %s, limit %d", ErrPayloadTooLarge, len(msg.Data), subject, limit)
	}
	return c.conn.PublishMsg(msg)
}

func newMsg(subject string, data interface{}) (*nats.Msg, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", subject, err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = payload
	if id, ok := data.(identified); ok && id.MessageID() != "" {
		msg.Header.Set(nats.MsgIdHdr, id.MessageID())
	}
	return msg, nil
}

// Subscribe delivers subject to handler. Analysis requests are split
// across the worker queue group; other subjects reach every subscriber.
func (c *NATSClient) Subscribe(subject string, handler func(string, []byte)) error {
	cb := func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	}
	var (
		sub *nats.Subscription
		err error
	)
	if IsWorkSubject(subject) {
		sub, err = c.conn.QueueSubscribe(subject, QueueGroup, cb)
	} else {
		sub, err = c.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return err
	}
	c.subs = append(c.subs, sub)
	return nil
}

func (c *NATSClient) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
