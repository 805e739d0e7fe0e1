package events

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/deep3/social/config"
)

// NATSClient publishes events as NATS subjects.
type NATSClient struct {
	conn *nats.Conn
}

// NewNATSClient connects to the configured NATS server.
func NewNATSClient(cfg config.NATSConfig) (*NATSClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("nats url is required")
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("social-api"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &NATSClient{conn: conn}, nil
}

// Publish sends data on the subject named by channel.
func (n *NATSClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("nats channel is required")
	}
	id := uuid.NewString()
	msg := nats.NewMsg(channel)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, id)
	for k, v := range attrs {
		msg.Header.Set(k, v)
	}
	if err := n.conn.PublishMsg(msg); err != nil {
		return "", err
	}
	return id, nil
}

// Subscribe consumes the subject until ctx is done.
func (n *NATSClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("nats channel is required")
	}
	sub, err := n.conn.Subscribe(channel, func(m *nats.Msg) {
		attrs := make(map[string]string, len(m.Header))
		for k := range m.Header {
			attrs[k] = m.Header.Get(k)
		}
		_ = handler(ctx, Message{ID: m.Header.Get(nats.MsgIdHdr), Data: m.Data, Attributes: attrs})
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

// Close drains pending messages and closes the connection.
func (n *NATSClient) Close() error {
	return n.conn.Drain()
}
