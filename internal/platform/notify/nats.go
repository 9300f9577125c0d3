// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of [*nats.Conn] used by [NATSSender].
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSSender publishes notifications as JSON for an external mailer service.
type NATSSender struct {
	publisher Publisher
	subject   string
}

// NewNATSSender wraps an existing publisher.
func NewNATSSender(publisher Publisher, subject string) *NATSSender {
	return &NATSSender{publisher: publisher, subject: subject}
}

// ConnectNATS opens a broker connection with reconnect logging.
func ConnectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("toeic-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("nats_reconnected", slog.String("url", conn.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: failed to connect to nats: %w", err)
	}
	return conn, nil
}

// Send publishes message and waits for the server to acknowledge the flush.
func (sender *NATSSender) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("notify: failed to encode message: %w", err)
	}

	if err := sender.publisher.Publish(sender.subject, payload); err != nil {
		return fmt.Errorf("notify: nats publish failed: %w", err)
	}

	if err := sender.publisher.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("notify: nats flush failed: %w", err)
	}

	return nil
}
