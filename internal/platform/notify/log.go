// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the structured log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a [LogSender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the envelope of message. The body is logged at debug level only
// because it carries the reset link.
func (sender *LogSender) Send(ctx context.Context, message Message) error {
	sender.logger.InfoContext(ctx, "notify_message_logged",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("kind", message.Kind),
	)
	sender.logger.DebugContext(ctx, "notify_message_body", slog.String("text", message.TextBody))
	return nil
}
