// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package notify delivers outbound messages (password reset links) to users.

The package exposes a single [Sender] contract with three transports:

  - SMTPSender: direct delivery through a mail relay (wneessen/go-mail).
  - NATSSender: publishes the message for a downstream mailer (nats.go).
  - LogSender: writes the message to the structured log (development).

Every call is bounded by a caller-supplied timeout through [SendWithTimeout];
a deadline hit surfaces as a retryable UpstreamTimeout error.
*/
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/taibuivan/toeic/internal/platform/apperr"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

// Message is one outbound notification.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html"`
	TextBody string `json:"text"`
	// Kind tags the message for downstream consumers (e.g. "reset_password").
	Kind string `json:"kind"`
}

// Sender delivers a [Message].
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// # Delivery

// SendWithTimeout runs sender.Send under a deadline derived from ctx.
//
// Returns:
//   - apperr.UpstreamTimeout when the deadline is hit
//   - the transport error otherwise
func SendWithTimeout(ctx context.Context, sender Sender, message Message, timeout time.Duration) error {
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := sender.Send(sendCtx, message)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
		return apperr.UpstreamTimeout("Notification service", err)
	}

	return fmt.Errorf("notify_send_failed: %w", err)
}

// # Templates

// ResetPasswordData feeds the reset_password templates.
type ResetPasswordData struct {
	Name      string
	Link      string
	ExpiresIn string
}

// ResetPasswordMessage renders the password reset email for to.
func ResetPasswordMessage(to string, data ResetPasswordData) (Message, error) {
	var html, text bytes.Buffer

	if err := htmlTemplates.ExecuteTemplate(&html, "reset_password.html", data); err != nil {
		return Message{}, fmt.Errorf("notify_render_html_failed: %w", err)
	}

	if err := textTemplates.ExecuteTemplate(&text, "reset_password.txt", data); err != nil {
		return Message{}, fmt.Errorf("notify_render_text_failed: %w", err)
	}

	return Message{
		To:       to,
		Subject:  "Reset your password",
		HTMLBody: html.String(),
		TextBody: text.String(),
		Kind:     "reset_password",
	}, nil
}
