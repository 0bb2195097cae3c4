// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account

import (
	"context"
	"log/slog"
)

// Template keys handed to the mail collaborator. Rendering and transport
// are external; the core only decides that a notification must go out and
// with which template.
const (
	MailTemplateResetRequest    = "reset-request"
	MailTemplatePasswordChanged = "password-changed"
)

// MailMessage is the payload handed to the Mailer.
type MailMessage struct {
	To          string
	TemplateKey string
	Params      map[string]string
}

// Mailer delivers notification mail. Sends are fire-and-forget from the
// core's perspective: a delivery failure is logged by the caller and never
// rolls back the state change that triggered it.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// LogMailer is a Mailer that records sends via slog instead of delivering
// them. Used in development and as the default when no transport is wired.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger falls back to slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message instead of delivering it. Token-bearing params are
// logged only at debug level.
func (m *LogMailer) Send(ctx context.Context, msg MailMessage) error {
	m.logger.InfoContext(ctx, "mail send",
		"to", msg.To,
		"template", msg.TemplateKey,
	)
	m.logger.DebugContext(ctx, "mail params", "params", msg.Params)
	return nil
}

// Compile-time interface check.
var _ Mailer = (*LogMailer)(nil)
