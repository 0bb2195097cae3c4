// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err with whatever structured context it carries. Errors
// built with oops contribute their code and context map as attributes;
// plain errors log as a single "error" attribute.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}
