// Copyright 2022 The forwarder Authors. All rights reserved.
// Use of this source code is governed by a MPL
// license that can be found in the LICENSE file.

package log

import (
	"context"
	"os"
)

// Logger is the printf-style logger accepted by legacy callers.
type Logger interface {
	Errorf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// StructuredLogger is the structured, leveled logger used by the chain
// orchestrator and the CLI.
type StructuredLogger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)

	ErrorContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	DebugContext(ctx context.Context, msg string, args ...any)

	With(args ...any) StructuredLogger
}

const (
	DefaultFileFlags = os.O_WRONLY | os.O_APPEND | os.O_CREATE
	DefaultFileMode  = 0o644
)
