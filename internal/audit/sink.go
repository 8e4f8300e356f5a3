// Package audit is the structured sink the tenant guard reports through.
package audit

import (
	"context"

	"go.uber.org/zap/zapcore"
)

// Fields are the structured attributes of an audit entry.
type Fields map[string]any

// Event is one audit entry produced by the guard.
type Event struct {
	Level   zapcore.Level `json:"level"`
	Message string        `json:"message"`
	Fields  Fields        `json:"fields,omitempty"`
}

// Sink receives audit entries. Implementations must not panic and must not
// block the caller for I/O.
type Sink interface {
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)
	Error(ctx context.Context, msg string, fields Fields)
}

// Emit routes e to the matching Sink method.
func Emit(ctx context.Context, s Sink, e Event) {
	if s == nil {
		return
	}
	switch {
	case e.Level >= zapcore.ErrorLevel:
		s.Error(ctx, e.Message, e.Fields)
	case e.Level == zapcore.WarnLevel:
		s.Warn(ctx, e.Message, e.Fields)
	default:
		s.Info(ctx, e.Message, e.Fields)
	}
}

// EmitAll emits events in order.
func EmitAll(ctx context.Context, s Sink, events []Event) {
	for _, e := range events {
		Emit(ctx, s, e)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Info(context.Context, string, Fields)  {}
func (Nop) Warn(context.Context, string, Fields)  {}
func (Nop) Error(context.Context, string, Fields) {}

// Multi fans out to several sinks.
type Multi []Sink

func (m Multi) Info(ctx context.Context, msg string, fields Fields) {
	for _, s := range m {
		s.Info(ctx, msg, fields)
	}
}

func (m Multi) Warn(ctx context.Context, msg string, fields Fields) {
	for _, s := range m {
		s.Warn(ctx, msg, fields)
	}
}

func (m Multi) Error(ctx context.Context, msg string, fields Fields) {
	for _, s := range m {
		s.Error(ctx, msg, fields)
	}
}
