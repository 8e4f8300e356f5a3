package audit

import (
	"context"
	"sort"

	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"go.uber.org/zap"
)

// ZapSink writes audit entries to a zap logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink logs under the "tenant_guard" name of logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("tenant_guard")}
}

func (s *ZapSink) Info(ctx context.Context, msg string, fields Fields) {
	s.logger.Info(msg, s.fields(ctx, fields)...)
}

func (s *ZapSink) Warn(ctx context.Context, msg string, fields Fields) {
	s.logger.Warn(msg, s.fields(ctx, fields)...)
}

func (s *ZapSink) Error(ctx context.Context, msg string, fields Fields) {
	s.logger.Error(msg, s.fields(ctx, fields)...)
}

func (s *ZapSink) fields(ctx context.Context, fields Fields) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+4)
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}

	if tc, ok := tenancy.Current(ctx); ok {
		if _, set := fields["requestId"]; !set && tc.RequestID != "" {
			out = append(out, zap.String("requestId", tc.RequestID))
		}
		if _, set := fields["userId"]; !set && tc.UserID != "" {
			out = append(out, zap.String("userId", tc.UserID))
		}
		if _, set := fields["tenantId"]; !set && tc.HasTenant() {
			out = append(out, zap.String("tenantId", tc.Tenant()))
		}
		if _, set := fields["tenantSlug"]; !set && tc.TenantSlug != "" {
			out = append(out, zap.String("tenantSlug", tc.TenantSlug))
		}
	}
	return out
}
