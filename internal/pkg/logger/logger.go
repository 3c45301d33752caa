// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 设置全局 logger 的服务名，应在进程启动时调用一次。
func Init(serviceName string) {
	base = base.With().Str("service", serviceName).Logger()
}

// Logger 返回全局 logger。
func Logger() *zerolog.Logger {
	return &base
}

// Ctx 返回一个带有追踪信息的 logger。
// 如果 ctx 中存在有效的 Span，日志会自动附带 trace_id 和 span_id，
// 便于在 Jaeger 和日志系统之间互相跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return &base
	}
	l := base.With().
		Str("trace_id", spanCtx.TraceID().String()).
		Str("span_id", spanCtx.SpanID().String()).
		Logger()
	return &l
}
