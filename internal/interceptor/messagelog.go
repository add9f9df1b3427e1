package interceptor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcp-guardian/guardian/pkg/mcp"
)

// MessageLog always forwards the message unchanged, logging a structured
// record `{direction} | {kind-label} | {payload}` at the configured
// level. Throughput metrics are owned by the pump, which sees every
// direction/kind uniformly regardless of which interceptors a message
// passes through; MessageLog does not duplicate that counting.
type MessageLog struct {
	level  slog.Level
	logger *slog.Logger
}

// NewMessageLog creates a MessageLog interceptor logging at level via
// logger.
func NewMessageLog(level slog.Level, logger *slog.Logger) *MessageLog {
	return &MessageLog{level: level, logger: logger}
}

// Intercept implements Interceptor.
func (l *MessageLog) Intercept(ctx context.Context, dir mcp.Direction, msg mcp.Message) (mcp.Action, error) {
	l.logger.Log(ctx, l.level, fmt.Sprintf("%s | %s | %s", dir.String(), msg.Kind.String(), msg.Raw),
		"direction", dir.String(),
		"kind", msg.Kind.String(),
		"payload", string(msg.Raw),
	)
	return mcp.Send(&msg), nil
}
