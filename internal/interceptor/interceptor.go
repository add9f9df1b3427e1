// Package interceptor implements the composable message-interceptor
// tree: Chain, Filter (with its FilterLogic predicate tree), MessageLog,
// and ManualApproval.
package interceptor

import (
	"context"

	"github.com/mcp-guardian/guardian/pkg/mcp"
)

// Interceptor is the single capability every node in the tree exposes.
// Intercept may suspend (block on I/O, polling, or approval) and must be
// safe to call concurrently from multiple tasks on the same instance --
// shared state (a Filter's request cache, an approval store) must be
// internally synchronized.
type Interceptor interface {
	Intercept(ctx context.Context, dir mcp.Direction, msg mcp.Message) (mcp.Action, error)
}

// Func adapts a plain function to the Interceptor interface.
type Func func(ctx context.Context, dir mcp.Direction, msg mcp.Message) (mcp.Action, error)

// Intercept calls f.
func (f Func) Intercept(ctx context.Context, dir mcp.Direction, msg mcp.Message) (mcp.Action, error) {
	return f(ctx, dir, msg)
}
