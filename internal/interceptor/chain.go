package interceptor

import (
	"context"

	"github.com/mcp-guardian/guardian/pkg/mcp"
)

// Chain holds an ordered list of child interceptors: feed the message
// through child[0]; if it returns Send(m'), feed m' into child[1], and
// so on. Any Drop short-circuits the chain immediately -- later children
// are not invoked. An empty chain is Send-identity.
type Chain struct {
	children []Interceptor
}

// NewChain constructs a Chain over children, in order.
func NewChain(children ...Interceptor) *Chain {
	return &Chain{children: children}
}

// Intercept implements Interceptor.
func (c *Chain) Intercept(ctx context.Context, dir mcp.Direction, msg mcp.Message) (mcp.Action, error) {
	current := msg
	for _, child := range c.children {
		action, err := child.Intercept(ctx, dir, current)
		if err != nil {
			return mcp.Action{}, err
		}
		if action.IsDrop() {
			return mcp.Drop(), nil
		}
		current = *action.Message
	}
	return mcp.Send(&current), nil
}
