package interceptor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/mcp-guardian/guardian/internal/requestcache"
	"github.com/mcp-guardian/guardian/pkg/mcp"
)

// expressionCostLimit and expressionEvalTimeout bound a guard-profile
// author's CEL expression so a pathological one can't stall or exhaust
// the pump.
const (
	expressionCostLimit   = 100_000
	expressionEvalTimeout = 2 * time.Second
)

// FilterLogic is the recursive predicate tree evaluated by Filter.
// Matches is called with a non-destructive peek view of the request
// cache -- RequestMethod never pops. The single destructive Pop happens
// once, in Filter.Intercept, after the action has been chosen.
type FilterLogic interface {
	Matches(dir mcp.Direction, msg mcp.Message, cache *requestcache.Cache) bool
}

// DirectionLogic matches when the message's direction equals Want.
type DirectionLogic struct{ Want mcp.Direction }

// Matches implements FilterLogic.
func (l DirectionLogic) Matches(dir mcp.Direction, _ mcp.Message, _ *requestcache.Cache) bool {
	return dir == l.Want
}

// messageTypeToken is the config-file vocabulary for MessageTypeLogic,
// including the "response" shorthand for Or(ResponseSuccess, ResponseFailure).
type messageTypeToken string

const (
	tokenRequest         messageTypeToken = "request"
	tokenResponseSuccess messageTypeToken = "response_success"
	tokenResponseFailure messageTypeToken = "response_failure"
	tokenResponseAny     messageTypeToken = "response"
	tokenNotification    messageTypeToken = "notification"
	tokenUnknownMsgType  messageTypeToken = "unknown"
)

// MessageTypeLogic matches when the message's Kind is the one Token names, with the
// "response" token shorthand for either response kind.
type MessageTypeLogic struct{ Token string }

// Matches implements FilterLogic.
func (l MessageTypeLogic) Matches(_ mcp.Direction, msg mcp.Message, _ *requestcache.Cache) bool {
	switch messageTypeToken(l.Token) {
	case tokenRequest:
		return msg.Kind == mcp.Request
	case tokenResponseSuccess:
		return msg.Kind == mcp.ResponseSuccess
	case tokenResponseFailure:
		return msg.Kind == mcp.ResponseFailure
	case tokenResponseAny:
		return msg.Kind.IsResponse()
	case tokenNotification:
		return msg.Kind == mcp.Notification
	case tokenUnknownMsgType:
		return msg.Kind == mcp.Unknown
	default:
		return false
	}
}

// RequestMethodLogic matches a Request with Method == Want, or a
// Response whose matching cached Request (by id, peeked non-destructively)
// had Method == Want. False if the response has no id or no cache hit.
type RequestMethodLogic struct{ Want string }

// Matches implements FilterLogic.
func (l RequestMethodLogic) Matches(_ mcp.Direction, msg mcp.Message, cache *requestcache.Cache) bool {
	switch msg.Kind {
	case mcp.Request:
		return msg.Method == l.Want
	case mcp.ResponseSuccess, mcp.ResponseFailure:
		if len(msg.ID) == 0 {
			return false
		}
		req, ok := cache.Peek(msg.ID)
		if !ok {
			return false
		}
		peeked := mcp.Classify(req, msg.Direction)
		return peeked.Method == l.Want
	default:
		return false
	}
}

// AndLogic matches when every child matches (short-circuit).
type AndLogic struct{ Children []FilterLogic }

// Matches implements FilterLogic.
func (l AndLogic) Matches(dir mcp.Direction, msg mcp.Message, cache *requestcache.Cache) bool {
	for _, c := range l.Children {
		if !c.Matches(dir, msg, cache) {
			return false
		}
	}
	return true
}

// OrLogic matches when at least one child matches (short-circuit).
type OrLogic struct{ Children []FilterLogic }

// Matches implements FilterLogic.
func (l OrLogic) Matches(dir mcp.Direction, msg mcp.Message, cache *requestcache.Cache) bool {
	for _, c := range l.Children {
		if c.Matches(dir, msg, cache) {
			return true
		}
	}
	return false
}

// NotLogic negates Child.
type NotLogic struct{ Child FilterLogic }

// Matches implements FilterLogic.
func (l NotLogic) Matches(dir mcp.Direction, msg mcp.Message, cache *requestcache.Cache) bool {
	return !l.Child.Matches(dir, msg, cache)
}

// ExpressionLogic evaluates a pre-compiled CEL boolean expression against
// an activation exposing `direction`, `kind`, `method`, and `params`.
type ExpressionLogic struct {
	Source string
	prg    cel.Program
}

// NewExpressionLogic compiles src once at guard-profile-compile time.
func NewExpressionLogic(src string) (*ExpressionLogic, error) {
	env, err := cel.NewEnv(
		cel.Variable("direction", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("method", cel.StringType),
		cel.Variable("params", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("filterlogic: create CEL env: %w", err)
	}

	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filterlogic: compile CEL expression %q: %w", src, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filterlogic: CEL expression %q must return bool, got %s", src, ast.OutputType())
	}

	prg, err := env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(expressionCostLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("filterlogic: build CEL program for %q: %w", src, err)
	}

	return &ExpressionLogic{Source: src, prg: prg}, nil
}

// Matches implements FilterLogic. A CEL evaluation error (timeout, cost
// limit exceeded, runtime error) is treated as a non-match rather than
// propagated, so a bad expression degrades to "doesn't match" instead of
// taking down the proxy.
func (l *ExpressionLogic) Matches(dir mcp.Direction, msg mcp.Message, _ *requestcache.Cache) bool {
	var parsedParams map[string]any
	if msg.Kind == mcp.Request {
		var withParams struct {
			Params json.RawMessage `json:"params"`
		}
		if json.Unmarshal(msg.Raw, &withParams) == nil && len(withParams.Params) > 0 {
			_ = json.Unmarshal(withParams.Params, &parsedParams)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), expressionEvalTimeout)
	defer cancel()

	out, _, err := l.prg.ContextEval(ctx, map[string]any{
		"direction": dir.String(),
		"kind":      msg.Kind.String(),
		"method":    msg.Method,
		"params":    parsedParams,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
