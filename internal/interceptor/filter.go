package interceptor

import (
	"context"
	"fmt"

	"github.com/mcp-guardian/guardian/internal/requestcache"
	"github.com/mcp-guardian/guardian/pkg/mcp"
)

// FilterAction is the literal-or-delegate action a Filter applies once
// its logic has been evaluated.
type FilterAction struct {
	kind      filterActionKind
	intercept Interceptor
}

type filterActionKind int

const (
	actionSend filterActionKind = iota
	actionDrop
	actionIntercept
)

// SendAction is the literal Send action.
func SendAction() FilterAction { return FilterAction{kind: actionSend} }

// DropAction is the literal Drop action.
func DropAction() FilterAction { return FilterAction{kind: actionDrop} }

// InterceptAction delegates to a child interceptor.
func InterceptAction(child Interceptor) FilterAction {
	return FilterAction{kind: actionIntercept, intercept: child}
}

// Filter evaluates Logic against (direction, message, cache) and applies
// MatchAction or NonMatchAction accordingly. It owns its
// request cache: every Request (either direction) is stored on the way in; every
// Response has its matching entry popped once, after the action is
// chosen, regardless of whether logic evaluation already peeked it.
type Filter struct {
	Logic          FilterLogic
	MatchAction    FilterAction
	NonMatchAction FilterAction
	cache          *requestcache.Cache
}

// NewFilter constructs a Filter with its own private request cache.
func NewFilter(logic FilterLogic, matchAction, nonMatchAction FilterAction) *Filter {
	return &Filter{
		Logic:          logic,
		MatchAction:    matchAction,
		NonMatchAction: nonMatchAction,
		cache:          requestcache.New(0),
	}
}

// Intercept implements Interceptor.
func (f *Filter) Intercept(ctx context.Context, dir mcp.Direction, msg mcp.Message) (mcp.Action, error) {
	// Step 1: cache outbound/inbound Requests keyed by id, for later
	// response-side method lookups.
	if msg.Kind == mcp.Request {
		if err := f.cache.Store(msg.Raw); err != nil {
			return mcp.Action{}, fmt.Errorf("filter: cache request: %w", err)
		}
	}

	// Step 2: evaluate logic against a non-destructive view of the cache.
	matched := f.Logic.Matches(dir, msg, f.cache)
	chosen := f.NonMatchAction
	if matched {
		chosen = f.MatchAction
	}

	// Step 3: pop the cache entry for a response, exactly once, after
	// action selection. Popping here rather than during logic evaluation
	// avoids consuming the entry before a sibling predicate (e.g. an And
	// with two RequestMethodLogic children) gets a chance to look it up.
	if msg.Kind.IsResponse() {
		if len(msg.ID) == 0 {
			return mcp.Action{}, fmt.Errorf("filter: response message has no id")
		}
		f.cache.Pop(msg.ID)
	}

	switch chosen.kind {
	case actionSend:
		return mcp.Send(&msg), nil
	case actionDrop:
		return mcp.Drop(), nil
	case actionIntercept:
		return chosen.intercept.Intercept(ctx, dir, msg)
	default:
		return mcp.Action{}, fmt.Errorf("filter: unknown action kind %d", chosen.kind)
	}
}
