package interceptor

import (
	"context"
	"testing"

	"github.com/mcp-guardian/guardian/pkg/mcp"
)

func TestFilter_MatchAndNonMatchActions(t *testing.T) {
	f := NewFilter(MessageTypeLogic{Token: "request"}, DropAction(), SendAction())

	reqAction, err := f.Intercept(context.Background(), mcp.Outbound, newMsg(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))
	if err != nil {
		t.Fatalf("Intercept request: %v", err)
	}
	if !reqAction.IsDrop() {
		t.Fatal("request should match and be dropped")
	}

	notif, err := f.Intercept(context.Background(), mcp.Outbound, newMsg(`{"jsonrpc":"2.0","method":"notifications/progress"}`))
	if err != nil {
		t.Fatalf("Intercept notification: %v", err)
	}
	if notif.IsDrop() {
		t.Fatal("notification should not match request logic, should be sent")
	}
}

func TestFilter_InterceptActionDelegates(t *testing.T) {
	delegated := false
	child := Func(func(ctx context.Context, dir mcp.Direction, msg mcp.Message) (mcp.Action, error) {
		delegated = true
		return mcp.Send(&msg), nil
	})
	f := NewFilter(DirectionLogic{Want: mcp.Outbound}, InterceptAction(child), SendAction())

	_, err := f.Intercept(context.Background(), mcp.Outbound, newMsg(`{"jsonrpc":"2.0","id":1,"method":"x"}`))
	if err != nil {
		t.Fatalf("Intercept: %v", err)
	}
	if !delegated {
		t.Fatal("matching InterceptAction must delegate to its child")
	}
}

func TestFilter_ResponseCachePopsAfterMethodLookup(t *testing.T) {
	f := NewFilter(RequestMethodLogic{Want: "tools/call"}, DropAction(), SendAction())

	// A request for tools/call passes through the cache on its way in...
	if _, err := f.Intercept(context.Background(), mcp.Outbound, newMsg(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`)); err != nil {
		t.Fatalf("Intercept request: %v", err)
	}

	// ...so its response is recognized as belonging to tools/call and dropped.
	action, err := f.Intercept(context.Background(), mcp.Inbound, newMsg(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	if err != nil {
		t.Fatalf("Intercept response: %v", err)
	}
	if !action.IsDrop() {
		t.Fatal("response to a cached tools/call request should match RequestMethodLogic")
	}

	if f.cache.Len() != 0 {
		t.Fatalf("cache should be empty after the response popped its entry, got %d", f.cache.Len())
	}
}

func TestFilter_ResponseWithoutIDErrors(t *testing.T) {
	f := NewFilter(MessageTypeLogic{Token: "response"}, SendAction(), SendAction())
	raw := []byte(`{"jsonrpc":"2.0","result":{}}`)
	msg := mcp.Classify(raw, mcp.Inbound)
	// Force a response-shaped Kind with no ID to exercise the guard.
	msg.Kind = mcp.ResponseSuccess
	if _, err := f.Intercept(context.Background(), mcp.Inbound, msg); err == nil {
		t.Fatal("expected an error for a response message lacking an id")
	}
}
