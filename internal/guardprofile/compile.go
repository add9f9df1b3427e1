package guardprofile

import (
	"fmt"
	"log/slog"

	"github.com/mcp-guardian/guardian/internal/approval"
	"github.com/mcp-guardian/guardian/internal/interceptor"
	"github.com/mcp-guardian/guardian/internal/telemetry"
	"github.com/mcp-guardian/guardian/pkg/mcp"
)

// CompileDeps carries the runtime collaborators a compiled interceptor
// tree needs: the ManualApproval leaves need an approval store, the
// MessageLog leaves need a logger, and the ManualApproval leaves
// optionally report to the ambient telemetry stack.
type CompileDeps struct {
	ServerName    string
	ApprovalStore *approval.Store
	Logger        *slog.Logger
	Metrics       *telemetry.Metrics
	Tracer        telemetry.Tracer
}

// Compile walks doc bottom-up and constructs a concrete interceptor
// tree. Unknown interceptor-kind tags and unknown direction/message-type
// string tokens are rejected as configuration errors; recursion
// termination is guaranteed by the finite size of doc.
func Compile(doc Document, deps CompileDeps) (interceptor.Interceptor, error) {
	return compileInterceptor(doc.PrimaryMessageInterceptor, deps)
}

func compileInterceptor(cfg InterceptorConfig, deps CompileDeps) (interceptor.Interceptor, error) {
	switch cfg.Type {
	case "Chain":
		children := make([]interceptor.Interceptor, 0, len(cfg.Chain))
		for _, childCfg := range cfg.Chain {
			child, err := compileInterceptor(childCfg, deps)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return interceptor.NewChain(children...), nil

	case "Filter":
		if cfg.FilterLogic == nil {
			return nil, fmt.Errorf("guardprofile: Filter requires filter_logic")
		}
		if cfg.MatchAction == nil || cfg.NonMatchAction == nil {
			return nil, fmt.Errorf("guardprofile: Filter requires match_action and non_match_action")
		}

		logic, err := compileFilterLogic(*cfg.FilterLogic)
		if err != nil {
			return nil, err
		}
		matchAction, err := compileFilterAction(*cfg.MatchAction, deps)
		if err != nil {
			return nil, err
		}
		nonMatchAction, err := compileFilterAction(*cfg.NonMatchAction, deps)
		if err != nil {
			return nil, err
		}
		return interceptor.NewFilter(logic, matchAction, nonMatchAction), nil

	case "MessageLog":
		level, err := parseLogLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		return interceptor.NewMessageLog(level, deps.Logger), nil

	case "ManualApproval":
		if deps.ApprovalStore == nil {
			return nil, fmt.Errorf("guardprofile: ManualApproval requires an approval store")
		}
		return interceptor.NewManualApproval(deps.ServerName, deps.ApprovalStore, deps.Logger, deps.Metrics, deps.Tracer), nil

	default:
		return nil, fmt.Errorf("guardprofile: unknown interceptor kind %q", cfg.Type)
	}
}

func compileFilterAction(cfg FilterActionConfig, deps CompileDeps) (interceptor.FilterAction, error) {
	if cfg.Intercept != nil {
		child, err := compileInterceptor(*cfg.Intercept, deps)
		if err != nil {
			return interceptor.FilterAction{}, err
		}
		return interceptor.InterceptAction(child), nil
	}

	switch cfg.Literal {
	case "send":
		return interceptor.SendAction(), nil
	case "drop":
		return interceptor.DropAction(), nil
	default:
		return interceptor.FilterAction{}, fmt.Errorf("guardprofile: unknown filter action %q", cfg.Literal)
	}
}

func compileFilterLogic(cfg FilterLogicConfig) (interceptor.FilterLogic, error) {
	switch cfg.Type {
	case "Direction":
		dir, ok := mcp.ParseDirection(cfg.Direction)
		if !ok {
			return nil, fmt.Errorf("guardprofile: unknown direction token %q", cfg.Direction)
		}
		return interceptor.DirectionLogic{Want: dir}, nil

	case "MessageType":
		if !validMessageTypeToken(cfg.MessageType) {
			return nil, fmt.Errorf("guardprofile: unknown message_type token %q", cfg.MessageType)
		}
		return interceptor.MessageTypeLogic{Token: cfg.MessageType}, nil

	case "RequestMethod":
		if cfg.RequestMethod == "" {
			return nil, fmt.Errorf("guardprofile: RequestMethod requires request_method")
		}
		return interceptor.RequestMethodLogic{Want: cfg.RequestMethod}, nil

	case "And":
		children, err := compileFilterLogicChildren(cfg.Children)
		if err != nil {
			return nil, err
		}
		return interceptor.AndLogic{Children: children}, nil

	case "Or":
		children, err := compileFilterLogicChildren(cfg.Children)
		if err != nil {
			return nil, err
		}
		return interceptor.OrLogic{Children: children}, nil

	case "Not":
		if cfg.Child == nil {
			return nil, fmt.Errorf("guardprofile: Not requires child")
		}
		child, err := compileFilterLogic(*cfg.Child)
		if err != nil {
			return nil, err
		}
		return interceptor.NotLogic{Child: child}, nil

	case "Expression":
		if cfg.CEL == "" {
			return nil, fmt.Errorf("guardprofile: Expression requires cel")
		}
		return interceptor.NewExpressionLogic(cfg.CEL)

	default:
		return nil, fmt.Errorf("guardprofile: unknown filter_logic kind %q", cfg.Type)
	}
}

func compileFilterLogicChildren(cfgs []FilterLogicConfig) ([]interceptor.FilterLogic, error) {
	children := make([]interceptor.FilterLogic, 0, len(cfgs))
	for _, c := range cfgs {
		logic, err := compileFilterLogic(c)
		if err != nil {
			return nil, err
		}
		children = append(children, logic)
	}
	return children, nil
}

func validMessageTypeToken(token string) bool {
	switch token {
	case "request", "response_success", "response_failure", "response", "notification", "unknown":
		return true
	default:
		return false
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "Error", "error":
		return slog.LevelError, nil
	case "Warn", "warn":
		return slog.LevelWarn, nil
	case "Info", "info":
		return slog.LevelInfo, nil
	case "Debug", "debug":
		return slog.LevelDebug, nil
	case "Trace", "trace":
		// slog has no Trace level; map to a level below Debug so Trace
		// still sorts as more verbose than Debug.
		return slog.LevelDebug - 4, nil
	default:
		return 0, fmt.Errorf("guardprofile: unknown log_level %q", s)
	}
}
