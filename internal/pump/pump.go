// Package pump implements the bidirectional stdio proxy loop: it spawns
// the upstream MCP server as a subprocess, reads concatenated-JSON
// values from the host and from the server, runs each through the
// compiled interceptor tree, and forwards (or drops) the result.
//
// Ordering is strict per-direction FIFO: each direction is served by
// exactly one goroutine that processes messages one at a time, blocking
// on Intercept (which may itself block on manual approval) before
// reading the next value. Spawning a goroutine per message would let a
// slow Intercept call on an earlier message let a later message's
// response overtake it on the wire, reordering responses relative to
// the order they were produced -- pump deliberately never does that,
// processing each direction sequentially within its own loop instead.
package pump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcp-guardian/guardian/internal/interceptor"
	"github.com/mcp-guardian/guardian/internal/telemetry"
	"github.com/mcp-guardian/guardian/pkg/mcp"
)

// Session runs one proxied MCP server subprocess under a compiled
// interceptor tree.
type Session struct {
	// Command and Args launch the upstream MCP server.
	Command string
	Args    []string

	// Interceptor is the compiled root of the message-interceptor tree.
	// Required.
	Interceptor interceptor.Interceptor

	// Logger receives per-message debug lines and task-level errors.
	Logger *slog.Logger
	// Metrics, if non-nil, records message/drop counters.
	Metrics *telemetry.Metrics
	// Tracer, if non-nil, wraps the session in a span.
	Tracer trace.Tracer
	// ServerName identifies the session in logs and the span name.
	ServerName string
}

// Run starts the upstream subprocess and pumps messages between hostIn
// (the host's request stream, typically os.Stdin) and hostOut (the
// host's response stream, typically os.Stdout) until ctx is cancelled,
// either stream hits EOF, or the subprocess exits.
//
// Run blocks until completion. A child task failing is fatal for the
// whole session: the first error from either direction cancels the
// other and is returned once both have stopped.
func (s *Session) Run(ctx context.Context, hostIn io.Reader, hostOut io.Writer) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := s.Tracer
	if tracer == nil {
		tracer = telemetry.NoopTracer()
	}

	ctx, span := tracer.Start(ctx, "guardian.session",
		trace.WithAttributes(attribute.String("server_name", s.ServerName)))
	defer span.End()

	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	cmd.Stderr = os.Stderr

	childIn, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("pump: stdin pipe: %w", err)
	}
	childOut, err := cmd.StdoutPipe()
	if err != nil {
		_ = childIn.Close()
		return fmt.Errorf("pump: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("pump: start %s: %w", s.Command, err)
	}

	parentCtx := ctx
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// Outbound pump: host -> server. A synthesized response (e.g. a
	// ManualApproval denial) flips Direction to Inbound; that case is
	// written back to hostOut instead of forwarded to the child.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() { _ = childIn.Close() }()
		if err := s.copyDirection(ctx, hostIn, childIn, hostOut, mcp.Outbound, logger); err != nil {
			if !terminal(err) {
				errCh <- fmt.Errorf("host->server: %w", err)
			}
		}
	}()

	// Inbound pump: server -> host. No flip handling needed: nothing
	// ever turns a server message back into an "outbound" one.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.copyDirection(ctx, childOut, hostOut, nil, mcp.Inbound, logger); err != nil {
			if !terminal(err) {
				errCh <- fmt.Errorf("server->host: %w", err)
			}
		}
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var runErr error
	select {
	case <-done:
	case runErr = <-errCh:
		cancel()
		<-done
	}

	if waitErr := cmd.Wait(); waitErr != nil && parentCtx.Err() == nil {
		logger.Debug("upstream server exited", "error", waitErr)
	}

	if runErr != nil {
		span.SetStatus(codes.Error, runErr.Error())
		return runErr
	}
	if parentCtx.Err() != nil {
		return parentCtx.Err()
	}
	return nil
}

// copyDirection reads values from src, classifies and intercepts each
// one, and writes the result to dst -- except when flipBack is non-nil
// and the interceptor flips Direction away from dir, in which case the
// result is written to flipBack instead (the direction-flip case a
// synthesized denial response produces).
func (s *Session) copyDirection(ctx context.Context, src io.Reader, dst io.Writer, flipBack io.Writer, dir mcp.Direction, logger *slog.Logger) error {
	reader := mcp.NewValueReader(src)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			if errors.Is(err, mcp.ErrMalformedValue) {
				logger.Warn("skipping malformed JSON-RPC value", "direction", dir, "error", err)
				continue
			}
			return fmt.Errorf("decode: %w", err)
		}

		msg := mcp.Classify(raw, dir)

		action, err := s.Interceptor.Intercept(ctx, dir, msg)
		if err != nil {
			logger.Error("interceptor error", "direction", dir, "method", msg.Method, "error", err)
			continue
		}

		if action.IsDrop() {
			if s.Metrics != nil {
				s.Metrics.MessagesDropped.WithLabelValues(dir.String()).Inc()
			}
			continue
		}

		out := action.Message
		writeTo := dst
		if flipBack != nil && out.Direction != dir {
			writeTo = flipBack
		}

		if err := mcp.WriteValue(writeTo, out.Raw); err != nil {
			return fmt.Errorf("write: %w", err)
		}

		if s.Metrics != nil {
			s.Metrics.MessagesTotal.WithLabelValues(dir.String(), out.Kind.String()).Inc()
		}
		logger.Debug("forwarded message", "direction", dir, "kind", out.Kind.String(), "method", out.Method)
	}
}

func terminal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}
