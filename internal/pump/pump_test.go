package pump

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mcp-guardian/guardian/internal/interceptor"
	"github.com/mcp-guardian/guardian/internal/telemetry"
	"github.com/mcp-guardian/guardian/pkg/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func passthrough() interceptor.Interceptor {
	return interceptor.Func(func(_ context.Context, _ mcp.Direction, msg mcp.Message) (mcp.Action, error) {
		return mcp.Send(&msg), nil
	})
}

// TestSession_CopyDirection_Forwards verifies a passthrough interceptor
// forwards each value byte-for-byte with a trailing newline.
func TestSession_CopyDirection_Forwards(t *testing.T) {
	src := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"ping","id":1}`)
	var dst bytes.Buffer

	s := &Session{Interceptor: passthrough(), Logger: discardLogger()}
	err := s.copyDirection(context.Background(), src, &dst, nil, mcp.Outbound, discardLogger())

	require.ErrorIs(t, err, io.EOF)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"ping","id":1}`, dst.String())
}

// TestSession_CopyDirection_Drops verifies a Drop action suppresses the
// message and increments the dropped-message counter.
func TestSession_CopyDirection_Drops(t *testing.T) {
	src := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"notifications/cancelled"}`)
	var dst bytes.Buffer

	dropAll := interceptor.Func(func(_ context.Context, _ mcp.Direction, _ mcp.Message) (mcp.Action, error) {
		return mcp.Drop(), nil
	})

	reg := telemetry.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	s := &Session{Interceptor: dropAll, Metrics: metrics, Logger: discardLogger()}
	err := s.copyDirection(context.Background(), src, &dst, nil, mcp.Outbound, discardLogger())

	require.ErrorIs(t, err, io.EOF)
	assert.Empty(t, dst.String())

	counter, err := metrics.MessagesDropped.GetMetricWithLabelValues("outbound")
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))
}

// TestSession_CopyDirection_FlipsBack verifies a synthesized response
// that flips Direction away from the read direction is written to
// flipBack rather than the normal downstream target (the ManualApproval
// denial case).
func TestSession_CopyDirection_FlipsBack(t *testing.T) {
	src := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"tools/call","id":7}`)
	var downstream, flipBack bytes.Buffer

	flip := interceptor.Func(func(_ context.Context, _ mcp.Direction, msg mcp.Message) (mcp.Action, error) {
		denial := mcp.Classify([]byte(`{"jsonrpc":"2.0","id":7,"result":{"isError":false}}`), mcp.Inbound)
		return mcp.Send(&denial), nil
	})

	s := &Session{Interceptor: flip, Logger: discardLogger()}
	err := s.copyDirection(context.Background(), src, &downstream, &flipBack, mcp.Outbound, discardLogger())

	require.ErrorIs(t, err, io.EOF)
	assert.Empty(t, downstream.String())
	assert.Contains(t, flipBack.String(), `"id":7`)
}

// TestSession_CopyDirection_SkipsMalformedValue verifies a syntactically
// invalid value on the wire is logged and skipped rather than ending the
// session, and that a well-formed value following it is still forwarded.
func TestSession_CopyDirection_SkipsMalformedValue(t *testing.T) {
	src := bytes.NewBufferString(`{bad value}{"jsonrpc":"2.0","method":"ping","id":1}`)
	var dst bytes.Buffer

	s := &Session{Interceptor: passthrough(), Logger: discardLogger()}
	err := s.copyDirection(context.Background(), src, &dst, nil, mcp.Outbound, discardLogger())

	require.ErrorIs(t, err, io.EOF)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"ping","id":1}`, dst.String())
}

// TestSession_CopyDirection_StopsOnContextCancel verifies the read loop
// never attempts a read once its context is already cancelled.
func TestSession_CopyDirection_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, w := io.Pipe()
	defer w.Close()
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Session{Interceptor: passthrough(), Logger: discardLogger()}
	err := s.copyDirection(ctx, r, io.Discard, nil, mcp.Outbound, discardLogger())

	assert.True(t, errors.Is(err, context.Canceled))
}

// TestSession_Run_EchoesThroughChildProcess spawns "cat" as the
// upstream server and verifies a value written on the host side is
// echoed back through the child and onto the host output stream, with
// a passthrough interceptor on both directions.
func TestSession_Run_EchoesThroughChildProcess(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hostIn, hostInW := io.Pipe()
	var hostOut bytes.Buffer
	hostOutDone := make(chan struct{})
	hostOutR, hostOutW := io.Pipe()
	go func() {
		defer close(hostOutDone)
		buf := make([]byte, 4096)
		for {
			n, err := hostOutR.Read(buf)
			hostOut.Write(buf[:n])
			if err != nil {
				return
			}
		}
	}()

	s := &Session{
		Command:     "cat",
		Interceptor: passthrough(),
		Logger:      discardLogger(),
		ServerName:  "test-server",
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx, hostIn, hostOutW) }()

	_, err := hostInW.Write([]byte(`{"jsonrpc":"2.0","method":"ping","id":1}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bytes.Contains(hostOut.Bytes(), []byte(`"method":"ping"`))
	}, 2*time.Second, 10*time.Millisecond, "expected echoed message on host output")

	require.NoError(t, hostInW.Close())
	cancel()

	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Run to return")
	}

	_ = hostOutW.Close()
	<-hostOutDone
}
