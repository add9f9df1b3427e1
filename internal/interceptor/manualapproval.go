package interceptor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-guardian/guardian/internal/approval"
	"github.com/mcp-guardian/guardian/internal/telemetry"
	"github.com/mcp-guardian/guardian/pkg/mcp"
)

// pollInterval is the inter-poll delay while waiting on an approval
// decision. Not a contract: any mechanism that yields between checks is
// acceptable, this just uses a ticker.
const pollInterval = 1 * time.Second

// ManualApproval escalates every message it sees to a human operator via
// the file-system approval protocol. The operator approves or denies by
// renaming the written file between the store's three directories;
// ManualApproval only ever writes into pending/ and polls for the rename.
type ManualApproval struct {
	serverName string
	store      *approval.Store
	logger     *slog.Logger
	metrics    *telemetry.Metrics
	tracer     telemetry.Tracer
}

// NewManualApproval creates a ManualApproval interceptor. serverName is
// used as the first component of every approval id,
// "{server-name}_{direction}_{fresh-uuid-v4}"; the pending file is named
// "{direction}_{approval-id}".
func NewManualApproval(serverName string, store *approval.Store, logger *slog.Logger, metrics *telemetry.Metrics, tracer telemetry.Tracer) *ManualApproval {
	return &ManualApproval{
		serverName: serverName,
		store:      store,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// Intercept implements Interceptor.
func (a *ManualApproval) Intercept(ctx context.Context, dir mcp.Direction, msg mcp.Message) (mcp.Action, error) {
	approvalID := fmt.Sprintf("%s_%s_%s", a.serverName, dir.String(), uuid.New().String())
	filename := fmt.Sprintf("%s_%s", dir.String(), approvalID)

	ctx, span := a.tracer.Start(ctx, "approval.wait")
	defer span.End()

	if err := a.store.WritePending(filename, msg.Raw); err != nil {
		return mcp.Action{}, fmt.Errorf("manualapproval: write pending: %w", err)
	}

	a.logger.Info("message escalated for manual approval",
		"approval_id", approvalID,
		"direction", dir.String(),
		"kind", msg.Kind.String(),
	)

	start := time.Now()
	if a.metrics != nil {
		a.metrics.ApprovalsPending.Inc()
		defer a.metrics.ApprovalsPending.Dec()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		status := a.store.StatusOf(filename)
		switch status {
		case approval.Pending:
			// keep waiting
		case approval.Approved:
			a.recordWait(start, "approved")
			a.logger.Info("manual approval granted", "approval_id", approvalID)
			return mcp.Send(&msg), nil
		case approval.Denied, approval.Unknown:
			a.recordWait(start, "denied")
			a.logger.Info("manual approval denied", "approval_id", approvalID, "status", status.String())
			return a.synthesizeDenial(msg)
		}

		select {
		case <-ctx.Done():
			// Cancellation (session teardown): abandon waiting. The
			// pending file is left on disk as a stale artifact for an
			// operator or cleanup job to remove later.
			return mcp.Drop(), nil
		case <-ticker.C:
		}
	}
}

func (a *ManualApproval) recordWait(start time.Time, outcome string) {
	if a.metrics == nil {
		return
	}
	a.metrics.ApprovalWaitSecs.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// synthesizeDenial builds a successful JSON-RPC response carrying an
// isError:false content block with the denial text, echoing the
// original request's id.
func (a *ManualApproval) synthesizeDenial(msg mcp.Message) (mcp.Action, error) {
	if len(msg.ID) == 0 {
		return mcp.Action{}, fmt.Errorf("manualapproval: message did not contain an id")
	}

	type textContent struct {
		Text string `json:"text"`
		Type string `json:"type"`
	}
	type result struct {
		Content []textContent `json:"content"`
		IsError bool          `json:"isError"`
	}
	type response struct {
		ID      json.RawMessage `json:"id"`
		JSONRPC string          `json:"jsonrpc"`
		Result  result          `json:"result"`
	}

	raw, err := json.Marshal(response{
		ID:      msg.ID,
		JSONRPC: "2.0",
		Result: result{
			Content: []textContent{{Text: "Access approval was denied.", Type: "text"}},
			IsError: false,
		},
	})
	if err != nil {
		return mcp.Action{}, fmt.Errorf("manualapproval: marshal denial response: %w", err)
	}

	denied := mcp.Classify(raw, mcp.Inbound)
	return mcp.Send(&denied), nil
}
