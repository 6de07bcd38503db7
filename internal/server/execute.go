package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/cad-bridge/pkg/bridge"
	"github.com/morezero/cad-bridge/pkg/commsutil"
	"github.com/morezero/cad-bridge/pkg/db"
	"github.com/morezero/cad-bridge/pkg/events"
	"github.com/morezero/cad-bridge/pkg/protocol"
)

const executeLogPrefix = "server:execute"

// Transport names recorded in events and the journal.
const (
	TransportComms = "comms"
	TransportHTTP  = "http"
)

// completionTimeout bounds event publishing and journaling of one operation.
const completionTimeout = 5 * time.Second

// completion is what the bridge produced for one admitted request.
type completion struct {
	outcome bridge.Outcome
	elapsed time.Duration
}

// execute runs req on the bridge from the calling requester goroutine. The
// returned completion is nil when the request was rejected before reaching
// the bridge.
func (s *Server) execute(ctx context.Context, req *protocol.OperationRequest) (*protocol.OperationResponse, *completion) {
	if !s.sem.TryAcquire(1) {
		slog.Warn(fmt.Sprintf("%s - rejecting %s: %d requests in flight", executeLogPrefix, req.Operation, s.cfg.MaxConcurrentRequests))
		return protocol.ErrorResponse(req.ID, protocol.ErrorTypeOverloaded,
			fmt.Sprintf("bridge is at its limit of %d concurrent requests", s.cfg.MaxConcurrentRequests)), nil
	}
	defer s.sem.Release(1)

	if err := protocol.CheckCompatible(req.Protocol); err != nil {
		return protocol.ErrorResponse(req.ID, protocol.ErrorTypeIncompatible, err.Error()), nil
	}

	start := time.Now()
	outcome := s.bridge.IssueAndWait(ctx, req.Operation, bridge.Args(req.Args), req.Timeout(s.cfg.RequestTimeout))
	elapsed := time.Since(start)

	slog.Debug(fmt.Sprintf("%s - %s (%s) success=%t in %s", executeLogPrefix, req.Operation, req.ID, outcome.Success, elapsed))
	return protocol.FromOutcome(req.ID, outcome), &completion{outcome: outcome, elapsed: elapsed}
}

// complete publishes the completion event and appends the journal record.
// Failures are logged; the requester already has its response.
func (s *Server) complete(req *protocol.OperationRequest, transport string, c *completion) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	if s.cfg.PublishEvents {
		event := events.NewOperationCompletedEvent(req.ID, req.Operation, transport, c.outcome, c.elapsed)
		if err := s.publisher.PublishCompleted(ctx, event); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish completion of %s: %v", executeLogPrefix, req.Operation, err))
		}
	}

	if s.journal != nil {
		err := s.journal.Record(ctx, db.RecordParams{
			RequestID:    req.ID,
			Operation:    req.Operation,
			Transport:    transport,
			Success:      c.outcome.Success,
			ErrorType:    string(c.outcome.Kind),
			FailureKind:  c.outcome.FailureKind,
			ErrorMessage: c.outcome.Error,
			Args:         req.Args,
			Duration:     c.elapsed,
		})
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to journal %s: %v", executeLogPrefix, req.Operation, err))
		}
	}
}

// handleMessage serves one NATS request on its own requester goroutine.
func (s *Server) handleMessage(msg *comms.Msg) {
	req, err := protocol.ParseRequest(msg.Data)
	if err != nil {
		id := ""
		if req != nil {
			id = req.ID
		}
		slog.Warn(fmt.Sprintf("%s - invalid request on %s: %v", executeLogPrefix, msg.Subject, err))
		respond(msg, protocol.ErrorResponse(id, protocol.ErrorTypeInvalidRequest, err.Error()))
		return
	}

	resp, done := s.execute(context.Background(), req)
	respond(msg, resp)
	s.complete(req, TransportComms, done)
}

func respond(msg *comms.Msg, resp *protocol.OperationResponse) {
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", executeLogPrefix, err))
		data, _ = commsutil.EncodePayload(protocol.ErrorResponse(resp.ID, string(bridge.KindInternal), "response is not JSON-encodable"))
	}
	if msg.Reply == "" {
		slog.Debug(fmt.Sprintf("%s - request %s has no reply subject", executeLogPrefix, resp.ID))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to respond: %v", executeLogPrefix, err))
	}
}
