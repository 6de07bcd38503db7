package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/cad-bridge/pkg/bridge"
	"github.com/morezero/cad-bridge/pkg/commsutil"
	"github.com/morezero/cad-bridge/pkg/db"
	"github.com/morezero/cad-bridge/pkg/ops"
	"github.com/morezero/cad-bridge/pkg/protocol"
)

const httpLogPrefix = "server:http"

// Request headers understood by POST /ops/{name}.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderProtocol  = "X-Bridge-Protocol"
)

const maxBodyBytes = 1 << 20

// HealthChecks reports the individual health probes.
type HealthChecks struct {
	Host    bool  `json:"host"`
	Journal *bool `json:"journal,omitempty"`
}

// HealthOutput is the /health response body.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Error     string       `json:"error,omitempty"`
	Timestamp string       `json:"timestamp"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/ops/", s.handleOperation())
	mux.HandleFunc("/openapi.json", s.handleOpenAPI())
	mux.HandleFunc("/journal", s.handleJournal())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", s.handleReady())
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	return mux
}

// Health round-trips a ping through the host main thread and pings the journal.
func (s *Server) Health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{Status: "healthy"}

	ping := s.bridge.IssueAndWait(ctx, ops.OpPing, nil, s.cfg.HealthCheckTimeout)
	out.Checks.Host = ping.Success
	if !ping.Success {
		out.Status = "unhealthy"
		out.Error = ping.Error
	}

	if s.journal != nil {
		ok := true
		if err := s.journal.Ping(ctx); err != nil {
			ok = false
			out.Status = "unhealthy"
			if out.Error == "" {
				out.Error = err.Error()
			}
		}
		out.Checks.Journal = &ok
	}

	out.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return out
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.Health(ctx)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.bridge.Running() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopped"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleOperation serves POST /ops/{name}; the body is the args object.
func (s *Server) handleOperation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/ops/")
		if name == "" || strings.Contains(name, "/") {
			http.NotFound(w, r)
			return
		}

		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeResponse(w, protocol.ErrorResponse(id, protocol.ErrorTypeInvalidRequest, fmt.Sprintf("failed to read body: %v", err)))
			return
		}
		args, err := commsutil.DecodeArgs(body)
		if err != nil {
			writeResponse(w, protocol.ErrorResponse(id, protocol.ErrorTypeInvalidRequest, err.Error()))
			return
		}

		req := &protocol.OperationRequest{
			ID:        id,
			Operation: name,
			Args:      args,
			Protocol:  r.Header.Get(HeaderProtocol),
		}
		if v := r.URL.Query().Get("timeoutMs"); v != "" {
			ms, err := strconv.Atoi(v)
			if err != nil || ms < 0 {
				writeResponse(w, protocol.ErrorResponse(id, protocol.ErrorTypeInvalidRequest, "timeoutMs must be a non-negative integer"))
				return
			}
			req.TimeoutMs = ms
		}

		resp, done := s.execute(r.Context(), req)
		writeResponse(w, resp)
		// The requester gets its reply before the event and journal writes.
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		s.complete(req, TransportHTTP, done)
	}
}

// handleJournal serves GET /journal?operation=&failures=&limit=.
func (s *Server) handleJournal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.journal == nil {
			http.Error(w, "operation journal is disabled", http.StatusNotFound)
			return
		}

		q := r.URL.Query()
		params := db.RecentParams{
			Operation:    q.Get("operation"),
			FailuresOnly: q.Get("failures") == "true",
		}
		if v := q.Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit < 0 {
				http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			params.Limit = limit
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		records, err := s.journal.Recent(ctx, params)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - journal query: %v", httpLogPrefix, err))
			http.Error(w, "journal query failed", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []db.OperationRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// statusFor maps a response to its HTTP status code.
func statusFor(resp *protocol.OperationResponse) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.ErrorType {
	case protocol.ErrorTypeInvalidRequest, protocol.ErrorTypeIncompatible:
		return http.StatusBadRequest
	case protocol.ErrorTypeOverloaded:
		return http.StatusServiceUnavailable
	case string(bridge.KindUnknownOperation):
		return http.StatusNotFound
	case string(bridge.KindTimeout):
		return http.StatusGatewayTimeout
	case string(bridge.KindHandlerFailure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeResponse(w http.ResponseWriter, resp *protocol.OperationResponse) {
	writeJSON(w, statusFor(resp), resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - response encode: %v", httpLogPrefix, err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	w.Write(data)
}
