// Package protocol defines the wire envelopes of the bridge transports.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/morezero/cad-bridge/pkg/bridge"
)

// Transport-level error types. They never come out of the bridge itself.
const (
	ErrorTypeInvalidRequest = "INVALID_REQUEST"
	ErrorTypeIncompatible   = "INCOMPATIBLE_PROTOCOL"
	ErrorTypeOverloaded     = "OVERLOADED"
)

// OperationRequest is the JSON envelope of an incoming operation.
type OperationRequest struct {
	ID        string                 `json:"id"`
	Operation string                 `json:"operation"`
	Args      map[string]interface{} `json:"args,omitempty"`
	Protocol  string                 `json:"protocol,omitempty"`
	TimeoutMs int                    `json:"timeoutMs,omitempty"`
}

// OperationResponse is the JSON envelope of an operation result.
type OperationResponse struct {
	ID          string      `json:"id,omitempty"`
	Success     bool        `json:"success"`
	Data        interface{} `json:"data,omitempty"`
	Error       string      `json:"error,omitempty"`
	ErrorType   string      `json:"error_type,omitempty"`
	FailureKind string      `json:"failure_kind,omitempty"`
}

// MarshalJSON always emits "data" on success and "error" plus "error_type"
// on failure, even when they are empty.
func (r OperationResponse) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			ID      string      `json:"id,omitempty"`
			Success bool        `json:"success"`
			Data    interface{} `json:"data"`
		}{r.ID, true, r.Data})
	}
	return json.Marshal(struct {
		ID          string `json:"id,omitempty"`
		Success     bool   `json:"success"`
		Error       string `json:"error"`
		ErrorType   string `json:"error_type"`
		FailureKind string `json:"failure_kind,omitempty"`
	}{r.ID, false, r.Error, r.ErrorType, r.FailureKind})
}

// ParseRequest decodes and validates an operation envelope.
func ParseRequest(data []byte) (*OperationRequest, error) {
	var req OperationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("protocol:envelope - malformed request: %w", err)
	}
	req.Operation = strings.TrimSpace(req.Operation)
	if req.Operation == "" {
		return &req, fmt.Errorf("protocol:envelope - operation is required")
	}
	if req.TimeoutMs < 0 {
		return &req, fmt.Errorf("protocol:envelope - timeoutMs must not be negative")
	}
	if req.Args == nil {
		req.Args = map[string]interface{}{}
	}
	return &req, nil
}

// Timeout returns the request's timeout capped at max. A request without a
// timeout gets max.
func (r *OperationRequest) Timeout(max time.Duration) time.Duration {
	if r.TimeoutMs <= 0 {
		return max
	}
	t := time.Duration(r.TimeoutMs) * time.Millisecond
	if max > 0 && t > max {
		return max
	}
	return t
}

// FromOutcome builds the response for a bridge outcome.
func FromOutcome(id string, o bridge.Outcome) *OperationResponse {
	resp := &OperationResponse{ID: id, Success: o.Success}
	if o.Success {
		resp.Data = o.Result
		return resp
	}
	resp.Error = o.Error
	resp.ErrorType = string(o.Kind)
	resp.FailureKind = o.FailureKind
	return resp
}

// ErrorResponse builds a transport-level failure response.
func ErrorResponse(id, errorType, message string) *OperationResponse {
	return &OperationResponse{ID: id, Error: message, ErrorType: errorType}
}
