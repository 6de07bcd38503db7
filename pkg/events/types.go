// Package events defines the operation-completed event and its publishers.
package events

import (
	"time"

	"github.com/morezero/cad-bridge/pkg/bridge"
)

// OperationCompletedEvent is emitted after the bridge answers an operation.
type OperationCompletedEvent struct {
	RequestID   string  `json:"requestId"`
	Operation   string  `json:"operation"`
	Success     bool    `json:"success"`
	ErrorType   string  `json:"errorType,omitempty"`
	FailureKind string  `json:"failureKind,omitempty"`
	Error       string  `json:"error,omitempty"`
	DurationMs  float64 `json:"durationMs"`
	Transport   string  `json:"transport"`
	Timestamp   string  `json:"timestamp"`
}

// NewOperationCompletedEvent summarizes outcome for the named operation.
// Result data is not included.
func NewOperationCompletedEvent(requestID, operation, transport string, outcome bridge.Outcome, elapsed time.Duration) *OperationCompletedEvent {
	return &OperationCompletedEvent{
		RequestID:   requestID,
		Operation:   operation,
		Success:     outcome.Success,
		ErrorType:   string(outcome.Kind),
		FailureKind: outcome.FailureKind,
		Error:       outcome.Error,
		DurationMs:  float64(elapsed.Microseconds()) / 1000,
		Transport:   transport,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}
