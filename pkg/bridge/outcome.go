// Package bridge lets any number of requester goroutines run named operations
// on the host's single designated thread and wait synchronously for the result.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed Outcome.
type ErrorKind string

const (
	KindUnknownOperation ErrorKind = "UNKNOWN_OPERATION"
	KindTimeout          ErrorKind = "TIMEOUT"
	KindHandlerFailure   ErrorKind = "HANDLER_FAILURE"
	KindInternal         ErrorKind = "INTERNAL"
)

// Handler failure classifications used when a handler does not supply its own.
const (
	FailureError   = "ERROR"
	FailurePanic   = "PANIC"
	FailureInvalid = "INVALID_ARGUMENT"
	FailureMissing = "NOT_FOUND"
)

// Outcome is the structured result of one operation.
type Outcome struct {
	Success bool
	Result  interface{}
	Error   string
	Kind    ErrorKind
	// FailureKind is the handler's own classification for HANDLER_FAILURE outcomes.
	FailureKind string
}

// Succeeded returns a success outcome carrying result.
func Succeeded(result interface{}) Outcome {
	return Outcome{Success: true, Result: result}
}

// UnknownOperation returns the outcome for a name with no registered handler.
func UnknownOperation(name string) Outcome {
	return Outcome{
		Error: fmt.Sprintf("Unknown operation: %s", name),
		Kind:  KindUnknownOperation,
	}
}

// TimedOut returns the outcome synthesized for a waiter whose timeout expired.
func TimedOut(name string, timeout time.Duration) Outcome {
	return Outcome{
		Error: fmt.Sprintf("Operation %s timed out after %s", name, timeout),
		Kind:  KindTimeout,
	}
}

// HandlerFailure returns the outcome for a handler that reported an error.
func HandlerFailure(message, failureKind string) Outcome {
	if failureKind == "" {
		failureKind = FailureError
	}
	return Outcome{Error: message, Kind: KindHandlerFailure, FailureKind: failureKind}
}

// Internal returns the outcome for a violated bridge invariant.
func Internal(message string) Outcome {
	return Outcome{Error: message, Kind: KindInternal}
}

// outcomeJSON is the decoding shape for either branch.
type outcomeJSON struct {
	Success     bool        `json:"success"`
	Data        interface{} `json:"data,omitempty"`
	Error       string      `json:"error,omitempty"`
	ErrorType   ErrorKind   `json:"error_type,omitempty"`
	FailureKind string      `json:"failure_kind,omitempty"`
}

type successJSON struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type failureJSON struct {
	Success     bool      `json:"success"`
	Error       string    `json:"error"`
	ErrorType   ErrorKind `json:"error_type"`
	FailureKind string    `json:"failure_kind,omitempty"`
}

// MarshalJSON renders {"success":true,"data":...} or
// {"success":false,"error":...,"error_type":...}. The data and error keys are
// always present, even when empty.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Success {
		return json.Marshal(successJSON{Success: true, Data: o.Result})
	}
	return json.Marshal(failureJSON{
		Error:       o.Error,
		ErrorType:   o.Kind,
		FailureKind: o.FailureKind,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var raw outcomeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Outcome{
		Success:     raw.Success,
		Result:      raw.Data,
		Error:       raw.Error,
		Kind:        raw.ErrorType,
		FailureKind: raw.FailureKind,
	}
	return nil
}

// HandlerError is the typed error a handler returns to classify its failure.
type HandlerError struct {
	Kind    string
	Message string
}

func (e *HandlerError) Error() string {
	return e.Message
}

// NewHandlerError builds a HandlerError with a formatted message.
func NewHandlerError(kind, format string, args ...interface{}) *HandlerError {
	return &HandlerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// outcomeFromError converts a handler's error into a HANDLER_FAILURE outcome.
func outcomeFromError(err error) Outcome {
	var herr *HandlerError
	if errors.As(err, &herr) {
		return HandlerFailure(err.Error(), herr.Kind)
	}
	return HandlerFailure(err.Error(), FailureError)
}
