package db

import "time"

// OperationRecord is a row of the operation_journal table.
type OperationRecord struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	Operation    string    `json:"operation"`
	Transport    string    `json:"transport"`
	Success      bool      `json:"success"`
	ErrorType    *string   `json:"error_type,omitempty"`
	FailureKind  *string   `json:"failure_kind,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Args         []byte    `json:"args,omitempty"`
	DurationMs   float64   `json:"duration_ms"`
	Created      time.Time `json:"created"`
}

// RecordParams holds parameters for Journal.Record.
type RecordParams struct {
	RequestID    string
	Operation    string
	Transport    string
	Success      bool
	ErrorType    string
	FailureKind  string
	ErrorMessage string
	Args         map[string]interface{}
	Duration     time.Duration
}

// RecentParams holds parameters for Journal.Recent.
type RecentParams struct {
	// Operation filters by operation name when set.
	Operation string
	// FailuresOnly limits the result to unsuccessful operations.
	FailuresOnly bool
	Limit        int
}
