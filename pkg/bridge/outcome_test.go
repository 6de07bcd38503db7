package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestOutcomeConstructors(t *testing.T) {
	tests := []struct {
		name        string
		outcome     Outcome
		wantKind    ErrorKind
		wantFailure string
		wantInError string
	}{
		{"unknown", UnknownOperation("frobnicate"), KindUnknownOperation, "", "Unknown operation: frobnicate"},
		{"timeout", TimedOut("create_body", 50*time.Millisecond), KindTimeout, "", "create_body timed out after 50ms"},
		{"handler default kind", HandlerFailure("boom", ""), KindHandlerFailure, FailureError, "boom"},
		{"handler own kind", HandlerFailure("no face", FailureMissing), KindHandlerFailure, FailureMissing, "no face"},
		{"internal", Internal("broken"), KindInternal, "", "broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.outcome.Success {
				t.Fatal("bridge:outcome_test - failure constructor returned success")
			}
			if tt.outcome.Kind != tt.wantKind {
				t.Errorf("bridge:outcome_test - Kind = %q, want %q", tt.outcome.Kind, tt.wantKind)
			}
			if tt.outcome.FailureKind != tt.wantFailure {
				t.Errorf("bridge:outcome_test - FailureKind = %q, want %q", tt.outcome.FailureKind, tt.wantFailure)
			}
			if !strings.Contains(tt.outcome.Error, tt.wantInError) {
				t.Errorf("bridge:outcome_test - Error = %q, want it to contain %q", tt.outcome.Error, tt.wantInError)
			}
		})
	}
}

func TestOutcomeJSON(t *testing.T) {
	data, err := json.Marshal(Succeeded(map[string]interface{}{"id": "Body1"}))
	if err != nil {
		t.Fatalf("bridge:outcome_test - marshal failed: %v", err)
	}
	if got := string(data); got != `{"success":true,"data":{"id":"Body1"}}` {
		t.Errorf("bridge:outcome_test - success JSON = %s", got)
	}

	data, err = json.Marshal(HandlerFailure("bad", FailureInvalid))
	if err != nil {
		t.Fatalf("bridge:outcome_test - marshal failed: %v", err)
	}
	want := `{"success":false,"error":"bad","error_type":"HANDLER_FAILURE","failure_kind":"INVALID_ARGUMENT"}`
	if got := string(data); got != want {
		t.Errorf("bridge:outcome_test - failure JSON = %s, want %s", got, want)
	}

	bare, err := json.Marshal(Succeeded(nil))
	if err != nil {
		t.Fatalf("bridge:outcome_test - marshal failed: %v", err)
	}
	if got := string(bare); got != `{"success":true,"data":null}` {
		t.Errorf("bridge:outcome_test - empty success JSON = %s", got)
	}

	empty, err := json.Marshal(HandlerFailure("", ""))
	if err != nil {
		t.Fatalf("bridge:outcome_test - marshal failed: %v", err)
	}
	if got := string(empty); got != `{"success":false,"error":"","error_type":"HANDLER_FAILURE","failure_kind":"ERROR"}` {
		t.Errorf("bridge:outcome_test - empty failure JSON = %s", got)
	}

	var back Outcome
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("bridge:outcome_test - unmarshal failed: %v", err)
	}
	if back.Kind != KindHandlerFailure || back.FailureKind != FailureInvalid || back.Error != "bad" {
		t.Errorf("bridge:outcome_test - decoded %+v", back)
	}
}

func TestOutcomeFromError(t *testing.T) {
	plain := outcomeFromError(errors.New("disk on fire"))
	if plain.Kind != KindHandlerFailure || plain.FailureKind != FailureError {
		t.Errorf("bridge:outcome_test - plain error gave %+v", plain)
	}

	wrapped := outcomeFromError(fmt.Errorf("create_body: %w", NewHandlerError(FailureMissing, "component %q not found", "X")))
	if wrapped.FailureKind != FailureMissing {
		t.Errorf("bridge:outcome_test - wrapped HandlerError kind = %q, want %q", wrapped.FailureKind, FailureMissing)
	}
	if !strings.Contains(wrapped.Error, `component "X" not found`) {
		t.Errorf("bridge:outcome_test - wrapped message = %q", wrapped.Error)
	}
}
