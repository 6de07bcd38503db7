package commsutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// DecodeArgs decodes an operation argument object. An empty body or a JSON
// null decodes to an empty map; any other non-object is rejected.
func DecodeArgs(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]interface{}{}, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("commsutil:codec - operation args must be a JSON object")
	}
	var args map[string]interface{}
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("commsutil:codec - invalid operation args: %w", err)
	}
	return args, nil
}
