package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectOperations = "cad.bridge.v1.ops"
	SubjectEvents     = "cad.bridge.v1.completed"
)

// BuildOperationEventSubject builds the granular completion subject of one
// operation. Dots in the operation name would add subject tokens, so they
// become underscores.
func BuildOperationEventSubject(base, operation string) string {
	return fmt.Sprintf("%s.%s", base, SafeToken(operation))
}

// SafeToken makes s usable as a single subject token.
func SafeToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	r := strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")
	return r.Replace(s)
}
