package bridge

import (
	"encoding/json"
	"math"
)

// Args are the JSON-compatible arguments of an operation.
type Args map[string]interface{}

// String returns the required string argument key.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", NewHandlerError(FailureInvalid, "missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", NewHandlerError(FailureInvalid, "argument %q must be a string", key)
	}
	return s, nil
}

// OptionalString returns the string argument key, or def when it is absent.
func (a Args) OptionalString(key, def string) (string, error) {
	if v, ok := a[key]; !ok || v == nil {
		return def, nil
	}
	return a.String(key)
}

// Float returns the required numeric argument key.
func (a Args) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, NewHandlerError(FailureInvalid, "missing required argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, NewHandlerError(FailureInvalid, "argument %q must be a number", key)
		}
		return f, nil
	}
	return 0, NewHandlerError(FailureInvalid, "argument %q must be a number", key)
}

// Int returns the required integral argument key.
func (a Args) Int(key string) (int, error) {
	f, err := a.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, NewHandlerError(FailureInvalid, "argument %q must be an integer", key)
	}
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, NewHandlerError(FailureInvalid, "argument %q is out of range", key)
	}
	return int(f), nil
}

// OptionalInt returns the integral argument key, or def when it is absent.
func (a Args) OptionalInt(key string, def int) (int, error) {
	if v, ok := a[key]; !ok || v == nil {
		return def, nil
	}
	return a.Int(key)
}

// Bool returns the boolean argument key, or def when it is absent.
func (a Args) Bool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, NewHandlerError(FailureInvalid, "argument %q must be a boolean", key)
	}
	return b, nil
}
