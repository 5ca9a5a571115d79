package request

import (
	"encoding/json"
	"math"

	neterr "netcall/internal/errors"
)

// field is one schema entry: a wire name and a setter that stores a
// converted value into the record being built.  set returns a non-empty
// reason when the value is unacceptable.
type field struct {
	name string
	set  func(v any) string
}

// decode runs the single validation pass shared by every command.
func decode(command string, in Fields, schema ...field) error {
	index := make(map[string]int, len(schema))
	for i, f := range schema {
		index[f.name] = i
	}
	seen := make([]bool, len(schema))

	for _, kv := range in {
		i, ok := index[kv.Name]
		if !ok {
			return neterr.UnknownField(command, kv.Name)
		}
		if reason := schema[i].set(kv.Value); reason != "" {
			return &neterr.ValidationError{Command: command, Field: kv.Name, Reason: reason}
		}
		seen[i] = true
	}

	for i, f := range schema {
		if !seen[i] {
			return neterr.MissingField(command, f.name)
		}
	}
	return nil
}

func stringField(name string, dst *string) field {
	return field{name: name, set: func(v any) string {
		s, ok := v.(string)
		if !ok || s == "" {
			return "must be a non-empty string"
		}
		*dst = s
		return ""
	}}
}

func portField(dst *int) field {
	return field{name: FieldPort, set: func(v any) string {
		n, ok := toInt(v)
		if !ok {
			return "must be an integer"
		}
		if n < 1 || n > 65535 {
			return "out of range 1-65535"
		}
		*dst = int(n)
		return ""
	}}
}

func millisField(dst *int64) field {
	return field{name: FieldTimeout, set: func(v any) string {
		n, ok := toInt(v)
		if !ok {
			return "must be an integer"
		}
		if n < 0 {
			return "must not be negative"
		}
		*dst = n
		return ""
	}}
}

func handleField(dst *int64) field {
	return field{name: FieldHandle, set: func(v any) string {
		n, ok := toInt(v)
		if !ok {
			return "must be an integer"
		}
		*dst = n
		return ""
	}}
}

// toInt accepts the integer shapes a decoded request may carry.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
