package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	neterr "netcall/internal/errors"
)

// Field is one named parameter as supplied by the caller.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered parameter set.  A name may repeat; the last
// occurrence wins.
type Fields []Field

// F builds Fields from alternating name/value arguments.  It panics on
// an odd count or a non-string name, so it is meant for literals.
func F(kv ...any) Fields {
	if len(kv)%2 != 0 {
		panic("request.F: odd number of arguments")
	}
	out := make(Fields, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		out = append(out, Field{Name: kv[i].(string), Value: kv[i+1]})
	}
	return out
}

// ParseFields decodes a JSON object into Fields, keeping key order.
// Numbers are kept as json.Number.  Empty input and JSON null yield an
// empty set.
func ParseFields(raw []byte) (Fields, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Fields{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", neterr.ErrValidation, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: parameters must be a JSON object", neterr.ErrValidation)
	}

	var out Fields
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", neterr.ErrValidation, err)
		}
		name, _ := tok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", neterr.ErrValidation, name, err)
		}
		out = append(out, Field{Name: name, Value: v})
	}

	// closing brace, then nothing else
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", neterr.ErrValidation, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after parameters", neterr.ErrValidation)
	}
	return out, nil
}
