package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"netcall/internal/dispatch"
	neterr "netcall/internal/errors"
	"netcall/internal/request"
)

// envelope is one request line: {"id":…, "call":"…", "params":{…}}.
type envelope struct {
	ID     json.RawMessage `json:"id"`
	Call   string          `json:"call"`
	Params json.RawMessage `json:"params"`
}

// reply is one response line.  Exactly one of Result and Error is set.
type reply struct {
	ID     json.RawMessage    `json:"id"`
	Result *dispatch.Response `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// parseEnvelope decodes a request line.  Unknown keys, a missing call
// name and trailing data are rejected.  A request without an id gets a
// generated one, which is echoed in the reply.
func parseEnvelope(line []byte) (envelope, request.Fields, error) {
	var env envelope

	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return env, nil, fmt.Errorf("%w: bad envelope: %v", neterr.ErrValidation, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return env, nil, fmt.Errorf("%w: bad envelope: trailing data", neterr.ErrValidation)
	}

	if len(env.ID) == 0 || bytes.Equal(env.ID, []byte("null")) {
		env.ID, _ = json.Marshal(uuid.NewString())
	}
	if env.Call == "" {
		return env, nil, fmt.Errorf("%w: bad envelope: missing call", neterr.ErrValidation)
	}

	fields, err := request.ParseFields(env.Params)
	if err != nil {
		return env, nil, err
	}
	return env, fields, nil
}

// logID is the short request tag used in log lines.
func logID(id json.RawMessage) string {
	var s string
	if json.Unmarshal(id, &s) == nil {
		if len(s) > 8 {
			return s[:8]
		}
		return s
	}
	return string(id)
}
