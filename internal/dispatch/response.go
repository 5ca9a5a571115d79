package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"unicode/utf8"
)

// Kind identifies which of the three response shapes a Response carries.
type Kind int

const (
	KindEmpty Kind = iota
	KindHandle
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindHandle:
		return "handle"
	case KindBytes:
		return "bytes"
	default:
		return "empty"
	}
}

// Response is the result of a successful call: a bare acknowledgment, a
// handle descriptor or the bytes read.
type Response struct {
	Kind   Kind
	Handle int64
	Data   []byte
}

// Empty is the acknowledgment returned by connect-and-wait, close and write.
func Empty() Response { return Response{Kind: KindEmpty} }

// HandleOf wraps a freshly registered handle.
func HandleOf(h int64) Response { return Response{Kind: KindHandle, Handle: h} }

// BytesOf wraps the bytes returned by a read.
func BytesOf(p []byte) Response { return Response{Kind: KindBytes, Data: p} }

// MarshalJSON encodes the response as {}, {"handle":N}, or
// {"data":"..."} for UTF-8 data and {"dataBase64":"..."} otherwise.
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindHandle:
		return json.Marshal(struct {
			Handle int64 `json:"handle"`
		}{r.Handle})
	case KindBytes:
		if utf8.Valid(r.Data) {
			return json.Marshal(struct {
				Data string `json:"data"`
			}{string(r.Data)})
		}
		return json.Marshal(struct {
			Data string `json:"dataBase64"`
		}{base64.StdEncoding.EncodeToString(r.Data)})
	default:
		return []byte("{}"), nil
	}
}
