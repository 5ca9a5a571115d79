// Package errors provides domain-specific error types for netcall.
//
// Every failure a command can produce falls into one of three classes:
// a rejected request (ValidationError), an unusable handle (HandleError)
// or a failure reported by the transport (TransportError).  Each class
// matches a sentinel through errors.Is so callers can branch without
// parsing messages.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrValidation     = errors.New("invalid request")
	ErrHandleNotFound = errors.New("Invalid handle") //nolint:staticcheck // stable wire text
	ErrTransport      = errors.New("transport failure")
	ErrRegistryClosed = errors.New("handle registry is closed")
	ErrTimeout        = errors.New("operation timed out")
	ErrUnknownCall    = errors.New("unknown call")
)

// ── Validation ───────────────────────────────────────────────────────

// Validation failure reasons.
const (
	ReasonUnknownField = "unknown field"
	ReasonMissingField = "required field not specified"
)

// ValidationError reports a request that does not fit its command's
// schema.  Field always names the offending field.
type ValidationError struct {
	Command string // command being validated, e.g. "net_socket_open"
	Field   string // offending field name
	Reason  string // ReasonUnknownField, ReasonMissingField or a value rule
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonUnknownField:
		return fmt.Sprintf("%s: unknown data field: [%s]", e.Command, e.Field)
	case ReasonMissingField:
		return fmt.Sprintf("%s: required parameter '%s' not specified", e.Command, e.Field)
	default:
		return fmt.Sprintf("%s: parameter '%s' %s", e.Command, e.Field, e.Reason)
	}
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnknownField returns a ValidationError for a field outside the schema.
func UnknownField(command, field string) *ValidationError {
	return &ValidationError{Command: command, Field: field, Reason: ReasonUnknownField}
}

// MissingField returns a ValidationError for an absent required field.
func MissingField(command, field string) *ValidationError {
	return &ValidationError{Command: command, Field: field, Reason: ReasonMissingField}
}

// ── Handles ──────────────────────────────────────────────────────────

// HandleReason says why a handle could not be checked out.
type HandleReason string

const (
	HandleAbsent  HandleReason = "absent"  // never issued
	HandleBusy    HandleReason = "busy"    // checked out by another operation
	HandleRetired HandleReason = "retired" // issued, then closed
	HandleDrained HandleReason = "drained" // already read; needs a write first
)

// HandleError reports a handle that cannot be used right now.  All
// reasons match ErrHandleNotFound: callers that only care whether the
// handle resolved need not distinguish busy from absent.
type HandleError struct {
	Handle int64
	Reason HandleReason
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("%s: %d (%s)", ErrHandleNotFound, e.Handle, e.Reason)
}

func (e *HandleError) Is(target error) bool { return target == ErrHandleNotFound }

// ── Transport ────────────────────────────────────────────────────────

// TransportError represents a failure reported by the transport adapter.
type TransportError struct {
	Op        string // "wait", "open", "close", "write", "read"
	Addr      string // remote address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller may reasonably retry
}

func (e *TransportError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ── Config ───────────────────────────────────────────────────────────

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a TransportError, detecting retryability from the
// underlying error.  A nil err yields nil.
func Wrap(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying by the caller.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Timeout() || opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
