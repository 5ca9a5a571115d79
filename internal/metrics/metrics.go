// Package metrics provides lightweight, lock-free counters for tracking
// dispatched calls and handle lifecycles, with a Prometheus export.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type callCounter struct {
	total  atomic.Int64
	errors atomic.Int64
}

// Collector tracks runtime metrics for one dispatcher.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	handlesOpened  atomic.Int64
	handlesRetired atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	errorsTotal    atomic.Int64
	waitsTotal     atomic.Int64
	waitFailures   atomic.Int64

	calls sync.Map // call name → *callCounter

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
	gauge        func() (idle, busy int)
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Calls ────────────────────────────────────────────────────────────

func (c *Collector) counter(name string) *callCounter {
	if v, ok := c.calls.Load(name); ok {
		return v.(*callCounter)
	}
	v, _ := c.calls.LoadOrStore(name, &callCounter{})
	return v.(*callCounter)
}

// RecordCall counts one dispatched call and, when err is non-nil, one
// failure of it.
func (c *Collector) RecordCall(name string, err error) {
	if c == nil {
		return
	}
	cc := c.counter(name)
	cc.total.Add(1)
	if err != nil {
		cc.errors.Add(1)
		c.RecordError(err.Error())
	}
}

// Calls returns the number of calls recorded under name.
func (c *Collector) Calls(name string) int64 {
	if c == nil {
		return 0
	}
	if v, ok := c.calls.Load(name); ok {
		return v.(*callCounter).total.Load()
	}
	return 0
}

// CallErrors returns the number of failed calls recorded under name.
func (c *Collector) CallErrors(name string) int64 {
	if c == nil {
		return 0
	}
	if v, ok := c.calls.Load(name); ok {
		return v.(*callCounter).errors.Load()
	}
	return 0
}

// ── Handles ──────────────────────────────────────────────────────────

// HandleOpened records a newly registered handle.
func (c *Collector) HandleOpened() {
	if c == nil {
		return
	}
	c.handlesOpened.Add(1)
}

// HandleRetired records a handle that became permanently invalid.
func (c *Collector) HandleRetired() {
	if c == nil {
		return
	}
	c.handlesRetired.Add(1)
}

// HandlesOpened returns the lifetime count of registered handles.
func (c *Collector) HandlesOpened() int64 {
	if c == nil {
		return 0
	}
	return c.handlesOpened.Load()
}

// HandlesRetired returns the lifetime count of retired handles.
func (c *Collector) HandlesRetired() int64 {
	if c == nil {
		return 0
	}
	return c.handlesRetired.Load()
}

// SetHandleGauge installs the source of the live idle/busy handle counts.
func (c *Collector) SetHandleGauge(fn func() (idle, busy int)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.gauge = fn
	c.mu.Unlock()
}

func (c *Collector) handleGauge() (idle, busy int) {
	c.mu.RLock()
	fn := c.gauge
	c.mu.RUnlock()
	if fn == nil {
		return 0, 0
	}
	return fn()
}

// ── Waits ────────────────────────────────────────────────────────────

// WaitCompleted records one connect-and-wait and, when err is non-nil,
// one that never saw the endpoint accept.
func (c *Collector) WaitCompleted(err error) {
	if c == nil {
		return
	}
	c.waitsTotal.Add(1)
	if err != nil {
		c.waitFailures.Add(1)
	}
}

// Waits returns the number of connect-and-waits recorded.
func (c *Collector) Waits() int64 {
	if c == nil {
		return 0
	}
	return c.waitsTotal.Load()
}

// WaitFailures returns the number of connect-and-waits that failed.
func (c *Collector) WaitFailures() int64 {
	if c == nil {
		return 0
	}
	return c.waitFailures.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// CallStats is the per-call part of a Snapshot.
type CallStats struct {
	Total  int64 `json:"total"`
	Errors int64 `json:"errors"`
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string               `json:"uptime"`
	Calls            map[string]CallStats `json:"calls,omitempty"`
	HandlesIdle      int                  `json:"handles_idle"`
	HandlesBusy      int                  `json:"handles_busy"`
	HandlesOpened    int64                `json:"handles_opened"`
	HandlesRetired   int64                `json:"handles_retired"`
	BytesIn          int64                `json:"bytes_in"`
	BytesOut         int64                `json:"bytes_out"`
	Waits            int64                `json:"waits"`
	WaitFailures     int64                `json:"wait_failures"`
	ErrorsTotal      int64                `json:"errors_total"`
	LastError        string               `json:"last_error,omitempty"`
	LastErrorMessage string               `json:"last_error_message,omitempty"`
}

// CallNames returns the recorded call names in sorted order.
func (s Snapshot) CallNames() []string {
	names := make([]string, 0, len(s.Calls))
	for n := range s.Calls {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	idle, busy := c.handleGauge()

	s := Snapshot{
		Calls:          make(map[string]CallStats),
		HandlesIdle:    idle,
		HandlesBusy:    busy,
		HandlesOpened:  c.handlesOpened.Load(),
		HandlesRetired: c.handlesRetired.Load(),
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
		Waits:          c.waitsTotal.Load(),
		WaitFailures:   c.waitFailures.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
	}
	c.calls.Range(func(k, v any) bool {
		cc := v.(*callCounter)
		s.Calls[k.(string)] = CallStats{Total: cc.total.Load(), Errors: cc.errors.Load()}
		return true
	})

	c.mu.RLock()
	defer c.mu.RUnlock()
	s.Uptime = time.Since(c.startTime).Truncate(time.Second).String()
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
