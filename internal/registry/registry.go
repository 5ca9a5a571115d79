// Package registry maps opaque integer handles to exclusively owned
// resources.
//
// A resource lives in exactly one place at a time: resident in the
// registry (idle), held by a Lease (checked out), or closed.  Checkout
// atomically removes the entry, so two callers presenting the same
// handle can never both obtain the resource; no per-resource lock is
// needed on top of that.
package registry

import (
	"sync"

	neterr "netcall/internal/errors"
)

// Registry is a concurrency-safe handle table.  The zero value is not
// usable; construct one with New.
type Registry[R any] struct {
	closeFn func(R) error // called at most once per resource

	mu      sync.Mutex
	idle    map[int64]R
	busy    map[int64]struct{}
	lastID  int64
	closing bool
}

// New returns an empty registry that closes resources with closeFn.
func New[R any](closeFn func(R) error) *Registry[R] {
	return &Registry[R]{
		closeFn: closeFn,
		idle:    make(map[int64]R),
		busy:    make(map[int64]struct{}),
	}
}

// Insert stores res under a fresh handle.  Handles start at 1 and are
// never reused.  After Close it returns ErrRegistryClosed and the
// caller keeps ownership of res.
func (r *Registry[R]) Insert(res R) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closing {
		return 0, neterr.ErrRegistryClosed
	}
	r.lastID++
	r.idle[r.lastID] = res
	return r.lastID, nil
}

// Checkout removes the resource for handle and hands it to the caller
// as a Lease.  An unknown, retired or busy handle yields a
// *errors.HandleError.
func (r *Registry[R]) Checkout(handle int64) (*Lease[R], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.idle[handle]
	if !ok {
		return nil, &neterr.HandleError{Handle: handle, Reason: r.reasonLocked(handle)}
	}
	delete(r.idle, handle)
	r.busy[handle] = struct{}{}
	return &Lease[R]{reg: r, handle: handle, res: res}, nil
}

func (r *Registry[R]) reasonLocked(handle int64) neterr.HandleReason {
	switch {
	case handle < 1 || handle > r.lastID:
		return neterr.HandleAbsent
	case r.isBusyLocked(handle):
		return neterr.HandleBusy
	default:
		return neterr.HandleRetired
	}
}

func (r *Registry[R]) isBusyLocked(handle int64) bool {
	_, ok := r.busy[handle]
	return ok
}

// release puts a leased resource back.  It reports false when the
// registry has been torn down in the meantime; the caller must then
// close the resource itself.
func (r *Registry[R]) release(handle int64, res R) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.busy, handle)
	if r.closing {
		return false
	}
	r.idle[handle] = res
	return true
}

func (r *Registry[R]) forget(handle int64) {
	r.mu.Lock()
	delete(r.busy, handle)
	r.mu.Unlock()
}

// Len returns the number of idle resources.
func (r *Registry[R]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.idle)
}

// Busy returns the number of resources currently checked out.
func (r *Registry[R]) Busy() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.busy)
}

// Close tears the registry down: every idle resource is closed and
// further inserts fail.  Resources checked out at this point are closed
// when their lease settles.  Close is idempotent; the returned error
// joins every close failure.
func (r *Registry[R]) Close() error {
	r.mu.Lock()
	r.closing = true
	idle := r.idle
	r.idle = make(map[int64]R)
	r.mu.Unlock()

	var errs []error
	for _, res := range idle {
		if err := r.closeFn(res); err != nil {
			errs = append(errs, err)
		}
	}
	return neterr.Join(errs...)
}
