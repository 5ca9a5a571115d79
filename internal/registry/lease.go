package registry

// Lease is exclusive ownership of one checked-out resource.  A lease
// belongs to the goroutine that obtained it and is settled exactly once,
// by Release or Retire; later calls are no-ops.
//
// The usual shape is:
//
//	lease, err := reg.Checkout(h)
//	if err != nil {
//		return err
//	}
//	defer lease.Done()
//	...
//	lease.Release()
type Lease[R any] struct {
	reg     *Registry[R]
	handle  int64
	res     R
	settled bool
}

// Handle returns the handle the resource was checked out under.
func (l *Lease[R]) Handle() int64 { return l.handle }

// Resource returns the leased resource.
func (l *Lease[R]) Resource() R { return l.res }

// Release returns the resource to the registry under the same handle.
// If the registry was closed while the lease was out, the resource is
// closed instead.
func (l *Lease[R]) Release() {
	if l.settled {
		return
	}
	l.settled = true
	if !l.reg.release(l.handle, l.res) {
		l.reg.closeFn(l.res) //nolint:errcheck // teardown already reported
	}
}

// Retire closes the resource and invalidates the handle permanently.
// The handle is retired even when the close itself fails.
func (l *Lease[R]) Retire() error {
	if l.settled {
		return nil
	}
	l.settled = true
	l.reg.forget(l.handle)
	return l.reg.closeFn(l.res)
}

// Settled reports whether Release or Retire has run.
func (l *Lease[R]) Settled() bool { return l.settled }

// Done retires an unsettled lease.  Deferred right after Checkout, it
// guarantees the resource is never stranded by an early return or a
// panic.
func (l *Lease[R]) Done() {
	if !l.settled {
		l.Retire() //nolint:errcheck
	}
}
