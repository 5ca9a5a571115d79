package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	neterr "netcall/internal/errors"
)

type res struct {
	id     int
	closes atomic.Int32
}

func newTestRegistry() *Registry[*res] {
	return New(func(r *res) error {
		r.closes.Add(1)
		return nil
	})
}

func handleReason(t *testing.T, err error) neterr.HandleReason {
	t.Helper()
	var he *neterr.HandleError
	require.ErrorAs(t, err, &he)
	return he.Reason
}

func TestInsert_MonotonicHandles(t *testing.T) {
	reg := newTestRegistry()
	for want := int64(1); want <= 5; want++ {
		h, err := reg.Insert(&res{})
		require.NoError(t, err)
		assert.Equal(t, want, h)
	}
	assert.Equal(t, 5, reg.Len())
}

func TestCheckout_RemovesEntry(t *testing.T) {
	reg := newTestRegistry()
	r := &res{id: 42}
	h, err := reg.Insert(r)
	require.NoError(t, err)

	lease, err := reg.Checkout(h)
	require.NoError(t, err)
	assert.Same(t, r, lease.Resource())
	assert.Equal(t, h, lease.Handle())
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 1, reg.Busy())

	_, err = reg.Checkout(h)
	require.ErrorIs(t, err, neterr.ErrHandleNotFound)
	assert.Equal(t, neterr.HandleBusy, handleReason(t, err))
}

func TestCheckout_Reasons(t *testing.T) {
	reg := newTestRegistry()
	h, err := reg.Insert(&res{})
	require.NoError(t, err)

	_, err = reg.Checkout(99)
	assert.Equal(t, neterr.HandleAbsent, handleReason(t, err))
	_, err = reg.Checkout(0)
	assert.Equal(t, neterr.HandleAbsent, handleReason(t, err))

	lease, err := reg.Checkout(h)
	require.NoError(t, err)
	require.NoError(t, lease.Retire())

	_, err = reg.Checkout(h)
	assert.Equal(t, neterr.HandleRetired, handleReason(t, err))
}

func TestRelease_SameHandle(t *testing.T) {
	reg := newTestRegistry()
	r := &res{}
	h, _ := reg.Insert(r)

	for i := 0; i < 3; i++ {
		lease, err := reg.Checkout(h)
		require.NoError(t, err, "round %d", i)
		lease.Release()
	}
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 0, reg.Busy())
	assert.Zero(t, r.closes.Load())
}

func TestRetire_ClosesOnce(t *testing.T) {
	reg := newTestRegistry()
	r := &res{}
	h, _ := reg.Insert(r)

	lease, err := reg.Checkout(h)
	require.NoError(t, err)
	require.NoError(t, lease.Retire())
	require.NoError(t, lease.Retire())
	lease.Release()
	lease.Done()

	assert.EqualValues(t, 1, r.closes.Load())
	assert.Equal(t, 0, reg.Len())
}

func TestRetire_SurfacesCloseError(t *testing.T) {
	boom := fmt.Errorf("close failed")
	reg := New(func(*res) error { return boom })
	h, _ := reg.Insert(&res{})

	lease, _ := reg.Checkout(h)
	require.ErrorIs(t, lease.Retire(), boom)

	_, err := reg.Checkout(h)
	assert.Equal(t, neterr.HandleRetired, handleReason(t, err))
}

func TestDone_RetiresUnsettledLease(t *testing.T) {
	reg := newTestRegistry()
	r := &res{}
	h, _ := reg.Insert(r)

	func() {
		defer func() { recover() }() //nolint:staticcheck
		lease, err := reg.Checkout(h)
		require.NoError(t, err)
		defer lease.Done()
		panic("operation crashed")
	}()

	assert.EqualValues(t, 1, r.closes.Load())
	assert.Equal(t, 0, reg.Busy())
	_, err := reg.Checkout(h)
	assert.Equal(t, neterr.HandleRetired, handleReason(t, err))
}

func TestDone_AfterReleaseKeepsResource(t *testing.T) {
	reg := newTestRegistry()
	r := &res{}
	h, _ := reg.Insert(r)

	lease, _ := reg.Checkout(h)
	lease.Release()
	lease.Done()

	assert.Zero(t, r.closes.Load())
	assert.Equal(t, 1, reg.Len())
}

func TestCheckout_ExactlyOnceUnderRace(t *testing.T) {
	reg := newTestRegistry()
	h, _ := reg.Insert(&res{})

	const racers = 64
	var (
		wg      sync.WaitGroup
		won     atomic.Int32
		lost    atomic.Int32
		start   = make(chan struct{})
		winners = make(chan *Lease[*res], racers)
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			lease, err := reg.Checkout(h)
			if err != nil {
				lost.Add(1)
				return
			}
			won.Add(1)
			winners <- lease
		}()
	}
	close(start)
	wg.Wait()
	close(winners)

	assert.EqualValues(t, 1, won.Load())
	assert.EqualValues(t, racers-1, lost.Load())
	for l := range winners {
		l.Release()
	}
}

func TestConcurrentInsertUniqueHandles(t *testing.T) {
	reg := newTestRegistry()
	const n = 200
	handles := make(chan int64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := reg.Insert(&res{})
			if err == nil {
				handles <- h
			}
		}()
	}
	wg.Wait()
	close(handles)

	seen := make(map[int64]bool, n)
	for h := range handles {
		assert.False(t, seen[h], "handle %d issued twice", h)
		seen[h] = true
	}
	assert.Len(t, seen, n)
}

func TestClose_ClosesIdleResources(t *testing.T) {
	reg := newTestRegistry()
	idle := []*res{{id: 1}, {id: 2}, {id: 3}}
	for _, r := range idle {
		_, err := reg.Insert(r)
		require.NoError(t, err)
	}
	busy := &res{id: 4}
	hb, _ := reg.Insert(busy)
	lease, err := reg.Checkout(hb)
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	for _, r := range idle {
		assert.EqualValues(t, 1, r.closes.Load(), "resource %d", r.id)
	}
	assert.Zero(t, busy.closes.Load(), "checked-out resource must not be closed by teardown")

	// Settling a lease after teardown closes instead of re-registering.
	lease.Release()
	assert.EqualValues(t, 1, busy.closes.Load())
	assert.Equal(t, 0, reg.Len())

	require.NoError(t, reg.Close())
	for _, r := range idle {
		assert.EqualValues(t, 1, r.closes.Load(), "second Close must not re-close")
	}
}

func TestClose_InsertFails(t *testing.T) {
	reg := newTestRegistry()
	require.NoError(t, reg.Close())
	_, err := reg.Insert(&res{})
	assert.ErrorIs(t, err, neterr.ErrRegistryClosed)
}

func TestClose_JoinsErrors(t *testing.T) {
	reg := New(func(r *res) error { return fmt.Errorf("close %d", r.id) })
	reg.Insert(&res{id: 1}) //nolint:errcheck
	reg.Insert(&res{id: 2}) //nolint:errcheck

	err := reg.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close 1")
	assert.Contains(t, err.Error(), "close 2")
}
