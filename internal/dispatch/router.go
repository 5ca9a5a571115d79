package dispatch

import (
	"context"
	"fmt"
	"sort"

	neterr "netcall/internal/errors"
	"netcall/internal/request"
)

// CallFunc runs one named call against a validated field list.
type CallFunc func(ctx context.Context, in request.Fields) (Response, error)

// Router maps call names to dispatcher operations.
type Router struct {
	d     *Dispatcher
	calls map[string]CallFunc
}

// NewRouter registers the five network calls on d.
func NewRouter(d *Dispatcher) *Router {
	rt := &Router{d: d, calls: make(map[string]CallFunc)}

	rt.calls[request.CallConnectWait] = func(ctx context.Context, in request.Fields) (Response, error) {
		r, err := request.DecodeConnectWait(in)
		if err != nil {
			return Response{}, err
		}
		return Empty(), d.ConnectWait(ctx, r)
	}
	rt.calls[request.CallOpen] = func(ctx context.Context, in request.Fields) (Response, error) {
		r, err := request.DecodeOpen(in)
		if err != nil {
			return Response{}, err
		}
		h, err := d.Open(ctx, r)
		if err != nil {
			return Response{}, err
		}
		return HandleOf(h), nil
	}
	rt.calls[request.CallClose] = func(_ context.Context, in request.Fields) (Response, error) {
		r, err := request.DecodeClose(in)
		if err != nil {
			return Response{}, err
		}
		return Empty(), d.Close(r)
	}
	rt.calls[request.CallWrite] = func(_ context.Context, in request.Fields) (Response, error) {
		r, err := request.DecodeWrite(in)
		if err != nil {
			return Response{}, err
		}
		return Empty(), d.Write(r)
	}
	rt.calls[request.CallRead] = func(_ context.Context, in request.Fields) (Response, error) {
		r, err := request.DecodeRead(in)
		if err != nil {
			return Response{}, err
		}
		data, err := d.Read(r)
		if err != nil {
			return Response{}, err
		}
		return BytesOf(data), nil
	}
	return rt
}

// Names returns the registered call names in sorted order.
func (rt *Router) Names() []string {
	names := make([]string, 0, len(rt.calls))
	for n := range rt.calls {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Call runs the named call.  Every outcome is counted in the
// dispatcher's metrics.
func (rt *Router) Call(ctx context.Context, name string, in request.Fields) (Response, error) {
	fn, ok := rt.calls[name]
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", neterr.ErrUnknownCall, name)
	}
	resp, err := fn(ctx, in)
	rt.d.metrics.RecordCall(name, err)
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}
