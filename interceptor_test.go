package netkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterceptorChainRunsRequestInterceptorsInRegistrationOrder(t *testing.T) {
	var order []string
	c := &interceptorChain{}
	c.addRequest(RequestInterceptorFunc(func(ctx context.Context, rc *RequestContext, req *WireRequest) error {
		order = append(order, "A")
		return nil
	}))
	c.addRequest(RequestInterceptorFunc(func(ctx context.Context, rc *RequestContext, req *WireRequest) error {
		order = append(order, "B")
		return nil
	}))

	rc := newRequestContext()
	err := c.runRequest(context.Background(), rc, &WireRequest{})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, order)
}

func TestInterceptorChainRunsResponseInterceptorsInReverseOrder(t *testing.T) {
	var order []string
	c := &interceptorChain{}
	c.addResponse(ResponseInterceptorFunc(func(ctx context.Context, rc *RequestContext, resp *RawResponse) error {
		order = append(order, "A")
		return nil
	}))
	c.addResponse(ResponseInterceptorFunc(func(ctx context.Context, rc *RequestContext, resp *RawResponse) error {
		order = append(order, "B")
		return nil
	}))

	rc := newRequestContext()
	err := c.runResponse(context.Background(), rc, &RawResponse{})
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A"}, order)
}

// TestInterceptorChainComposesAsExpectedAlgebra verifies the chain's
// composition rule directly: registering [A,B] applies A then B for
// pre-request (A∘B in function-composition terms, A closest to the raw
// request) and the mirror B then A for post-response.
func TestInterceptorChainComposesAsExpectedAlgebra(t *testing.T) {
	var trace []string
	c := &interceptorChain{}
	mark := func(label string) RequestInterceptorFunc {
		return func(ctx context.Context, rc *RequestContext, req *WireRequest) error {
			trace = append(trace, "pre:"+label)
			return nil
		}
	}
	markResp := func(label string) ResponseInterceptorFunc {
		return func(ctx context.Context, rc *RequestContext, resp *RawResponse) error {
			trace = append(trace, "post:"+label)
			return nil
		}
	}
	c.addRequest(mark("A"))
	c.addRequest(mark("B"))
	c.addResponse(markResp("A"))
	c.addResponse(markResp("B"))

	rc := newRequestContext()
	require.NoError(t, c.runRequest(context.Background(), rc, &WireRequest{}))
	require.NoError(t, c.runResponse(context.Background(), rc, &RawResponse{}))

	require.Equal(t, []string{"pre:A", "pre:B", "post:B", "post:A"}, trace)
}

func TestInterceptorChainStopsOnFirstRequestError(t *testing.T) {
	var called []string
	c := &interceptorChain{}
	c.addRequest(RequestInterceptorFunc(func(ctx context.Context, rc *RequestContext, req *WireRequest) error {
		called = append(called, "A")
		return NewError(KindInvalidRequest, "rejected", nil)
	}))
	c.addRequest(RequestInterceptorFunc(func(ctx context.Context, rc *RequestContext, req *WireRequest) error {
		called = append(called, "B")
		return nil
	}))

	rc := newRequestContext()
	err := c.runRequest(context.Background(), rc, &WireRequest{})
	require.Error(t, err)
	require.Equal(t, []string{"A"}, called)
}

func TestInterceptorChainClearRemovesAllInterceptors(t *testing.T) {
	c := &interceptorChain{}
	c.addRequest(RequestInterceptorFunc(func(ctx context.Context, rc *RequestContext, req *WireRequest) error { return nil }))
	c.addResponse(ResponseInterceptorFunc(func(ctx context.Context, rc *RequestContext, resp *RawResponse) error { return nil }))
	c.clear()
	require.Empty(t, c.requestInterceptors)
	require.Empty(t, c.responseInterceptors)
}
