// Package rest is a minimal convenience frontend over netkit.Engine
// (SPEC_FULL.md EXPANDED-4): Get/Post/Put/Patch/Delete helpers that build an
// Endpoint and call netkit.Execute, demonstrating the consumer contract
// without implementing a full protocol frontend (GraphQL/WebSocket/SSE/gRPC
// framing stay out of scope).
package rest

import (
	"context"

	"github.com/corexis/netkit"
)

// Client wraps an *netkit.Engine and a base URL for terse per-call helpers.
type Client struct {
	Engine  *netkit.Engine
	BaseURL string
}

// New builds a Client over engine and baseURL.
func New(engine *netkit.Engine, baseURL string) *Client {
	return &Client{Engine: engine, BaseURL: baseURL}
}

func (c *Client) endpoint(method netkit.Method, path string, body netkit.BodyVariant) netkit.Endpoint {
	return netkit.Endpoint{
		BaseURL: c.BaseURL,
		Path:    path,
		Method:  method,
		Body:    body,
	}
}

// Get performs a GET request and decodes the response into T.
func Get[T any](ctx context.Context, c *Client, path string) (netkit.Response[T], error) {
	return netkit.Execute[T](ctx, c.Engine, c.endpoint(netkit.MethodGET, path, nil))
}

// Post performs a POST request with a JSON-encoded body and decodes the
// response into T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (netkit.Response[T], error) {
	ep := c.endpoint(netkit.MethodPOST, path, netkit.StructuredBody{Value: body, Codec: netkit.DefaultCodec})
	return netkit.Execute[T](ctx, c.Engine, ep)
}

// Put performs a PUT request with a JSON-encoded body and decodes the
// response into T.
func Put[T any](ctx context.Context, c *Client, path string, body any) (netkit.Response[T], error) {
	ep := c.endpoint(netkit.MethodPUT, path, netkit.StructuredBody{Value: body, Codec: netkit.DefaultCodec})
	return netkit.Execute[T](ctx, c.Engine, ep)
}

// Patch performs a PATCH request with a JSON-encoded body and decodes the
// response into T.
func Patch[T any](ctx context.Context, c *Client, path string, body any) (netkit.Response[T], error) {
	ep := c.endpoint(netkit.MethodPATCH, path, netkit.StructuredBody{Value: body, Codec: netkit.DefaultCodec})
	return netkit.Execute[T](ctx, c.Engine, ep)
}

// Delete performs a DELETE request and decodes the response into T.
func Delete[T any](ctx context.Context, c *Client, path string) (netkit.Response[T], error) {
	return netkit.Execute[T](ctx, c.Engine, c.endpoint(netkit.MethodDELETE, path, nil))
}
