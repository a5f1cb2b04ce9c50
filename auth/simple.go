package auth

import (
	"context"

	"github.com/corexis/netkit"
)

// ApiKey attaches a static API key as a header (default "X-API-Key"),
// optionally with a value prefix (e.g. "Bearer "). It never expires and
// Refresh is a no-op: a static key has nothing to refresh.
type ApiKey struct {
	Header string
	Prefix string
	Key    string
}

// NewApiKey builds an ApiKey authenticator attaching Header (default
// "X-API-Key") as prefix+key.
func NewApiKey(header, prefix, key string) *ApiKey {
	if header == "" {
		header = "X-API-Key"
	}
	return &ApiKey{Header: header, Prefix: prefix, Key: key}
}

func (a *ApiKey) Authenticate(_ context.Context, req *netkit.WireRequest) error {
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers[a.Header] = a.Prefix + a.Key
	return nil
}

func (a *ApiKey) Refresh(_ context.Context) error { return nil }
func (a *ApiKey) IsValid() bool                   { return a.Key != "" }
func (a *ApiKey) Logout()                         { a.Key = "" }

var _ netkit.Authenticator = (*ApiKey)(nil)

// Basic attaches HTTP Basic credentials. Like ApiKey it never expires.
type Basic struct {
	Username string
	Password string
}

// NewBasic builds a Basic authenticator.
func NewBasic(username, password string) *Basic {
	return &Basic{Username: username, Password: password}
}

func (b *Basic) Authenticate(_ context.Context, req *netkit.WireRequest) error {
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = basicAuthHeader(b.Username, b.Password)
	return nil
}

func (b *Basic) Refresh(_ context.Context) error { return nil }
func (b *Basic) IsValid() bool                   { return b.Username != "" }
func (b *Basic) Logout()                         { b.Username, b.Password = "", "" }

var _ netkit.Authenticator = (*Basic)(nil)
