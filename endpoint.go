package netkit

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Method is the closed set of HTTP methods an Endpoint may use.
type Method string

const (
	MethodGET     Method = "GET"
	MethodPOST    Method = "POST"
	MethodPUT     Method = "PUT"
	MethodPATCH   Method = "PATCH"
	MethodDELETE  Method = "DELETE"
	MethodHEAD    Method = "HEAD"
	MethodOPTIONS Method = "OPTIONS"
	MethodTRACE   Method = "TRACE"
	MethodCONNECT Method = "CONNECT"
)

// HasBody reports whether this method conventionally carries a request body.
func (m Method) HasBody() bool {
	switch m {
	case MethodPOST, MethodPUT, MethodPATCH, MethodDELETE:
		return true
	default:
		return false
	}
}

// IsCacheable identifies the methods eligible for cache lookups/writes:
// only GET and HEAD responses are ever keyed.
func (m Method) IsCacheable() bool {
	return m == MethodGET || m == MethodHEAD
}

// CachePolicy controls whether and how an Endpoint's responses interact with
// the engine's cache.
type CachePolicy struct {
	ReadFromCache bool
	WriteToCache  bool
	TTL           time.Duration // zero means "use the engine default"
}

// RetryPolicyRef is a thin pointer back to a retry.Controller without the
// root package depending on the retry package; the engine wires the
// engine-wide default through EngineOption so Endpoint stays a plain value
// type free of import cycles (the retry package in turn depends on
// netkit's ErrorKind). When an Endpoint sets Retry, the engine consults it
// instead of the engine-wide controller for every retry decision on that
// call.
type RetryPolicyRef interface {
	RetryController
	// Name is purely for diagnostics/logging.
	Name() string
}

// Endpoint is a complete, immutable description of a single remote call.
// It is a value type: copying an Endpoint never aliases mutable state.
type Endpoint struct {
	BaseURL     string
	Path        string
	Method      Method
	Headers     map[string]string
	Query       map[string]string
	Body        BodyVariant
	Timeout     time.Duration
	Cache       CachePolicy
	Retry       RetryPolicyRef
	AuthRequire bool
	ContentType string
	Accept      string

	// Codec decodes the raw response bytes into the caller's target type.
	// When nil, the engine's default codec is used.
	Codec Codec
}

// WireRequest is the resolved, ready-to-send request produced by
// toWireRequest. It is intentionally transport-agnostic (no *http.Request)
// so the engine can be driven by any RoundTripper-shaped transport.
type WireRequest struct {
	URL     string
	Method  Method
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// toWireRequest resolves an Endpoint into a wire-ready request: resolve
// URL, apply method, merge default and user headers (user wins), append
// query parameters in queryOrder's order (sorted by key when queryOrder is
// empty, since a map keeps no insertion order), encode the body, and apply
// the per-endpoint timeout.
func toWireRequest(ep Endpoint, queryOrder []string) (*WireRequest, error) {
	base, err := url.Parse(ep.BaseURL)
	if err != nil || !base.IsAbs() {
		return nil, NewError(KindInvalidURL, "base URL must be absolute", err)
	}
	ref, err := url.Parse(ep.Path)
	if err != nil {
		return nil, NewError(KindInvalidURL, "invalid path", err)
	}
	resolved := base.ResolveReference(ref)

	if len(ep.Query) > 0 {
		keys := queryOrder
		if len(keys) == 0 {
			for k := range ep.Query {
				keys = append(keys, k)
			}
			sort.Strings(keys)
		}
		parts := make([]string, 0, len(keys)+1)
		if resolved.RawQuery != "" {
			parts = append(parts, resolved.RawQuery)
		}
		for _, k := range keys {
			if v, ok := ep.Query[k]; ok {
				parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		resolved.RawQuery = strings.Join(parts, "&")
	}

	finalURL := resolved.String()
	if !strings.HasPrefix(finalURL, "http://") && !strings.HasPrefix(finalURL, "https://") {
		return nil, NewError(KindInvalidRequest, "resolved URL is not http(s)", nil)
	}

	headers := map[string]string{}
	if ep.ContentType != "" {
		headers["Content-Type"] = ep.ContentType
	}
	if ep.Accept != "" {
		headers["Accept"] = ep.Accept
	}
	for k, v := range ep.Headers {
		headers[k] = v
	}

	var bodyBytes []byte
	if ep.Body != nil {
		encoded, contentType, err := ep.Body.Encode()
		if err != nil {
			return nil, NewError(KindEncodingFailed, "failed to encode request body", err)
		}
		bodyBytes = encoded
		if contentType != "" {
			if _, set := ep.Headers["Content-Type"]; !set {
				headers["Content-Type"] = contentType
			}
		}
	}

	return &WireRequest{
		URL:     finalURL,
		Method:  ep.Method,
		Headers: headers,
		Body:    bodyBytes,
		Timeout: ep.Timeout,
	}, nil
}
