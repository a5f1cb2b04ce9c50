package netkit

import (
	"net/http"
	"sort"
	"strings"
)

// cacheKey derives the cache lookup key for a resolved WireRequest: GET
// requests key on URL alone, everything else (HEAD, since only GET/HEAD
// are ever cacheable) also carries the method to avoid collisions between
// methods against the same URL.
func cacheKey(req *WireRequest) string {
	if req.Method == MethodGET {
		return req.URL
	}
	return string(req.Method) + " " + req.URL
}

// cacheKeyWithHeaders extends cacheKey with the values of specific request
// headers, letting callers key cache entries on e.g. Authorization or
// Accept-Language when CachePolicy demands per-variant entries.
func cacheKeyWithHeaders(req *WireRequest, headers []string) string {
	key := cacheKey(req)
	if len(headers) == 0 {
		return key
	}
	var parts []string
	for _, h := range headers {
		canonical := http.CanonicalHeaderKey(h)
		if v, ok := lookupHeader(req.Headers, canonical); ok && v != "" {
			parts = append(parts, canonical+":"+v)
		}
	}
	if len(parts) == 0 {
		return key
	}
	sort.Strings(parts)
	return key + "|" + strings.Join(parts, "|")
}

func lookupHeader(headers map[string]string, canonical string) (string, bool) {
	if v, ok := headers[canonical]; ok {
		return v, true
	}
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == canonical {
			return v, true
		}
	}
	return "", false
}
