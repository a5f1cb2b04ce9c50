package netkit

import (
	"strconv"
	"strings"
	"time"
)

// parseCacheControl parses a raw Cache-Control header value into a
// directive→value map, trimmed to the directives DeriveTTL actually
// consults: a one-shot request engine has no revalidation path to drive
// the rest.
func parseCacheControl(header string) map[string]string {
	cc := make(map[string]string)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.IndexByte(part, '='); idx >= 0 {
			cc[strings.TrimSpace(part[:idx])] = strings.Trim(part[idx+1:], ` "`)
		} else {
			cc[part] = ""
		}
	}
	return cc
}

// DeriveTTL computes a cache-store TTL from a response's Cache-Control and
// Age headers when the endpoint's own CachePolicy leaves TTL at zero, a
// supplemented enrichment over the plain "policy.TTL or engine default"
// rule.
//
// no-store and no-cache both yield a zero TTL, meaning "do not cache this
// response even though the endpoint asked to write through". max-age, when
// present, is reduced by any Age header value already elapsed.
func DeriveTTL(headers map[string]string, fallback time.Duration) time.Duration {
	cc := parseCacheControl(lookupHeaderValue(headers, "Cache-Control"))
	if _, noStore := cc["no-store"]; noStore {
		return 0
	}
	if _, noCache := cc["no-cache"]; noCache {
		return 0
	}

	maxAgeStr, ok := cc["max-age"]
	if !ok {
		return fallback
	}
	maxAgeSeconds, err := strconv.Atoi(maxAgeStr)
	if err != nil || maxAgeSeconds < 0 {
		return fallback
	}
	ttl := time.Duration(maxAgeSeconds) * time.Second

	if ageStr := lookupHeaderValue(headers, "Age"); ageStr != "" {
		if ageSeconds, err := strconv.Atoi(ageStr); err == nil && ageSeconds > 0 {
			ttl -= time.Duration(ageSeconds) * time.Second
		}
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}

func lookupHeaderValue(headers map[string]string, canonical string) string {
	if v, ok := headers[canonical]; ok {
		return v
	}
	lower := strings.ToLower(canonical)
	for k, v := range headers {
		if strings.ToLower(k) == lower {
			return v
		}
	}
	return ""
}
