package cache

import (
	"time"

	"github.com/corexis/netkit"
)

// DeriveTTL computes a cache-store TTL from a response's Cache-Control and
// Age headers, delegating to netkit.DeriveTTL (the canonical implementation
// used by the engine's own cache-store step) so callers that only import
// netkit/cache don't need a second import to reach it.
func DeriveTTL(headers map[string]string, fallback time.Duration) time.Duration {
	return netkit.DeriveTTL(headers, fallback)
}
