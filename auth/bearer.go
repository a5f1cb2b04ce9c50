// Package auth implements netkit.Authenticator for the credential schemes
// a client engine actually holds: a long-lived API key, HTTP Basic, and
// token-based auth (bearer tokens, optionally OAuth2-refreshable). All
// token-based variants share singleflight-backed refresh coalescing so N
// concurrent callers hitting an expired token incur exactly one Refresh
// call.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/corexis/netkit"
)

// RefreshFunc fetches a new access token. It returns the token, how long
// until it expires (0 if unknown), and an error.
type RefreshFunc func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// Bearer is a token-based Authenticator that attaches `Authorization:
// Bearer <token>` and refreshes the token on demand via RefreshFunc.
// Concurrent Authenticate calls against an expired token coalesce onto a
// single in-flight Refresh via singleflight.
type Bearer struct {
	mu         sync.RWMutex
	token      string
	expiresAt  time.Time // zero means "unknown expiry, trust IsValid() default true"
	refreshFn  RefreshFunc
	group      singleflight.Group
	skew       time.Duration // treat a token as expired this long before its real expiry
}

// NewBearer builds a Bearer authenticator. initialToken may be empty if the
// first Authenticate call should trigger a refresh.
func NewBearer(initialToken string, refreshFn RefreshFunc) *Bearer {
	return &Bearer{token: initialToken, refreshFn: refreshFn, skew: 5 * time.Second}
}

// Authenticate attaches the current (or freshly refreshed) token.
func (b *Bearer) Authenticate(ctx context.Context, req *netkit.WireRequest) error {
	if !b.IsValid() {
		if err := b.Refresh(ctx); err != nil {
			return err
		}
	}
	b.mu.RLock()
	token := b.token
	b.mu.RUnlock()
	if token == "" {
		return netkit.NewError(netkit.KindAuthenticationRequired, "no bearer token available", nil)
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = "Bearer " + token
	return nil
}

// Refresh fetches a new token, coalescing concurrent callers onto a single
// RefreshFunc invocation: N concurrent Authenticate calls against an
// expired token trigger exactly one underlying refresh.
func (b *Bearer) Refresh(ctx context.Context) error {
	if b.refreshFn == nil {
		return netkit.NewError(netkit.KindTokenRefreshFailed, "no refresh function configured", nil)
	}
	_, err, _ := b.group.Do("refresh", func() (any, error) {
		token, expiresIn, err := b.refreshFn(ctx)
		if err != nil {
			return nil, netkit.NewError(netkit.KindTokenRefreshFailed, "token refresh failed", err)
		}
		b.mu.Lock()
		b.token = token
		if expiresIn > 0 {
			b.expiresAt = time.Now().Add(expiresIn)
		} else if claimedExp, ok := expiryFromJWT(token); ok {
			b.expiresAt = claimedExp
		} else {
			b.expiresAt = time.Time{}
		}
		b.mu.Unlock()
		return nil, nil
	})
	return err
}

// IsValid reports whether the current token is present and, if its expiry
// is known, not within skew of expiring.
func (b *Bearer) IsValid() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.token == "" {
		return false
	}
	if b.expiresAt.IsZero() {
		return true
	}
	return time.Now().Add(b.skew).Before(b.expiresAt)
}

// Logout clears the held token, forcing the next Authenticate to refresh.
func (b *Bearer) Logout() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = ""
	b.expiresAt = time.Time{}
}

// expiryFromJWT reads the "exp" claim off a JWT without verifying its
// signature: the client holds no verification key for a server-issued
// access token, and only needs the expiry to decide when to refresh.
func expiryFromJWT(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

var _ netkit.Authenticator = (*Bearer)(nil)
