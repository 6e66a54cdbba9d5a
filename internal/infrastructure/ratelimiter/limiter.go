package ratelimiter

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"
)

// Policy bounds one kind of traffic. Scope namespaces its counters so the
// API and the compile proxy can share a store.
type Policy struct {
	Scope  string
	Limit  int // hits per window; zero or less disables the policy
	Window time.Duration
	// SourceHeader names the header carrying the client address, e.g.
	// X-Forwarded-For. Empty means RemoteAddr.
	SourceHeader string
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds up, never below one second.
func (d Decision) RetryAfterSeconds() int {
	return max(int(math.Ceil(d.RetryAfter.Seconds())), 1)
}

// Limiter counts hits per source in fixed windows.
type Limiter struct {
	store  Store
	policy Policy
}

func New(store Store, policy Policy) *Limiter {
	if policy.Window <= 0 {
		policy.Window = time.Minute
	}
	if policy.Scope == "" {
		policy.Scope = "default"
	}
	return &Limiter{store: store, policy: policy}
}

func (l *Limiter) Limit() int {
	return l.policy.Limit
}

// Take records a hit for source. When the store fails the hit is allowed
// and the error is returned for the caller to log.
func (l *Limiter) Take(ctx context.Context, source string) (Decision, error) {
	if l.policy.Limit <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	w, err := l.store.Hit(ctx, l.policy.Scope+":"+source, l.policy.Window)
	if err != nil {
		return Decision{Allowed: true, Remaining: -1}, err
	}
	if w.Count > l.policy.Limit {
		return Decision{RetryAfter: w.ResetIn}, nil
	}
	return Decision{Allowed: true, Remaining: l.policy.Limit - w.Count}, nil
}

// Source identifies the client behind r.
func (l *Limiter) Source(r *http.Request) string {
	if l.policy.SourceHeader != "" {
		if v := r.Header.Get(l.policy.SourceHeader); v != "" {
			// a proxy chain lists the client first
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			return strings.TrimSpace(v)
		}
	}
	return r.RemoteAddr
}
