// Package identity resolves the acting principal for an interactive session.
//
// Resolution happens at most once per session: the first call queries the
// backing warehouse for its current authenticated principal and the result
// is held for the session's lifetime. Resolution failure of any kind falls
// back to a sentinel identity rather than blocking the session; the
// sentinel owns no rows, so a degraded session sees an empty record set.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Identity is the string identifying the acting principal for a session.
type Identity string

// Sentinel is the fallback identity used when resolution fails.
const Sentinel Identity = "unknown_user"

// String returns the identity as a plain string.
func (i Identity) String() string {
	return string(i)
}

// IsSentinel reports whether this is the fallback identity.
func (i Identity) IsSentinel() bool {
	return i == Sentinel
}

// PrincipalSource reports the warehouse's current authenticated principal.
// warehouse.Warehouse satisfies it.
type PrincipalSource interface {
	CurrentUser(ctx context.Context) (string, error)
}

// SourceFunc adapts a function to a PrincipalSource.
type SourceFunc func(ctx context.Context) (string, error)

// CurrentUser implements PrincipalSource.
func (f SourceFunc) CurrentUser(ctx context.Context) (string, error) {
	return f(ctx)
}

// Session is the resolved identity state for one interactive session.
type Session struct {
	// Identity is the acting principal.
	Identity Identity

	// Fingerprint is a short cosmetic hash for display and audit.
	// It is not a security boundary.
	Fingerprint string

	// ResolvedAt is when resolution ran.
	ResolvedAt time.Time

	// Fallback reports whether the sentinel identity is in effect.
	Fallback bool
}

// Resolver resolves and memoizes the session identity.
// Safe for use from a single interactive session; resolution runs at most
// one query against the backing store.
type Resolver struct {
	mu      sync.Mutex
	source  PrincipalSource
	now     func() time.Time
	session *Session
}

// NewResolver creates a resolver over the given principal source.
func NewResolver(source PrincipalSource) *Resolver {
	return &Resolver{
		source: source,
		now:    time.Now,
	}
}

// NewResolverWithClock creates a resolver with a fixed clock, for tests.
func NewResolverWithClock(source PrincipalSource, now func() time.Time) *Resolver {
	return &Resolver{
		source: source,
		now:    now,
	}
}

// Resolve returns the session identity, querying the warehouse on first
// call only. Failures are swallowed: the session continues under the
// sentinel identity and the error never reaches the caller.
func (r *Resolver) Resolve(ctx context.Context) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return *r.session
	}

	resolvedAt := r.now()
	id := Sentinel
	fallback := true

	if r.source != nil {
		principal, err := r.source.CurrentUser(ctx)
		if err == nil && strings.TrimSpace(principal) != "" {
			id = Identity(principal)
			fallback = false
		}
	}

	r.session = &Session{
		Identity:    id,
		Fingerprint: fingerprint(id, resolvedAt),
		ResolvedAt:  resolvedAt,
		Fallback:    fallback,
	}
	return *r.session
}

// Identity returns the resolved identity, resolving on first call.
func (r *Resolver) Identity(ctx context.Context) Identity {
	return r.Resolve(ctx).Identity
}

// fingerprint derives the 8-character session hash from the identity and
// the resolution timestamp.
func fingerprint(id Identity, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s", id, at.Format(time.RFC3339Nano))))
	return hex.EncodeToString(sum[:])[:8]
}
