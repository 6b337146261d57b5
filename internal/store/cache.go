package store

import (
	"sync"

	"github.com/rowguard-labs/rowguard/internal/identity"
)

// CachedView is the session-scoped snapshot of the current identity's
// filtered record set. It is stale the moment any mutation by this session
// succeeds; uninitialized and explicitly-invalidated states are equivalent,
// both forcing a fresh fetch.
type CachedView struct {
	mu         sync.Mutex
	valid      bool
	owner      identity.Identity
	filters    map[string]string
	set        *RecordSet
	generation uint64
}

// NewCachedView creates an empty, invalid view.
func NewCachedView() *CachedView {
	return &CachedView{}
}

// Get returns the cached set if it is valid for the given identity and
// normalized filter set.
func (v *CachedView) Get(owner identity.Identity, filters map[string]string) (*RecordSet, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.valid || v.owner != owner || !filtersEqual(v.filters, filters) {
		return nil, false
	}
	return v.set, true
}

// Put replaces the snapshot after a fresh fetch.
func (v *CachedView) Put(owner identity.Identity, filters map[string]string, set *RecordSet) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.valid = true
	v.owner = owner
	v.filters = filters
	v.set = set
}

// Invalidate discards the snapshot and advances the generation counter.
// Front ends holding a previously fetched set compare generations to know
// it can no longer be trusted.
func (v *CachedView) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.valid = false
	v.set = nil
	v.generation++
}

// Generation returns the invalidation counter.
func (v *CachedView) Generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generation
}

// Valid reports whether the snapshot can be served.
func (v *CachedView) Valid() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.valid
}

func filtersEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		if bv, ok := b[k]; !ok || av != bv {
			return false
		}
	}
	return true
}
