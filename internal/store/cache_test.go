package store

import (
	"testing"

	"github.com/rowguard-labs/rowguard/internal/identity"
)

func TestCachedView_MissWhenEmpty(t *testing.T) {
	v := NewCachedView()
	if _, ok := v.Get("ada", nil); ok {
		t.Error("expected miss on empty view")
	}
	if v.Valid() {
		t.Error("expected new view to be invalid")
	}
}

func TestCachedView_HitForSameOwnerAndFilters(t *testing.T) {
	v := NewCachedView()
	set := &RecordSet{Columns: []string{"id"}, Rows: [][]interface{}{{1}}}
	filters := map[string]string{"name": "ada"}

	v.Put("ada", filters, set)

	got, ok := v.Get("ada", map[string]string{"name": "ada"})
	if !ok || got != set {
		t.Fatalf("expected hit, got ok=%v set=%v", ok, got)
	}
}

func TestCachedView_MissOnDifferentOwnerOrFilters(t *testing.T) {
	v := NewCachedView()
	v.Put("ada", map[string]string{"name": "ada"}, &RecordSet{})

	if _, ok := v.Get("grace", map[string]string{"name": "ada"}); ok {
		t.Error("expected miss for different owner")
	}
	if _, ok := v.Get("ada", map[string]string{"name": "grace"}); ok {
		t.Error("expected miss for different filter value")
	}
	if _, ok := v.Get("ada", nil); ok {
		t.Error("expected miss for different filter set")
	}
}

func TestCachedView_InvalidateAdvancesGeneration(t *testing.T) {
	v := NewCachedView()
	v.Put("ada", nil, &RecordSet{})

	before := v.Generation()
	v.Invalidate()

	if _, ok := v.Get("ada", nil); ok {
		t.Error("expected miss after invalidation")
	}
	if v.Generation() != before+1 {
		t.Errorf("expected generation %d, got %d", before+1, v.Generation())
	}
}

func TestCachedView_PutRestoresValidity(t *testing.T) {
	v := NewCachedView()
	v.Put(identity.Sentinel, nil, &RecordSet{})
	v.Invalidate()
	v.Put(identity.Sentinel, nil, &RecordSet{})

	if !v.Valid() {
		t.Error("expected view to be valid after fresh put")
	}
}
