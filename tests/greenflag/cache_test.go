package greenflag

import (
	"context"
	"testing"

	"github.com/rowguard-labs/rowguard/internal/store"
)

// TestViewInvalidatedByEveryMutation verifies create, update and delete
// each advance the view generation so the next read fetches fresh data.
func TestViewInvalidatedByEveryMutation(t *testing.T) {
	s := newSession(t, sharedDatabase(t), "ada@example.com")
	ctx := context.Background()

	gen := s.store.View().Generation()
	mustCreate(t, s, map[string]string{"name": "Ada", "email": "a@x.y"})
	if s.store.View().Generation() <= gen {
		t.Error("create did not invalidate the view")
	}

	set := mustList(t, s, nil)
	id, _ := set.Field(0, "id")

	gen = s.store.View().Generation()
	if out := s.store.Update(ctx, id.(int64), map[string]string{"notes": "x"}, s.id()); out.Kind != store.OutcomeSuccess {
		t.Fatalf("update failed: %+v", out)
	}
	if s.store.View().Generation() <= gen {
		t.Error("update did not invalidate the view")
	}

	gen = s.store.View().Generation()
	if out := s.store.Delete(ctx, id.(int64), s.id()); out.Kind != store.OutcomeSuccess {
		t.Fatalf("delete failed: %+v", out)
	}
	if s.store.View().Generation() <= gen {
		t.Error("delete did not invalidate the view")
	}
}

// TestListAfterMutationSeesNewData verifies the read-after-write cycle: a
// mutation followed by a list returns the fresh state, not a stale view.
func TestListAfterMutationSeesNewData(t *testing.T) {
	s := newSession(t, sharedDatabase(t), "ada@example.com")

	mustCreate(t, s, map[string]string{"name": "before", "email": "b@x.y"})
	set := mustList(t, s, nil)
	id, _ := set.Field(0, "id")

	out := s.store.Update(context.Background(), id.(int64), map[string]string{"name": "after"}, s.id())
	if out.Kind != store.OutcomeSuccess {
		t.Fatalf("update failed: %+v", out)
	}

	got := names(t, mustList(t, s, nil))
	if len(got) != 1 || got[0] != "after" {
		t.Errorf("expected fresh data after mutation, got %v", got)
	}
}

// TestRefreshForcesFetch verifies an explicit refresh discards the view
// without a mutation.
func TestRefreshForcesFetch(t *testing.T) {
	s := newSession(t, sharedDatabase(t), "ada@example.com")

	mustCreate(t, s, map[string]string{"name": "Ada", "email": "a@x.y"})
	mustList(t, s, nil)

	gen := s.store.View().Generation()
	s.store.Refresh()
	if s.store.View().Generation() != gen+1 {
		t.Error("refresh did not advance the view generation")
	}
	if s.store.View().Valid() {
		t.Error("refresh left the view valid")
	}
}
