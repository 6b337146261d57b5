package redflag

import (
	"context"
	"testing"

	"github.com/rowguard-labs/rowguard/internal/store"
)

// TestUpdateOfForeignRowIsSilentNoop verifies a session cannot modify
// another identity's record, and learns nothing from the attempt.
func TestUpdateOfForeignRowIsSilentNoop(t *testing.T) {
	db := sharedDatabase(t)
	ada := newSession(t, db, "ada@example.com")
	grace := newSession(t, db, "grace@example.com")

	mustCreate(t, ada, map[string]string{"name": "ada-original", "email": "a@x.y"})
	adaRow := firstID(t, ada)

	out := grace.store.Update(context.Background(), adaRow, map[string]string{"name": "hijacked"}, grace.id())
	if out.Kind != store.OutcomeNoop {
		t.Fatalf("expected silent noop, got %+v", out)
	}
	if out.RowsAffected != 0 {
		t.Errorf("expected zero rows affected, got %d", out.RowsAffected)
	}

	// The row is untouched.
	if name := fieldOfFirst(t, ada, "name"); name != "ada-original" {
		t.Errorf("foreign update modified the row: %v", name)
	}
}

// TestDeleteOfForeignRowIsSilentNoop verifies a session cannot remove
// another identity's record.
func TestDeleteOfForeignRowIsSilentNoop(t *testing.T) {
	db := sharedDatabase(t)
	ada := newSession(t, db, "ada@example.com")
	grace := newSession(t, db, "grace@example.com")

	mustCreate(t, ada, map[string]string{"name": "ada-row", "email": "a@x.y"})
	adaRow := firstID(t, ada)

	out := grace.store.Delete(context.Background(), adaRow, grace.id())
	if out.Kind != store.OutcomeNoop {
		t.Fatalf("expected silent noop, got %+v", out)
	}

	// Ada still has her record.
	set, _ := ada.store.List(context.Background(), ada.id(), nil)
	if set.Len() != 1 {
		t.Errorf("foreign delete removed the row")
	}
}

// TestNoopIndistinguishableFromMissingRow verifies the outcome for a row
// owned by someone else matches the outcome for a row that does not exist.
func TestNoopIndistinguishableFromMissingRow(t *testing.T) {
	db := sharedDatabase(t)
	ada := newSession(t, db, "ada@example.com")
	grace := newSession(t, db, "grace@example.com")

	mustCreate(t, ada, map[string]string{"name": "ada-row", "email": "a@x.y"})
	adaRow := firstID(t, ada)

	ctx := context.Background()
	foreign := grace.store.Delete(ctx, adaRow, grace.id())
	missing := grace.store.Delete(ctx, adaRow+100, grace.id())

	if foreign != missing {
		t.Errorf("outcomes leak ownership information:\nforeign: %+v\nmissing: %+v", foreign, missing)
	}
}

// TestSentinelIdentityCannotReachRows verifies the fallback identity owns
// nothing and its mutations touch nothing.
func TestSentinelIdentityCannotReachRows(t *testing.T) {
	db := sharedDatabase(t)
	ada := newSession(t, db, "ada@example.com")
	degraded := newSession(t, db, "")

	mustCreate(t, ada, map[string]string{"name": "ada-row", "email": "a@x.y"})
	adaRow := firstID(t, ada)

	out := degraded.store.Delete(context.Background(), adaRow, degraded.id())
	if out.Kind != store.OutcomeNoop {
		t.Fatalf("expected noop for sentinel delete, got %+v", out)
	}
}
