package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spec-kit/property-service/internal/domain"
)

func TestRegistryManagerPerRoleAndClient(t *testing.T) {
	f := newFixture(t, false)
	r := NewRegistry(f.auth, f.store, "test.auth", time.Hour, nil)

	admin := r.Manager(domain.RoleAdmin, "client-a")
	if again := r.Manager(domain.RoleAdmin, "client-a"); again != admin {
		t.Fatal("same role and client should share a manager")
	}
	if other := r.Manager(domain.RoleAdmin, "client-b"); other == admin {
		t.Fatal("different clients must not share a manager")
	}
	staff := r.Manager(domain.RoleStaff, "client-a")
	if staff == admin || staff.Namespace() == admin.Namespace() {
		t.Fatal("roles on one client must be isolated")
	}
}

func TestRegistryRelease(t *testing.T) {
	f := newFixture(t, false)
	r := NewRegistry(f.auth, f.store, "test.auth", time.Hour, nil)

	first := r.Manager(domain.RoleUser, "client-a")
	r.Release(domain.RoleUser, "client-a")
	second := r.Manager(domain.RoleUser, "client-a")
	if first == second {
		t.Fatal("expected a fresh manager after release")
	}
	if first.Namespace() != second.Namespace() {
		t.Fatal("released manager should reuse the same storage namespace")
	}
}

func TestRegistryLookupDoesNotGrowForUnknownClients(t *testing.T) {
	f := newFixture(t, false)
	r := NewRegistry(f.auth, f.store, "test.auth", time.Hour, nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		m, err := r.Lookup(ctx, domain.RoleUser, fmt.Sprintf("client-%d", i))
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if m != nil {
			t.Fatalf("client-%d has no session, got a manager", i)
		}
	}
	if n := r.Len(); n != 0 {
		t.Fatalf("registry holds %d managers, want 0", n)
	}
}

func TestRegistryLookupRebuildsFromStore(t *testing.T) {
	f := newFixture(t, false)
	f.identity(t, "lou@example.com", domain.IdentityMetadata{Name: "Lou"})
	ctx := context.Background()
	r := NewRegistry(f.auth, f.store, "test.auth", time.Hour, nil)

	if _, _, err := r.Manager(domain.RoleUser, "tablet").SignIn(ctx, "lou@example.com", testPassword); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	r.Release(domain.RoleUser, "tablet")

	m, err := r.Lookup(ctx, domain.RoleUser, "tablet")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if m == nil {
		t.Fatal("expected a manager for the stored session")
	}
	profile, err := m.Restore(ctx)
	if err != nil || profile == nil {
		t.Fatalf("Restore: %v %v", profile, err)
	}
}

func TestRegistryEvictsIdleManagers(t *testing.T) {
	f := newFixture(t, false)
	clock := &testClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(f.auth, f.store, "test.auth", time.Hour, nil).WithIdleTimeout(10*time.Minute, clock.Now)

	stale := r.Manager(domain.RoleUser, "stale")
	clock.Advance(6 * time.Minute)
	r.Manager(domain.RoleUser, "fresh")
	clock.Advance(6 * time.Minute)
	r.Manager(domain.RoleAdmin, "trigger")

	if n := r.Len(); n != 2 {
		t.Fatalf("registry holds %d managers, want 2", n)
	}
	if again := r.Manager(domain.RoleUser, "stale"); again == stale {
		t.Fatal("idle manager should have been evicted")
	}
}

func TestRegistryReleaseIfEmpty(t *testing.T) {
	f := newFixture(t, false)
	f.identity(t, "kim@example.com", domain.IdentityMetadata{Name: "Kim"})
	ctx := context.Background()
	r := NewRegistry(f.auth, f.store, "test.auth", time.Hour, nil)

	r.Manager(domain.RoleUser, "failed")
	r.ReleaseIfEmpty(domain.RoleUser, "failed")

	active := r.Manager(domain.RoleUser, "active")
	if _, _, err := active.SignIn(ctx, "kim@example.com", testPassword); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	r.ReleaseIfEmpty(domain.RoleUser, "active")

	if n := r.Len(); n != 1 {
		t.Fatalf("registry holds %d managers, want 1", n)
	}
}
