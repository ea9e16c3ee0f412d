package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/testutil"
)

func TestResolve(t *testing.T) {
	d := New(Dependencies{
		AdminRepo: testutil.NewAdmins(domain.AdminProfile{ID: "a1", Name: "Ann"}),
		StaffRepo: testutil.NewStaff(
			domain.StaffProfile{ID: "s1", Name: "Sid", IsActive: true},
			domain.StaffProfile{ID: "s2", Name: "Sue", IsActive: false},
		),
		UserRepo: testutil.NewUsers(domain.UserProfile{ID: "u1", Name: "Uli", Email: "uli@example.com"}),
	})

	tests := []struct {
		name    string
		role    domain.Role
		id      string
		wantErr error
	}{
		{"admin present", domain.RoleAdmin, "a1", nil},
		{"admin absent", domain.RoleAdmin, "s1", ErrNotInRole},
		{"active staff", domain.RoleStaff, "s1", nil},
		{"inactive staff", domain.RoleStaff, "s2", ErrNotInRole},
		{"user present", domain.RoleUser, "u1", nil},
		{"user absent", domain.RoleUser, "a1", ErrNotInRole},
		{"empty id", domain.RoleAdmin, "", ErrNotInRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := d.Resolve(context.Background(), tt.role, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (profile.IdentityID() != tt.id || profile.Role() != tt.role) {
				t.Fatalf("unexpected profile %+v", profile)
			}
		})
	}
}

func TestEnsureUserProfileIsIdempotent(t *testing.T) {
	users := testutil.NewUsers(domain.UserProfile{ID: "taken", Name: "T", Phone: "+1", Email: "t@example.com"})
	d := New(Dependencies{AdminRepo: testutil.NewAdmins(), StaffRepo: testutil.NewStaff(), UserRepo: users})
	ctx := context.Background()

	identity := domain.Identity{ID: "new", Email: "n@example.com", Metadata: domain.IdentityMetadata{Name: "Nel", Phone: "+2"}}
	first, err := d.EnsureUserProfile(ctx, identity)
	if err != nil {
		t.Fatalf("EnsureUserProfile: %v", err)
	}
	second, err := d.EnsureUserProfile(ctx, identity)
	if err != nil {
		t.Fatalf("second EnsureUserProfile: %v", err)
	}
	if first.ID != second.ID || second.Phone != "+2" {
		t.Fatalf("unexpected profiles %+v %+v", first, second)
	}

	clash := domain.Identity{ID: "clash", Email: "c@example.com", Metadata: domain.IdentityMetadata{Phone: "+1"}}
	healed, err := d.EnsureUserProfile(ctx, clash)
	if err != nil {
		t.Fatalf("phone clash should still heal: %v", err)
	}
	if healed.Phone != "" || healed.Name != "c@example.com" {
		t.Fatalf("unexpected healed profile %+v", healed)
	}
}

func TestExcludedIDs(t *testing.T) {
	staff := testutil.NewStaff(
		domain.StaffProfile{ID: "s1", IsActive: true},
		domain.StaffProfile{ID: "s2", IsActive: false},
	)
	d := New(Dependencies{
		AdminRepo: testutil.NewAdmins(domain.AdminProfile{ID: "a1"}),
		StaffRepo: staff,
		UserRepo:  testutil.NewUsers(),
	})

	ids, err := d.ExcludedIDs(context.Background())
	if err != nil {
		t.Fatalf("ExcludedIDs: %v", err)
	}
	if len(ids.AdminIDs) != 1 || len(ids.StaffIDs) != 2 {
		t.Fatalf("inactive staff must still be excluded: %+v", ids)
	}

	staff.ListErr = errors.New("connection reset")
	if _, err := d.ExcludedIDs(context.Background()); err == nil {
		t.Fatal("expected error when staff ids cannot be listed")
	}
}
