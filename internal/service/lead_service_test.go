package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/property-service/internal/domain"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

type mockExclusions struct {
	ExcludedIDsFn func(ctx context.Context) (domain.ExcludedIDs, error)
}

func (m *mockExclusions) ExcludedIDs(ctx context.Context) (domain.ExcludedIDs, error) {
	return m.ExcludedIDsFn(ctx)
}

type mockProfiles struct {
	ListUsersFn func(ctx context.Context) ([]domain.UserProfile, error)
	calls       int
}

func (m *mockProfiles) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	m.calls++
	return m.ListUsersFn(ctx)
}

func TestComputeLeadList(t *testing.T) {
	profiles := []domain.UserProfile{{ID: "u1"}, {ID: "a1"}, {ID: "s1"}, {ID: "u2"}}
	excluded := domain.ExcludedIDs{AdminIDs: []string{"a1"}, StaffIDs: []string{"s1", "ghost"}}

	leads := ComputeLeadList(profiles, excluded)
	if len(leads) != 2 || leads[0].ID != "u1" || leads[1].ID != "u2" {
		t.Fatalf("unexpected leads %+v", leads)
	}

	if got := ComputeLeadList(nil, excluded); got == nil || len(got) != 0 {
		t.Fatalf("empty input should yield empty, non-nil slice, got %#v", got)
	}
}

func TestLeadsFailsClosed(t *testing.T) {
	profiles := &mockProfiles{ListUsersFn: func(context.Context) ([]domain.UserProfile, error) {
		return []domain.UserProfile{{ID: "a1"}, {ID: "u1"}}, nil
	}}
	exclusions := &mockExclusions{ExcludedIDsFn: func(context.Context) (domain.ExcludedIDs, error) {
		return domain.ExcludedIDs{}, errors.New("staff table unavailable")
	}}
	svc := NewLeadService(profiles, exclusions, nil)

	leads, err := svc.Leads(context.Background(), caller(domain.RoleAdmin, "a1"))
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if leads != nil {
		t.Fatalf("no leads may be returned on failure, got %+v", leads)
	}
	if profiles.calls != 0 {
		t.Fatal("profiles should not be loaded when exclusions fail")
	}
}

func TestLeadsRequiresAdmin(t *testing.T) {
	svc := NewLeadService(&mockProfiles{}, &mockExclusions{}, nil)
	if _, err := svc.Leads(context.Background(), caller(domain.RoleStaff, "s1")); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.ExcludedIDs(context.Background(), nil); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLeadsFiltersInternalAccounts(t *testing.T) {
	profiles := &mockProfiles{ListUsersFn: func(context.Context) ([]domain.UserProfile, error) {
		return []domain.UserProfile{{ID: "a1"}, {ID: "u1"}, {ID: "s1"}}, nil
	}}
	exclusions := &mockExclusions{ExcludedIDsFn: func(context.Context) (domain.ExcludedIDs, error) {
		return domain.ExcludedIDs{AdminIDs: []string{"a1"}, StaffIDs: []string{"s1"}}, nil
	}}
	svc := NewLeadService(profiles, exclusions, nil)

	leads, err := svc.Leads(context.Background(), caller(domain.RoleAdmin, "a1"))
	if err != nil {
		t.Fatalf("Leads: %v", err)
	}
	if len(leads) != 1 || leads[0].ID != "u1" {
		t.Fatalf("unexpected leads %+v", leads)
	}
}
