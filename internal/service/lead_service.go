package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/domain"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

// ExclusionSource lists identities that belong to internal roles.
type ExclusionSource interface {
	ExcludedIDs(ctx context.Context) (domain.ExcludedIDs, error)
}

// ProfileSource lists marketplace user profiles.
type ProfileSource interface {
	ListUsers(ctx context.Context) ([]domain.UserProfile, error)
}

// ComputeLeadList drops every profile whose id is an admin or staff id.
func ComputeLeadList(profiles []domain.UserProfile, excluded domain.ExcludedIDs) []domain.UserProfile {
	skip := excluded.Set()
	leads := make([]domain.UserProfile, 0, len(profiles))
	for _, p := range profiles {
		if _, internal := skip[p.ID]; internal {
			continue
		}
		leads = append(leads, p)
	}
	return leads
}

// LeadService builds lead views over user profiles.
type LeadService struct {
	profiles   ProfileSource
	exclusions ExclusionSource
	logger     *zap.Logger
}

// NewLeadService constructs the service.
func NewLeadService(profiles ProfileSource, exclusions ExclusionSource, logger *zap.Logger) *LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{profiles: profiles, exclusions: exclusions, logger: logger}
}

// ExcludedIDs returns the admin and staff id lists.
func (s *LeadService) ExcludedIDs(ctx context.Context, caller *domain.AuthContext) (domain.ExcludedIDs, error) {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return domain.ExcludedIDs{}, err
	}
	ids, err := s.exclusions.ExcludedIDs(ctx)
	if err != nil {
		return domain.ExcludedIDs{}, apperrors.NewInternalError(err)
	}
	return ids, nil
}

// Leads returns user profiles minus internal accounts. A failed exclusion
// fetch fails the whole view; the unfiltered list is never returned.
func (s *LeadService) Leads(ctx context.Context, caller *domain.AuthContext) ([]domain.UserProfile, error) {
	if err := requireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	excluded, err := s.exclusions.ExcludedIDs(ctx)
	if err != nil {
		s.logger.Error("exclusion list unavailable, refusing lead view", zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Errorf("load exclusion ids: %w", err))
	}
	profiles, err := s.profiles.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load user profiles: %w", err))
	}
	return ComputeLeadList(profiles, excluded), nil
}
