package directory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/repository"
)

// ErrNotInRole is returned when an identity has no active row in the role table.
var ErrNotInRole = errors.New("identity does not hold role")

// Directory resolves role membership. Every call reads storage; nothing is cached.
type Directory struct {
	admins repository.AdminRepository
	staff  repository.StaffRepository
	users  repository.UserProfileRepository
	logger *zap.Logger
}

// Dependencies bundles the role tables.
type Dependencies struct {
	AdminRepo repository.AdminRepository
	StaffRepo repository.StaffRepository
	UserRepo  repository.UserProfileRepository
	Logger    *zap.Logger
}

// New constructs a Directory.
func New(deps Dependencies) *Directory {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		admins: deps.AdminRepo,
		staff:  deps.StaffRepo,
		users:  deps.UserRepo,
		logger: logger,
	}
}

// Resolve returns the role profile for identityID. Absent rows and inactive
// staff yield ErrNotInRole; storage failures are returned as-is.
func (d *Directory) Resolve(ctx context.Context, role domain.Role, identityID string) (domain.RoleProfile, error) {
	if identityID == "" {
		return nil, ErrNotInRole
	}
	switch role {
	case domain.RoleAdmin:
		admin, err := d.admins.GetByID(ctx, identityID)
		if err != nil {
			return nil, notInRole(err)
		}
		return admin, nil
	case domain.RoleStaff:
		staff, err := d.staff.GetByID(ctx, identityID)
		if err != nil {
			return nil, notInRole(err)
		}
		if !staff.IsActive {
			return nil, ErrNotInRole
		}
		return staff, nil
	case domain.RoleUser:
		user, err := d.users.GetByID(ctx, identityID)
		if err != nil {
			return nil, notInRole(err)
		}
		return user, nil
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
}

func notInRole(err error) error {
	if repository.IsNotFound(err) {
		return ErrNotInRole
	}
	return err
}

// EnsureUserProfile returns the user profile for identity, creating it from
// sign-up metadata when missing. Safe to call repeatedly.
func (d *Directory) EnsureUserProfile(ctx context.Context, identity domain.Identity) (*domain.UserProfile, error) {
	existing, err := d.users.GetByID(ctx, identity.ID)
	if err == nil {
		return existing, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	profile := &domain.UserProfile{
		ID:    identity.ID,
		Name:  identity.Metadata.Name,
		Phone: identity.Metadata.Phone,
		Email: identity.Email,
	}
	if profile.Name == "" {
		profile.Name = identity.Email
	}
	if err := d.users.Create(ctx, profile); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		// lost a race with a concurrent self-heal, or the phone is taken
		if existing, getErr := d.users.GetByID(ctx, identity.ID); getErr == nil {
			return existing, nil
		}
		if profile.Phone == "" {
			return nil, err
		}
		d.logger.Warn("phone already registered, creating profile without phone",
			zap.String("identity_id", identity.ID))
		profile.Phone = ""
		if err := d.users.Create(ctx, profile); err != nil {
			return nil, err
		}
	}
	d.logger.Info("user profile created from identity metadata", zap.String("identity_id", identity.ID))
	return profile, nil
}

// FindUserByPhone looks up a user profile by phone number.
func (d *Directory) FindUserByPhone(ctx context.Context, phone string) (*domain.UserProfile, error) {
	return d.users.GetByPhone(ctx, phone)
}

// PhoneTaken reports whether a user profile already uses phone.
func (d *Directory) PhoneTaken(ctx context.Context, phone string) (bool, error) {
	_, err := d.users.GetByPhone(ctx, phone)
	if err == nil {
		return true, nil
	}
	if repository.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// EmailTaken reports whether a user profile already uses email.
func (d *Directory) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := d.users.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if repository.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// ExcludedIDs lists every admin and staff identity, active or not.
func (d *Directory) ExcludedIDs(ctx context.Context) (domain.ExcludedIDs, error) {
	adminIDs, err := d.admins.ListIDs(ctx)
	if err != nil {
		return domain.ExcludedIDs{}, fmt.Errorf("list admin ids: %w", err)
	}
	staffIDs, err := d.staff.ListIDs(ctx)
	if err != nil {
		return domain.ExcludedIDs{}, fmt.Errorf("list staff ids: %w", err)
	}
	if adminIDs == nil {
		adminIDs = []string{}
	}
	if staffIDs == nil {
		staffIDs = []string{}
	}
	return domain.ExcludedIDs{AdminIDs: adminIDs, StaffIDs: staffIDs}, nil
}

// ListUsers returns every user profile.
func (d *Directory) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	return d.users.ListAll(ctx)
}

// ListStaff returns staff members matching filter.
func (d *Directory) ListStaff(ctx context.Context, filter repository.StaffFilter) ([]domain.StaffProfile, error) {
	return d.staff.List(ctx, filter)
}

// ActiveStaff returns the staff member when it exists and is active.
func (d *Directory) ActiveStaff(ctx context.Context, staffID string) (*domain.StaffProfile, error) {
	profile, err := d.Resolve(ctx, domain.RoleStaff, staffID)
	if err != nil {
		return nil, err
	}
	return profile.(*domain.StaffProfile), nil
}
