package session

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/credential"
	"github.com/spec-kit/property-service/internal/directory"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/observability"
	"github.com/spec-kit/property-service/internal/repository"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

// Authenticator performs role-scoped sign-in and sign-up. It holds no
// session state and is shared by every Manager.
type Authenticator struct {
	provider  *credential.Provider
	directory *directory.Directory
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAuthenticator wires the provider to the role directory.
func NewAuthenticator(provider *credential.Provider, dir *directory.Directory, metrics *observability.Metrics, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{provider: provider, directory: dir, metrics: metrics, logger: logger}
}

// Provider exposes the shared credential provider.
func (a *Authenticator) Provider() *credential.Provider {
	return a.provider
}

// SignIn authenticates identifier/password and then requires membership in
// role. A password the provider accepts does not by itself grant the role:
// when the role check fails the fresh session is revoked.
func (a *Authenticator) SignIn(ctx context.Context, role domain.Role, identifier, password string) (*domain.Session, domain.RoleProfile, error) {
	session, profile, err := a.signIn(ctx, role, identifier, password)
	outcome := "success"
	switch {
	case err == nil:
	case apperrors.HasCode(err, apperrors.CodeNotAuthorizedForRole):
		outcome = "not_in_role"
	case apperrors.HasCode(err, apperrors.CodeInvalidCredentials), apperrors.HasCode(err, apperrors.CodeNotFound):
		outcome = "invalid_credentials"
	default:
		outcome = "error"
	}
	a.metrics.RecordSignIn(string(role), outcome)
	return session, profile, err
}

func (a *Authenticator) signIn(ctx context.Context, role domain.Role, identifier, password string) (*domain.Session, domain.RoleProfile, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, nil, apperrors.NewValidationError("identifier and password required", nil)
	}

	email := identifier
	if role == domain.RoleUser && !strings.Contains(identifier, "@") {
		profile, err := a.directory.FindUserByPhone(ctx, identifier)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, nil, apperrors.NewNotFound("user profile", nil)
			}
			return nil, nil, err
		}
		email = profile.Email
	}

	session, err := a.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	profile, err := a.ResolveProfile(ctx, role, session.Identity)
	if err != nil {
		if revokeErr := a.provider.SignOut(ctx, session.RefreshToken); revokeErr != nil {
			a.logger.Error("failed to revoke session after role check", zap.Error(revokeErr))
		}
		if errors.Is(err, directory.ErrNotInRole) {
			a.logger.Info("sign-in rejected for role",
				zap.String("role", string(role)),
				zap.String("identity_id", session.Identity.ID))
			return nil, nil, apperrors.NewNotAuthorizedForRole(string(role))
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	return session, profile, nil
}

// ResolveProfile returns the role profile for identity. A missing user
// profile is rebuilt from sign-up metadata rather than rejected.
func (a *Authenticator) ResolveProfile(ctx context.Context, role domain.Role, identity domain.Identity) (domain.RoleProfile, error) {
	if role == domain.RoleUser {
		profile, err := a.directory.EnsureUserProfile(ctx, identity)
		if err != nil {
			return nil, err
		}
		return profile, nil
	}
	return a.directory.Resolve(ctx, role, identity.ID)
}

// SignUpInput carries user registration fields.
type SignUpInput struct {
	Name     string
	Phone    string
	Email    string
	Password string
}

// SignUp registers a marketplace user. When the provider returns a session
// immediately the profile row is created eagerly; otherwise it is created on
// first authenticated access.
func (a *Authenticator) SignUp(ctx context.Context, input SignUpInput) (*domain.Identity, *domain.Session, *domain.UserProfile, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || input.Phone == "" || input.Email == "" || input.Password == "" {
		return nil, nil, nil, apperrors.NewValidationError("name, phone, email, password required", nil)
	}

	taken, err := a.directory.PhoneTaken(ctx, input.Phone)
	if err != nil {
		return nil, nil, nil, err
	}
	if taken {
		return nil, nil, nil, apperrors.NewDuplicatePhone()
	}
	taken, err = a.directory.EmailTaken(ctx, input.Email)
	if err != nil {
		return nil, nil, nil, err
	}
	if taken {
		return nil, nil, nil, apperrors.NewDuplicateEmail()
	}

	identity, session, err := a.provider.SignUp(ctx, input.Email, input.Password, domain.IdentityMetadata{
		Name:  input.Name,
		Phone: input.Phone,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if session == nil {
		return identity, nil, nil, nil
	}

	profile, err := a.directory.EnsureUserProfile(ctx, *identity)
	if err != nil {
		// the profile is rebuilt on first sign-in
		a.logger.Warn("eager profile creation failed", zap.String("identity_id", identity.ID), zap.Error(err))
		return identity, session, nil, nil
	}
	return identity, session, profile, nil
}
