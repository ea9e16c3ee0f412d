// Package credential is the identity provider shared by every role: it
// verifies passwords, issues bearer sessions and resolves tokens. It knows
// nothing about roles.
package credential

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/auth"
	"github.com/spec-kit/property-service/internal/config"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/events"
	"github.com/spec-kit/property-service/internal/repository"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

// Provider issues and verifies bearer sessions.
type Provider struct {
	credentials         repository.CredentialRepository
	tokens              repository.TokenStore
	access              *auth.TokenManager
	recovery            *auth.TokenManager
	dispatcher          events.Dispatcher
	logger              *zap.Logger
	bcryptCost          int
	refreshTTL          time.Duration
	recoveryTTL         time.Duration
	requireConfirmation bool
	now                 func() time.Time
}

// Dependencies bundles provider collaborators.
type Dependencies struct {
	CredentialRepo repository.CredentialRepository
	TokenStore     repository.TokenStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewProvider builds the provider from auth configuration.
func NewProvider(cfg config.AuthConfig, deps Dependencies) *Provider {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Provider{
		credentials:         deps.CredentialRepo,
		tokens:              deps.TokenStore,
		access:              auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()).WithClock(now),
		recovery:            auth.NewTokenManager(cfg.JWTSecret, cfg.RecoveryTokenTTL()).WithClock(now),
		dispatcher:          deps.Dispatcher,
		logger:              logger,
		bcryptCost:          cfg.BcryptCost,
		refreshTTL:          cfg.RefreshTokenTTL(),
		recoveryTTL:         cfg.RecoveryTokenTTL(),
		requireConfirmation: cfg.RequireEmailConfirmation,
		now:                 now,
	}
}

// RequiresEmailConfirmation reports whether sign-up defers the session.
func (p *Provider) RequiresEmailConfirmation() bool {
	return p.requireConfirmation
}

// SignIn exchanges email and password for a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	cred, err := p.credentials.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, err
	}
	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}
	if p.requireConfirmation && cred.Identity.EmailConfirmedAt == nil {
		return nil, apperrors.NewEmailNotConfirmed()
	}

	session, err := p.issueSession(ctx, cred.Identity)
	if err != nil {
		return nil, err
	}
	p.publish(ctx, events.EventSignedIn, cred.Identity.ID, events.SessionPayload{Session: session})
	return session, nil
}

// SignUp creates an identity. The session is nil when email confirmation is
// required; a confirmation token is then issued out-of-band.
func (p *Provider) SignUp(ctx context.Context, email, password string, metadata domain.IdentityMetadata) (*domain.Identity, *domain.Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, apperrors.NewValidationError("valid email required", nil)
	}
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return nil, nil, apperrors.NewWeakPassword(err.Error())
	}
	hash, err := auth.HashPassword(password, p.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	cred := &repository.Credential{
		Identity:     domain.Identity{Email: email, Metadata: metadata},
		PasswordHash: hash,
	}
	if !p.requireConfirmation {
		confirmedAt := p.now()
		cred.Identity.EmailConfirmedAt = &confirmedAt
	}
	if err := p.credentials.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, apperrors.NewDuplicateEmail()
		}
		return nil, nil, err
	}
	identity := cred.Identity

	if p.requireConfirmation {
		if err := p.issueOutOfBand(ctx, repository.TokenConfirmation, events.EventEmailConfirmationRequested, identity); err != nil {
			return nil, nil, err
		}
		return &identity, nil, nil
	}

	session, err := p.issueSession(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	p.publish(ctx, events.EventSignedIn, identity.ID, events.SessionPayload{Session: session})
	return &identity, session, nil
}

// ConfirmEmail consumes a confirmation token and marks the identity confirmed.
func (p *Provider) ConfirmEmail(ctx context.Context, token string) (*domain.Identity, error) {
	identityID, err := p.consume(ctx, repository.TokenConfirmation, token)
	if err != nil {
		return nil, err
	}
	if err := p.credentials.ConfirmEmail(ctx, identityID, p.now()); err != nil {
		return nil, err
	}
	cred, err := p.credentials.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	p.publish(ctx, events.EventUserUpdated, identityID, nil)
	return &cred.Identity, nil
}

// Refresh rotates a refresh token into a new session.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	identityID, err := p.consume(ctx, repository.TokenRefresh, refreshToken)
	if err != nil {
		return nil, err
	}
	cred, err := p.credentials.GetByID(ctx, identityID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewInvalidToken()
		}
		return nil, err
	}
	session, err := p.issueSession(ctx, cred.Identity)
	if err != nil {
		return nil, err
	}
	p.publish(ctx, events.EventTokenRefreshed, identityID, events.SessionPayload{Session: session})
	return session, nil
}

// SignOut revokes a single refresh token. Unknown tokens are ignored.
func (p *Provider) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	identityID, err := p.tokens.Consume(ctx, repository.TokenRefresh, refreshToken)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	p.publish(ctx, events.EventSignedOut, identityID, events.SessionPayload{})
	return nil
}

// RequestPasswordReset issues a recovery token. Unknown emails succeed
// silently so the endpoint does not reveal which emails are registered.
func (p *Provider) RequestPasswordReset(ctx context.Context, email string) error {
	cred, err := p.credentials.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if repository.IsNotFound(err) {
			p.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}
	return p.issueOutOfBand(ctx, repository.TokenRecovery, events.EventPasswordRecoveryRequested, cred.Identity)
}

// VerifyRecovery exchanges a recovery token for a recovery session that
// only authorizes UpdatePassword.
func (p *Provider) VerifyRecovery(ctx context.Context, token string) (*domain.Session, error) {
	identityID, err := p.consume(ctx, repository.TokenRecovery, token)
	if err != nil {
		return nil, err
	}
	cred, err := p.credentials.GetByID(ctx, identityID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewInvalidToken()
		}
		return nil, err
	}
	accessToken, expiresAt, err := p.recovery.GenerateToken(identityID, true)
	if err != nil {
		return nil, err
	}
	session := &domain.Session{
		Identity:    cred.Identity,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Recovery:    true,
	}
	p.publish(ctx, events.EventPasswordRecovery, identityID, events.SessionPayload{Session: session})
	return session, nil
}

// UpdatePassword sets a new password. Only a recovery session may call it.
func (p *Provider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	claims, err := p.recovery.ParseToken(accessToken)
	if err != nil {
		return apperrors.NewInvalidToken()
	}
	if !claims.Recovery {
		return apperrors.NewRecoveryRequired()
	}
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return apperrors.NewWeakPassword(err.Error())
	}
	hash, err := auth.HashPassword(newPassword, p.bcryptCost)
	if err != nil {
		return err
	}
	if err := p.credentials.UpdatePassword(ctx, claims.Subject, hash); err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewInvalidToken()
		}
		return err
	}
	p.logger.Info("password updated", zap.String("identity_id", claims.Subject))
	p.publish(ctx, events.EventUserUpdated, claims.Subject, nil)
	return nil
}

// ResolveToken maps a bearer access token to its identity. Recovery tokens
// and tokens for deleted identities yield auth.ErrInvalidToken.
func (p *Provider) ResolveToken(ctx context.Context, bearer string) (*domain.Identity, error) {
	claims, err := p.access.ParseToken(bearer)
	if err != nil || claims.Recovery {
		return nil, auth.ErrInvalidToken
	}
	cred, err := p.credentials.GetByID(ctx, claims.Subject)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return &cred.Identity, nil
}

func (p *Provider) issueSession(ctx context.Context, identity domain.Identity) (*domain.Session, error) {
	accessToken, expiresAt, err := p.access.GenerateToken(identity.ID, false)
	if err != nil {
		return nil, err
	}
	refreshToken := uuid.NewString()
	if err := p.tokens.Put(ctx, repository.TokenRefresh, refreshToken, identity.ID, p.refreshTTL); err != nil {
		return nil, err
	}
	return &domain.Session{
		Identity:     identity,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (p *Provider) issueOutOfBand(ctx context.Context, kind repository.TokenKind, eventType events.EventType, identity domain.Identity) error {
	token := uuid.NewString()
	if err := p.tokens.Put(ctx, kind, token, identity.ID, p.recoveryTTL); err != nil {
		return err
	}
	p.publish(ctx, eventType, identity.ID, events.TokenIssuedPayload{
		Email:     identity.Email,
		Token:     token,
		ExpiresAt: p.now().Add(p.recoveryTTL),
	})
	return nil
}

func (p *Provider) consume(ctx context.Context, kind repository.TokenKind, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", apperrors.NewInvalidToken()
	}
	identityID, err := p.tokens.Consume(ctx, kind, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return "", apperrors.NewInvalidToken()
		}
		return "", err
	}
	return identityID, nil
}

func (p *Provider) publish(ctx context.Context, eventType events.EventType, identityID string, payload any) {
	if p.dispatcher == nil {
		return
	}
	_ = p.dispatcher.Publish(ctx, events.New(eventType, identityID, identityID, payload))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
