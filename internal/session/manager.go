package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/property-service/internal/directory"
	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/events"
	apperrors "github.com/spec-kit/property-service/pkg/util"
)

// Manager holds the single live session of one role for one client runtime.
// Managers for different roles never share state; they share only the
// stateless Authenticator.
type Manager struct {
	role      domain.Role
	auth      *Authenticator
	store     Store
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	resolving singleflight.Group

	mu       sync.RWMutex
	session  *domain.Session
	profile  domain.RoleProfile
	recovery *domain.Session
}

// ManagerDependencies bundles Manager collaborators.
type ManagerDependencies struct {
	Authenticator *Authenticator
	Store         Store
	Prefix        string
	ClientID      string
	SessionTTL    time.Duration
	Logger        *zap.Logger
	Clock         func() time.Time
}

// NewManager builds the manager for role.
func NewManager(role domain.Role, deps ManagerDependencies) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	store := deps.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		role:      role,
		auth:      deps.Authenticator,
		store:     store,
		namespace: Namespace(deps.Prefix, role, deps.ClientID),
		ttl:       deps.SessionTTL,
		logger:    logger.With(zap.String("role", string(role))),
		now:       now,
	}
}

// Role returns the manager's role.
func (m *Manager) Role() domain.Role {
	return m.role
}

// Namespace returns the storage key of this manager's session.
func (m *Manager) Namespace() string {
	return m.namespace
}

// SignIn replaces this role's session. identifier is an email, or a phone
// number for the user role.
func (m *Manager) SignIn(ctx context.Context, identifier, password string) (*domain.Session, domain.RoleProfile, error) {
	session, profile, err := m.auth.SignIn(ctx, m.role, identifier, password)
	if err != nil {
		return nil, nil, err
	}
	if err := m.adopt(ctx, session, profile); err != nil {
		return nil, nil, err
	}
	return session, profile, nil
}

// SignUp registers a user. Only the user role supports it. The returned
// session is nil when email confirmation is pending.
func (m *Manager) SignUp(ctx context.Context, input SignUpInput) (*domain.Identity, *domain.Session, error) {
	if m.role != domain.RoleUser {
		return nil, nil, apperrors.NewForbidden("sign-up is only available to users")
	}
	identity, session, profile, err := m.auth.SignUp(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return identity, nil, nil
	}
	var roleProfile domain.RoleProfile
	if profile != nil {
		roleProfile = profile
	}
	if err := m.adopt(ctx, session, roleProfile); err != nil {
		return nil, nil, err
	}
	return identity, session, nil
}

// SignOut destroys this role's session only.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.profile = nil
	m.mu.Unlock()

	if session == nil {
		if stored, err := m.store.Load(ctx, m.namespace); err == nil {
			session = stored
		}
	}
	if err := m.store.Delete(ctx, m.namespace); err != nil {
		return err
	}
	if session != nil {
		return m.auth.Provider().SignOut(ctx, session.RefreshToken)
	}
	return nil
}

// RequestPasswordReset asks the provider to deliver a recovery token out of
// band. It grants this manager nothing; only HandleRecovery does.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	return m.auth.Provider().RequestPasswordReset(ctx, email)
}

// HandleRecovery exchanges a recovery token for the recovery session that
// gates ResetPassword. Only the manager that presents the token holds it.
func (m *Manager) HandleRecovery(ctx context.Context, token string) error {
	recovery, err := m.auth.Provider().VerifyRecovery(ctx, token)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.recovery = recovery
	m.mu.Unlock()
	return nil
}

// ResetPassword sets a new password within a live recovery session.
func (m *Manager) ResetPassword(ctx context.Context, newPassword string) error {
	m.mu.RLock()
	recovery := m.recovery
	m.mu.RUnlock()
	if recovery == nil || recovery.Expired(m.now()) {
		return apperrors.NewRecoveryRequired()
	}
	if err := m.auth.Provider().UpdatePassword(ctx, recovery.AccessToken, newPassword); err != nil {
		return err
	}
	m.mu.Lock()
	m.recovery = nil
	m.mu.Unlock()
	return nil
}

// CurrentProfile returns the last resolved profile without blocking. It is
// nil until a resolution completes.
func (m *Manager) CurrentProfile() domain.RoleProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

func (m *Manager) empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session == nil && m.recovery == nil
}

// Session returns the live session, if any.
func (m *Manager) Session() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Restore loads the persisted session, refreshing it when expired, and
// resolves the role profile. It returns nil when no session is stored.
func (m *Manager) Restore(ctx context.Context) (domain.RoleProfile, error) {
	session := m.Session()
	if session == nil {
		stored, err := m.store.Load(ctx, m.namespace)
		if err != nil {
			return nil, err
		}
		session = stored
	}
	if session == nil {
		return nil, nil
	}

	if session.Expired(m.now()) {
		refreshed, err := m.auth.Provider().Refresh(ctx, session.RefreshToken)
		if err != nil {
			m.clear(ctx)
			return nil, err
		}
		session = refreshed
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	if err := m.store.Save(ctx, m.namespace, session, m.ttl); err != nil {
		return nil, err
	}
	return m.resolve(ctx, session.Identity)
}

// HandleEvent re-resolves the profile when the provider reports a change to
// this manager's identity. Events about other identities are ignored.
// Password recovery events never grant a recovery session; HandleRecovery
// is the only way in.
func (m *Manager) HandleEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventSignedIn, events.EventTokenRefreshed, events.EventUserUpdated:
		session := m.Session()
		if session == nil || session.Identity.ID != event.SubjectID {
			return nil
		}
		_, err := m.resolve(ctx, session.Identity)
		return err
	}
	return nil
}

// resolve re-resolves the profile. Concurrent triggers for the same identity
// share one directory call. A failed resolution clears the cached profile.
func (m *Manager) resolve(ctx context.Context, identity domain.Identity) (domain.RoleProfile, error) {
	result, err, _ := m.resolving.Do(identity.ID, func() (any, error) {
		return m.auth.ResolveProfile(ctx, m.role, identity)
	})
	if err != nil {
		m.mu.Lock()
		m.profile = nil
		m.mu.Unlock()
		if errors.Is(err, directory.ErrNotInRole) {
			m.logger.Info("role membership lost, ending session", zap.String("identity_id", identity.ID))
			if signOutErr := m.SignOut(ctx); signOutErr != nil {
				m.logger.Warn("sign-out after lost membership failed", zap.Error(signOutErr))
			}
			return nil, apperrors.NewNotAuthorizedForRole(string(m.role))
		}
		return nil, err
	}

	profile := result.(domain.RoleProfile)
	m.mu.Lock()
	if m.session != nil && m.session.Identity.ID == identity.ID {
		m.profile = profile
	}
	m.mu.Unlock()
	return profile, nil
}

func (m *Manager) adopt(ctx context.Context, session *domain.Session, profile domain.RoleProfile) error {
	m.mu.Lock()
	previous := m.session
	m.session = session
	m.profile = profile
	m.mu.Unlock()

	if previous != nil && previous.RefreshToken != session.RefreshToken {
		if err := m.auth.Provider().SignOut(ctx, previous.RefreshToken); err != nil {
			m.logger.Warn("failed to revoke replaced session", zap.Error(err))
		}
	}
	return m.store.Save(ctx, m.namespace, session, m.ttl)
}

func (m *Manager) clear(ctx context.Context) {
	m.mu.Lock()
	m.session = nil
	m.profile = nil
	m.mu.Unlock()
	if err := m.store.Delete(ctx, m.namespace); err != nil {
		m.logger.Warn("failed to clear stored session", zap.Error(err))
	}
}
