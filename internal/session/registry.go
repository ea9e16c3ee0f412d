package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/events"
)

// DefaultIdleTimeout is how long an untouched manager stays in memory.
const DefaultIdleTimeout = 30 * time.Minute

type managerKey struct {
	role     domain.Role
	clientID string
}

type registryEntry struct {
	manager  *Manager
	lastUsed time.Time
}

// Registry hands out one Manager per (role, client runtime) and forwards
// provider auth-state events to them. Managers untouched for the idle
// timeout are dropped; their stored sessions are kept and reloaded on the
// next Lookup.
type Registry struct {
	auth   *Authenticator
	store  Store
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	idleTimeout time.Duration
	now         func() time.Time

	mu        sync.Mutex
	managers  map[managerKey]*registryEntry
	lastSweep time.Time
}

// NewRegistry constructs a registry whose managers persist into store.
func NewRegistry(auth *Authenticator, store Store, prefix string, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		auth:        auth,
		store:       store,
		prefix:      prefix,
		ttl:         ttl,
		logger:      logger,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		managers:    map[managerKey]*registryEntry{},
	}
}

// WithIdleTimeout overrides the idle timeout and, when now is non-nil, the
// clock used to measure it.
func (r *Registry) WithIdleTimeout(idle time.Duration, now func() time.Time) *Registry {
	if idle > 0 {
		r.idleTimeout = idle
	}
	if now != nil {
		r.now = now
	}
	return r
}

// Manager returns the manager for role within clientID, creating it on first use.
func (r *Registry) Manager(role domain.Role, clientID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(managerKey{role: role, clientID: clientID})
}

// Lookup returns the manager for role within clientID without creating one
// for a client that holds nothing. A manager is rebuilt when a session for
// the client is still in the store. It returns nil when there is neither.
func (r *Registry) Lookup(ctx context.Context, role domain.Role, clientID string) (*Manager, error) {
	key := managerKey{role: role, clientID: clientID}

	r.mu.Lock()
	if entry, ok := r.managers[key]; ok {
		entry.lastUsed = r.now()
		r.mu.Unlock()
		return entry.manager, nil
	}
	r.mu.Unlock()

	stored, err := r.store.Load(ctx, Namespace(r.prefix, role, clientID))
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(key), nil
}

// Release drops the in-memory manager; its stored session is untouched.
func (r *Registry) Release(role domain.Role, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.managers, managerKey{role: role, clientID: clientID})
}

// ReleaseIfEmpty drops the manager when it holds neither a session nor a
// recovery session, as after a failed sign-in.
func (r *Registry) ReleaseIfEmpty(role domain.Role, clientID string) {
	key := managerKey{role: role, clientID: clientID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.managers[key]; ok && entry.manager.empty() {
		delete(r.managers, key)
	}
}

// Len reports how many managers are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Subscribe forwards profile-affecting auth-state events to every live
// manager. Recovery events are not forwarded.
func (r *Registry) Subscribe(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventSignedIn,
		events.EventTokenRefreshed,
		events.EventUserUpdated,
	} {
		dispatcher.Subscribe(eventType, r.broadcast)
	}
}

func (r *Registry) broadcast(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for _, entry := range r.managers {
		managers = append(managers, entry.manager)
	}
	r.mu.Unlock()

	for _, m := range managers {
		if err := m.HandleEvent(ctx, event); err != nil {
			r.logger.Warn("session event handling failed",
				zap.String("role", string(m.Role())),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
	return nil
}

func (r *Registry) getOrCreateLocked(key managerKey) *Manager {
	now := r.now()
	r.evictIdleLocked(now)

	if entry, ok := r.managers[key]; ok {
		entry.lastUsed = now
		return entry.manager
	}
	m := NewManager(key.role, ManagerDependencies{
		Authenticator: r.auth,
		Store:         r.store,
		Prefix:        r.prefix,
		ClientID:      key.clientID,
		SessionTTL:    r.ttl,
		Logger:        r.logger,
	})
	r.managers[key] = &registryEntry{manager: m, lastUsed: now}
	return m
}

// evictIdleLocked sweeps at most once per quarter of the idle timeout.
func (r *Registry) evictIdleLocked(now time.Time) int {
	if now.Sub(r.lastSweep) < r.idleTimeout/4 {
		return 0
	}
	r.lastSweep = now

	evicted := 0
	for key, entry := range r.managers {
		if now.Sub(entry.lastUsed) >= r.idleTimeout {
			delete(r.managers, key)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Debug("evicted idle session managers", zap.Int("count", evicted))
	}
	return evicted
}
