// Package testutil holds in-memory stand-ins for the Postgres and Redis
// repositories so services can be tested without live infrastructure.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/property-service/internal/domain"
	"github.com/spec-kit/property-service/internal/repository"
)

// Credentials is an in-memory repository.CredentialRepository.
type Credentials struct {
	mu    sync.Mutex
	byID  map[string]*repository.Credential
	Clock func() time.Time
}

// NewCredentials returns an empty store.
func NewCredentials() *Credentials {
	return &Credentials{byID: map[string]*repository.Credential{}, Clock: time.Now}
}

func (s *Credentials) Create(_ context.Context, cred *repository.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if strings.EqualFold(existing.Identity.Email, cred.Identity.Email) {
			return repository.ErrDuplicate
		}
	}
	if cred.Identity.ID == "" {
		cred.Identity.ID = uuid.NewString()
	}
	now := s.Clock()
	cred.Identity.CreatedAt = now
	cred.Identity.UpdatedAt = now
	copied := *cred
	s.byID[cred.Identity.ID] = &copied
	return nil
}

func (s *Credentials) GetByID(_ context.Context, id string) (*repository.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *cred
	return &copied, nil
}

func (s *Credentials) GetByEmail(_ context.Context, email string) (*repository.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cred := range s.byID {
		if strings.EqualFold(cred.Identity.Email, email) {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Credentials) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	cred.PasswordHash = passwordHash
	cred.Identity.UpdatedAt = s.Clock()
	return nil
}

func (s *Credentials) ConfirmEmail(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	cred.Identity.EmailConfirmedAt = &at
	return nil
}

// Admins is an in-memory repository.AdminRepository.
type Admins struct {
	mu      sync.Mutex
	rows    map[string]domain.AdminProfile
	ListErr error
}

// NewAdmins returns a store seeded with profiles.
func NewAdmins(profiles ...domain.AdminProfile) *Admins {
	s := &Admins{rows: map[string]domain.AdminProfile{}}
	for _, p := range profiles {
		s.rows[p.ID] = p
	}
	return s
}

// Put inserts or replaces an admin row.
func (s *Admins) Put(p domain.AdminProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.ID] = p
}

// Remove deletes an admin row.
func (s *Admins) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
}

func (s *Admins) GetByID(_ context.Context, id string) (*domain.AdminProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (s *Admins) ListIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return sortedKeys(s.rows), nil
}

// Staff is an in-memory repository.StaffRepository.
type Staff struct {
	mu      sync.Mutex
	rows    map[string]domain.StaffProfile
	ListErr error
}

// NewStaff returns a store seeded with profiles.
func NewStaff(profiles ...domain.StaffProfile) *Staff {
	s := &Staff{rows: map[string]domain.StaffProfile{}}
	for _, p := range profiles {
		s.rows[p.ID] = p
	}
	return s
}

// Put inserts or replaces a staff row.
func (s *Staff) Put(p domain.StaffProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.ID] = p
}

// SetActive toggles is_active on a staff row.
func (s *Staff) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.rows[id]
	p.IsActive = active
	s.rows[id] = p
}

func (s *Staff) GetByID(_ context.Context, id string) (*domain.StaffProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (s *Staff) ListIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return sortedKeys(s.rows), nil
}

func (s *Staff) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StaffProfile
	for _, id := range sortedKeys(s.rows) {
		p := s.rows[id]
		if filter.Active != nil && p.IsActive != *filter.Active {
			continue
		}
		out = append(out, p)
	}
	return page(out, filter.Limit, filter.Offset), nil
}

// Users is an in-memory repository.UserProfileRepository.
type Users struct {
	mu   sync.Mutex
	rows map[string]domain.UserProfile

	// GetByIDCalls counts GetByID invocations; OnGetByID runs before each.
	GetByIDCalls int
	OnGetByID    func()
	ListErr      error
}

// NewUsers returns a store seeded with profiles.
func NewUsers(profiles ...domain.UserProfile) *Users {
	s := &Users{rows: map[string]domain.UserProfile{}}
	for _, p := range profiles {
		s.rows[p.ID] = p
	}
	return s
}

// Calls returns the number of GetByID invocations so far.
func (s *Users) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetByIDCalls
}

func (s *Users) Create(_ context.Context, profile *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.ID == profile.ID ||
			strings.EqualFold(existing.Email, profile.Email) ||
			(profile.Phone != "" && existing.Phone == profile.Phone) {
			return repository.ErrDuplicate
		}
	}
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.rows[profile.ID] = *profile
	return nil
}

func (s *Users) GetByID(_ context.Context, id string) (*domain.UserProfile, error) {
	s.mu.Lock()
	s.GetByIDCalls++
	hook := s.OnGetByID
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (s *Users) GetByPhone(_ context.Context, phone string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if phone != "" && p.Phone == phone {
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Users) GetByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.rows {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Users) ListAll(_ context.Context) ([]domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]domain.UserProfile, 0, len(s.rows))
	for _, id := range sortedKeys(s.rows) {
		out = append(out, s.rows[id])
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
