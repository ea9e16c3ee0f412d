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

// Properties is an in-memory repository.PropertyRepository.
type Properties struct {
	mu    sync.Mutex
	rows  map[string]domain.Property
	order []string
}

// NewProperties returns an empty store.
func NewProperties() *Properties {
	return &Properties{rows: map[string]domain.Property{}}
}

// Seed inserts a property verbatim, keeping its id when set.
func (s *Properties) Seed(p domain.Property) domain.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.rows[p.ID] = p
	s.order = append(s.order, p.ID)
	return p
}

func (s *Properties) Create(_ context.Context, p *domain.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.rows[p.ID] = *p
	s.order = append(s.order, p.ID)
	return nil
}

func (s *Properties) GetByID(_ context.Context, id string) (*domain.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (s *Properties) ListPublic(_ context.Context, filter repository.PropertyFilter) ([]domain.Property, error) {
	return s.filter(func(p *domain.Property) bool {
		if !p.PubliclyListable() {
			return false
		}
		if filter.ListingType != nil && p.ListingType != *filter.ListingType {
			return false
		}
		if filter.Featured != nil && p.Featured != *filter.Featured {
			return false
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if !strings.Contains(strings.ToLower(p.Title), term) && !strings.Contains(strings.ToLower(p.Location), term) {
				return false
			}
		}
		return true
	}, filter.Limit, filter.Offset), nil
}

func (s *Properties) ListBySubmitter(_ context.Context, submitterID string) ([]domain.Property, error) {
	return s.filter(func(p *domain.Property) bool {
		return p.SubmittedBy != nil && *p.SubmittedBy == submitterID
	}, 0, 0), nil
}

func (s *Properties) ListByStatus(_ context.Context, status *domain.ApprovalStatus, limit, offset int) ([]domain.Property, error) {
	return s.filter(func(p *domain.Property) bool {
		return status == nil || p.EffectiveStatus() == *status
	}, limit, offset), nil
}

func (s *Properties) Review(_ context.Context, id string, status domain.ApprovalStatus, reviewedAt time.Time, reason *string) (*domain.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	p.ApprovalStatus = &status
	p.ApprovalDate = &reviewedAt
	p.RejectionReason = reason
	p.UpdatedAt = time.Now()
	s.rows[id] = p
	return &p, nil
}

func (s *Properties) SetFeatured(_ context.Context, id string, featured bool) (*domain.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	p.Featured = featured
	s.rows[id] = p
	return &p, nil
}

func (s *Properties) filter(keep func(*domain.Property) bool, limit, offset int) []domain.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Property
	for _, id := range s.order {
		p := s.rows[id]
		if keep(&p) {
			out = append(out, p)
		}
	}
	return page(out, limit, offset)
}

// Tasks is an in-memory repository.TaskRepository.
type Tasks struct {
	mu   sync.Mutex
	rows map[string]domain.StaffTask
}

// NewTasks returns an empty store.
func NewTasks() *Tasks {
	return &Tasks{rows: map[string]domain.StaffTask{}}
}

// Seed inserts a task verbatim, keeping its id when set.
func (s *Tasks) Seed(t domain.StaffTask) domain.StaffTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.rows[t.ID] = t
	return t
}

func (s *Tasks) Create(_ context.Context, task *domain.StaffTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID = uuid.NewString()
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.rows[task.ID] = *task
	return nil
}

func (s *Tasks) GetByID(_ context.Context, id string) (*domain.StaffTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (s *Tasks) List(_ context.Context, filter repository.TaskFilter) ([]domain.StaffTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StaffTask
	for _, id := range sortedKeys(s.rows) {
		t := s.rows[id]
		if filter.AssignedTo != nil && t.AssignedTo != *filter.AssignedTo {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (s *Tasks) Summary(_ context.Context, assignedTo *string, now time.Time) (domain.TaskSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var scoped []domain.StaffTask
	for _, t := range s.rows {
		if assignedTo == nil || t.AssignedTo == *assignedTo {
			scoped = append(scoped, t)
		}
	}
	return domain.SummarizeTasks(scoped, now), nil
}

func (s *Tasks) ListOverdue(_ context.Context, now time.Time) ([]domain.StaffTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StaffTask, 0)
	for _, id := range sortedKeys(s.rows) {
		t := s.rows[id]
		if t.Overdue(now) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out, nil
}

func (s *Tasks) Update(_ context.Context, task *domain.StaffTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rows[task.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	existing.Title = task.Title
	existing.Description = task.Description
	existing.AssignedTo = task.AssignedTo
	existing.Priority = task.Priority
	existing.DueDate = task.DueDate
	existing.UpdatedAt = time.Now()
	task.UpdatedAt = existing.UpdatedAt
	s.rows[task.ID] = existing
	return nil
}

func (s *Tasks) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.rows, id)
	return nil
}

func (s *Tasks) UpdateStatusForAssignee(_ context.Context, id, assigneeID string, status domain.TaskStatus, completedAt *time.Time) (*domain.StaffTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok || t.AssignedTo != assigneeID {
		return nil, pgx.ErrNoRows
	}
	t.Status = status
	t.CompletedAt = completedAt
	t.UpdatedAt = time.Now()
	s.rows[id] = t
	return &t, nil
}

// TokenStore is an in-memory repository.TokenStore ignoring TTLs unless
// Clock is advanced past them.
type TokenStore struct {
	mu    sync.Mutex
	items map[string]tokenEntry
	Clock func() time.Time
}

type tokenEntry struct {
	identityID string
	expiresAt  time.Time
}

// NewTokenStore returns an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{items: map[string]tokenEntry{}, Clock: time.Now}
}

func tokenKey(kind repository.TokenKind, token string) string {
	return string(kind) + ":" + token
}

func (s *TokenStore) Put(_ context.Context, kind repository.TokenKind, token, identityID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[tokenKey(kind, token)] = tokenEntry{identityID: identityID, expiresAt: s.Clock().Add(ttl)}
	return nil
}

func (s *TokenStore) Consume(_ context.Context, kind repository.TokenKind, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tokenKey(kind, token)
	entry, ok := s.items[key]
	if !ok {
		return "", repository.ErrTokenNotFound
	}
	delete(s.items, key)
	if !s.Clock().Before(entry.expiresAt) {
		return "", repository.ErrTokenNotFound
	}
	return entry.identityID, nil
}

func (s *TokenStore) Delete(_ context.Context, kind repository.TokenKind, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, tokenKey(kind, token))
	return nil
}

// Has reports whether a live token of kind is stored.
func (s *TokenStore) Has(kind repository.TokenKind, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[tokenKey(kind, token)]
	return ok
}

// Tokens lists the live tokens of kind.
func (s *TokenStore) Tokens(kind repository.TokenKind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := string(kind) + ":"
	var out []string
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out
}
