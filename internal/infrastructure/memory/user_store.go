package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/flowery-users/internal/domain/entity"
	"github.com/oksasatya/flowery-users/internal/domain/repository"
	"github.com/oksasatya/flowery-users/pkg/apperror"
)

// UserStore keeps users in process memory, in insertion order.
// Used for local runs without Postgres and as the store behind tests.
type UserStore struct {
	mu    sync.RWMutex
	users []*entity.User
	Now   func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{Now: time.Now}
}

// isActive is the soft-delete predicate every read goes through.
func isActive(u *entity.User) bool { return u.DeletedAt == nil }

func (s *UserStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *UserStore) FindPage(_ context.Context, limit, page int) (*repository.UserPage, error) {
	limit, page = repository.NormalizePaging(limit, page)
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]entity.User, 0, len(s.users))
	for _, u := range s.users {
		if isActive(u) {
			active = append(active, clone(u))
		}
	}
	start := min(repository.Offset(limit, page), len(active))
	end := start + min(limit, len(active)-start)
	return repository.NewUserPage(active[start:end], len(active), limit, page), nil
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.findActive(email); u != nil {
		c := clone(u)
		return &c, nil
	}
	return nil, nil
}

func (s *UserStore) UpdateByID(_ context.Context, id string, upd repository.UserUpdate) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID != id || !isActive(u) {
			continue
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		if upd.LastConnection != nil {
			t := *upd.LastConnection
			u.LastConnection = &t
		}
		if upd.Documents != nil {
			u.Documents = append([]entity.Document(nil), (*upd.Documents)...)
		}
		u.UpdatedAt = s.now()
		c := clone(u)
		return &c, nil
	}
	return nil, apperror.New(apperror.NotFound, "updateUser Error", "user not found", map[string]any{"id": id})
}

func (s *UserStore) Create(_ context.Context, u *entity.User) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findActive(u.Email) != nil {
		return nil, apperror.New(apperror.BusinessRuleViolation, "createUser Error", "email already registered", map[string]any{"email": u.Email})
	}
	c := clone(u)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Role == "" {
		c.Role = entity.RoleUser
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.users = append(s.users, &c)
	out := clone(&c)
	return &out, nil
}

func (s *UserStore) DeleteByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range s.users {
		if isActive(u) && entity.SameEmail(u.Email, email) {
			s.users = append(s.users[:i], s.users[i+1:]...)
			c := clone(u)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *UserStore) SweepInactive(_ context.Context, thresholdDays int) ([]entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	cutoff := now.Add(-time.Duration(thresholdDays) * 24 * time.Hour)

	var stale []*entity.User
	for _, u := range s.users {
		if isActive(u) && u.LastConnection != nil && u.LastConnection.Before(cutoff) {
			stale = append(stale, u)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].LastConnection.Before(*stale[j].LastConnection)
	})
	snapshot := make([]entity.User, 0, len(stale))
	for _, u := range stale {
		snapshot = append(snapshot, clone(u))
	}
	for _, u := range stale {
		deletedAt := now
		u.DeletedAt = &deletedAt
	}
	return snapshot, nil
}

// Get returns a user by id regardless of soft-delete state. It is an
// inspection hook for tests and is not part of repository.UserStore, so
// request paths never reach it.
func (s *UserStore) Get(id string) (entity.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return clone(u), true
		}
	}
	return entity.User{}, false
}

func (s *UserStore) findActive(email string) *entity.User {
	email = strings.TrimSpace(email)
	for _, u := range s.users {
		if isActive(u) && entity.SameEmail(u.Email, email) {
			return u
		}
	}
	return nil
}

func clone(u *entity.User) entity.User {
	c := *u
	if u.Documents != nil {
		c.Documents = append([]entity.Document(nil), u.Documents...)
	}
	return c
}

var _ repository.UserStore = (*UserStore)(nil)
