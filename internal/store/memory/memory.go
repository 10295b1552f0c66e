package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type storedMessage struct {
	msg domain.Message
	seq int64
}

type storedGroup struct {
	group  domain.Group
	lastID string
}

// Store: хранилище в памяти процесса, реализует ConversationStore и UserDirectory.
// Используется в тестах и драйвером storage.driver=memory.
type Store struct {
	mu sync.RWMutex

	users      map[string]domain.User
	byUsername map[string]string

	groups   map[string]*storedGroup
	messages map[string]*storedMessage
	seq      int64

	now func() time.Time
}

var (
	_ store.ConversationStore = (*Store)(nil)
	_ store.UserDirectory     = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		byUsername: make(map[string]string),
		groups:     make(map[string]*storedGroup),
		messages:   make(map[string]*storedMessage),
		now:        time.Now,
	}
}

// WithClock подменяет часы, удобно для тестов пагинации.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// --- users ---

func (s *Store) UpsertUser(_ context.Context, u domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = domain.StatusOffline
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.users[u.ID]; ok {
		delete(s.byUsername, prev.Username)
	}
	if owner, ok := s.byUsername[u.Username]; ok && owner != u.ID {
		return store.ErrAlreadyExists
	}
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) GetUsers(_ context.Context, ids []string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) ListUsers(_ context.Context, limit int) ([]domain.User, error) {
	s.mu.RLock()
	users := lo.Values(s.users)
	s.mu.RUnlock()

	sortUsers(users)
	return capSlice(users, limit), nil
}

func (s *Store) SearchUsers(_ context.Context, q string, exclude []string, limit int) ([]domain.User, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	skip := lo.SliceToMap(exclude, func(id string) (string, struct{}) { return id, struct{}{} })

	s.mu.RLock()
	found := lo.Filter(lo.Values(s.users), func(u domain.User, _ int) bool {
		if _, ok := skip[u.ID]; ok {
			return false
		}
		return strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.Name), q)
	})
	s.mu.RUnlock()

	sortUsers(found)
	return capSlice(found, limit), nil
}

func (s *Store) SetStatus(_ context.Context, id string, status domain.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Status = status
	s.users[id] = u
	return nil
}

func (s *Store) SetHidePresence(_ context.Context, id string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.HidePresence = hidden
	s.users[id] = u
	return nil
}

func (s *Store) ListVisiblePresence(_ context.Context) ([]domain.Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Presence, 0)
	for _, u := range s.users {
		if u.Status != domain.StatusOffline && !u.HidePresence {
			out = append(out, domain.Presence{UserID: u.ID, Status: u.Status})
		}
	}
	slices.SortFunc(out, func(a, b domain.Presence) int { return cmp.Compare(a.UserID, b.UserID) })
	return out, nil
}

func sortUsers(users []domain.User) {
	slices.SortFunc(users, func(a, b domain.User) int {
		return cmp.Or(cmp.Compare(a.Username, b.Username), cmp.Compare(a.ID, b.ID))
	})
}

func capSlice[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
