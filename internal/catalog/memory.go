package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gamegraph/gamegraph/internal/models"
)

// MemoryCatalog is an in-memory Catalog for tests and the "memory" backend.
type MemoryCatalog struct {
	mu      sync.RWMutex
	users   map[int64]models.User
	items   map[int64]models.Item
	pending map[int64]PendingMirror
	nextID  int64
	down    bool
}

// NewMemoryCatalog returns an empty MemoryCatalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		users:   make(map[int64]models.User),
		items:   make(map[int64]models.Item),
		pending: make(map[int64]PendingMirror),
	}
}

// SetUnavailable makes every call fail with models.ErrStoreUnavailable.
func (m *MemoryCatalog) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

func (m *MemoryCatalog) check() error {
	if m.down {
		return fmt.Errorf("memory catalog: %w", models.ErrStoreUnavailable)
	}
	return nil
}

func (m *MemoryCatalog) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, fmt.Errorf("user %q or email %q: %w", user.Username, user.Email, models.ErrConflict)
		}
	}
	if user.ID == 0 {
		m.nextID++
		user.ID = m.nextID
	} else if _, ok := m.users[user.ID]; ok {
		return nil, fmt.Errorf("user id %d: %w", user.ID, models.ErrConflict)
	}
	if user.ID > m.nextID {
		m.nextID = user.ID
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = timeNow().UTC()
	}
	m.users[user.ID] = user
	return &user, nil
}

func (m *MemoryCatalog) findUser(match func(models.User) bool, label string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", label, models.ErrNotFound)
}

func (m *MemoryCatalog) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.ID == id }, fmt.Sprintf("%d", id))
}

func (m *MemoryCatalog) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Username == username }, fmt.Sprintf("%q", username))
}

func (m *MemoryCatalog) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Email == email }, fmt.Sprintf("%q", email))
}

func (m *MemoryCatalog) CountUsers(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return 0, err
	}
	return len(m.users), nil
}

func (m *MemoryCatalog) UpsertItem(_ context.Context, item models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.items[item.ID] = item
	return nil
}

func (m *MemoryCatalog) GetItem(_ context.Context, id int64) (*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	it, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("game %d: %w", id, models.ErrNotFound)
	}
	return &it, nil
}

func (m *MemoryCatalog) ListItems(_ context.Context) ([]models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(m.items))
	for _, it := range m.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MemoryCatalog) AddPendingMirror(_ context.Context, user models.UserRef, cause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	now := timeNow().UTC()
	p, ok := m.pending[user.ID]
	if !ok {
		p = PendingMirror{CreatedAt: now}
	}
	p.User = user
	p.Attempts++
	p.LastError = cause
	p.UpdatedAt = now
	m.pending[user.ID] = p
	return nil
}

func (m *MemoryCatalog) ListPendingMirrors(_ context.Context, limit int) ([]PendingMirror, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	out := make([]PendingMirror, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].User.ID < out[j].User.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryCatalog) RemovePendingMirror(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	delete(m.pending, userID)
	return nil
}

func (m *MemoryCatalog) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check()
}

func (m *MemoryCatalog) Close() error { return nil }

// Compile-time interface assertions.
var (
	_ Catalog = (*MemoryCatalog)(nil)
	_ Catalog = (*SQLiteCatalog)(nil)
)
