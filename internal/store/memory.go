package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vigilx/pricewatch/internal/domain"
)

// Memory is an in-process Store used for unit tests and local runs. Writes can
// be forced to fail per chat id to exercise failure-isolation paths.
type Memory struct {
	mu           sync.Mutex
	users        map[int64]*domain.User
	writeErrs    map[int64]error
	replaceCalls map[int64]int
	nowFn        func() time.Time
}

// NewMemory instantiates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:        make(map[int64]*domain.User),
		writeErrs:    make(map[int64]error),
		replaceCalls: make(map[int64]int),
		nowFn:        time.Now,
	}
}

// ReplaceCalls reports how many ReplaceTracking writes a chat id received.
func (m *Memory) ReplaceCalls(chatID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceCalls[chatID]
}

// WithClock overrides the time provider (used primarily in tests).
func (m *Memory) WithClock(nowFn func() time.Time) *Memory {
	if nowFn != nil {
		m.nowFn = nowFn
	}
	return m
}

// FailWritesFor makes every subsequent write for the chat id return err.
func (m *Memory) FailWritesFor(chatID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs[chatID] = err
}

func (m *Memory) GetAllUsers(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, cloneUser(*u))
	}
	// Deterministic order keeps tests simple; callers must not depend on it.
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (m *Memory) GetUser(_ context.Context, chatID int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[chatID]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return cloneUser(*u), nil
}

func (m *Memory) UpsertUser(_ context.Context, chatID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErrs[chatID]; err != nil {
		return err
	}
	if _, ok := m.users[chatID]; ok {
		return nil
	}
	now := m.nowFn().UTC()
	m.users[chatID] = &domain.User{
		ChatID:    chatID,
		Name:      name,
		Tracking:  []domain.TrackedItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (m *Memory) AppendItem(_ context.Context, chatID int64, item domain.TrackedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErrs[chatID]; err != nil {
		return err
	}
	u, ok := m.users[chatID]
	if !ok {
		return ErrUserNotFound
	}
	u.Tracking = append(u.Tracking, item)
	u.UpdatedAt = m.nowFn().UTC()
	return nil
}

func (m *Memory) ReplaceTracking(_ context.Context, chatID int64, items []domain.TrackedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.replaceCalls[chatID]++
	if err := m.writeErrs[chatID]; err != nil {
		return err
	}
	u, ok := m.users[chatID]
	if !ok {
		return ErrUserNotFound
	}
	u.Tracking = append([]domain.TrackedItem(nil), items...)
	u.UpdatedAt = m.nowFn().UTC()
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }

func cloneUser(u domain.User) domain.User {
	u.Tracking = append([]domain.TrackedItem(nil), u.Tracking...)
	u.Normalize()
	return u
}
