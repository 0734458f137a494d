package db

import (
	"context"
	"sync"
	"time"

	"bindrop/pkg/domain"
	"bindrop/pkg/ident"
)

// Memory is a mutex-guarded in-process backend with counter identifiers.
// It doubles as the test stand-in and a zero-dependency dev mode.
type Memory struct {
	mu      sync.RWMutex
	entries map[uint64]*domain.PasteEntry
	next    uint64
	maxSize int64
}

func NewMemory(maxSize int64) *Memory {
	return &Memory{
		entries: make(map[uint64]*domain.PasteEntry),
		maxSize: maxSize,
	}
}

func (m *Memory) Put(ctx context.Context, entry *domain.PasteEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	cp := *entry
	cp.Data = append([]byte(nil), entry.Data...)
	m.entries[m.next] = &cp
	return ident.EncodeUint64(m.next), nil
}

func (m *Memory) Get(ctx context.Context, id string) (*domain.PasteEntry, error) {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[n]
	if !ok || entry.Expired(time.Now()) {
		return nil, domain.ErrIDNotFound
	}
	cp := *entry
	cp.Data = append([]byte(nil), entry.Data...)
	return &cp, nil
}

func (m *Memory) FileName(ctx context.Context, id string) (string, error) {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[n]
	if !ok || entry.Expired(time.Now()) {
		return "", domain.ErrIDNotFound
	}
	return entry.FileName, nil
}

func (m *Memory) Remove(ctx context.Context, id string) error {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, n)
	return nil
}

func (m *Memory) MaxDataSize() int64 { return m.maxSize }

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pruned int64
	for n, entry := range m.entries {
		if entry.Expired(now) {
			delete(m.entries, n)
			pruned++
		}
	}
	return pruned, nil
}

// Len reports the number of live entries, expired ones included until the
// next prune. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
