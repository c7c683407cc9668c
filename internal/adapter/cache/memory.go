package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data    []byte
	expires time.Time
}

// MemoryAdapter is the default result cache: a process-local keyed map with
// lazy eviction. A lookup past expiry deletes the entry and misses. Cold on
// every process restart.
type MemoryAdapter struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewMemoryAdapterWithClock injects the clock; used by tests.
func NewMemoryAdapterWithClock(now func() time.Time) *MemoryAdapter {
	return &MemoryAdapter{
		entries: make(map[string]entry),
		now:     now,
	}
}

func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[key]
	if !ok {
		return nil, false, nil
	}
	if a.now().After(e.expires) {
		delete(a.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries[key] = entry{
		data:    value,
		expires: a.now().Add(ttl),
	}
	return nil
}

func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.entries, key)
	return nil
}

func (a *MemoryAdapter) Ping(ctx context.Context) error { return nil }

func (a *MemoryAdapter) Close() error { return nil }
