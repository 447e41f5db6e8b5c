package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

type memoryEntry struct {
	payload   []byte
	writtenAt time.Time
	ttl       time.Duration
}

// MemoryStore is an in-process Store with lazy expiry: an entry is only
// evicted when a read finds it older than its TTL.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	clock   Clock
}

// NewMemoryStore creates an empty MemoryStore. A nil clock uses the wall clock.
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   clock,
	}
}

// Get implements Store
func (m *MemoryStore) Get(ctx context.Context, key string, dest any) bool {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && entry.ttl != NoExpiry && m.clock.Now().Sub(entry.writtenAt) > entry.ttl {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	if err := json.Unmarshal(entry.payload, dest); err != nil {
		logger.Warn("Failed to decode cached value",
			logger.String("key", key),
			logger.ErrorField(err),
		)
		logger.CacheErrorsTotal.WithLabelValues("get").Inc()
		return false
	}
	return true
}

// Set implements Store
func (m *MemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to encode cache value",
			logger.String("key", key),
			logger.ErrorField(err),
		)
		logger.CacheErrorsTotal.WithLabelValues("set").Inc()
		return
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{
		payload:   payload,
		writtenAt: m.clock.Now(),
		ttl:       ttl,
	}
	m.mu.Unlock()
}

// Len returns the number of stored entries, including ones that expired but
// have not been read since
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
