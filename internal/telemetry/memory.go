package telemetry

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps visit state in process memory. It is the fallback when
// Redis is not configured; counters reset on restart, which is acceptable
// for cosmetic splash timing.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]map[string]int64
	firsts map[string]map[string]time.Time
	logs   map[string][]Visit
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts: make(map[string]map[string]int64),
		firsts: make(map[string]map[string]time.Time),
		logs:   make(map[string][]Visit),
	}
}

func (m *MemoryStore) RecordVisit(_ context.Context, userID, feature string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counts[userID] == nil {
		m.counts[userID] = make(map[string]int64)
		m.firsts[userID] = make(map[string]time.Time)
	}
	m.counts[userID][feature]++
	if _, ok := m.firsts[userID][feature]; !ok {
		m.firsts[userID][feature] = at
	}

	log := append(m.logs[userID], Visit{Feature: feature, At: at})
	if len(log) > LogCap {
		log = log[len(log)-LogCap:]
	}
	m.logs[userID] = log
	return nil
}

func (m *MemoryStore) VisitCount(_ context.Context, userID, feature string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[userID][feature], nil
}

func (m *MemoryStore) FirstVisit(_ context.Context, userID, feature string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	first, ok := m.firsts[userID][feature]
	return first, ok, nil
}

// RecentVisits returns up to limit entries, newest first.
func (m *MemoryStore) RecentVisits(_ context.Context, userID string, limit int) ([]Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logs[userID]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	visits := make([]Visit, 0, limit)
	for i := len(log) - 1; i >= len(log)-limit; i-- {
		visits = append(visits, log[i])
	}
	return visits, nil
}
