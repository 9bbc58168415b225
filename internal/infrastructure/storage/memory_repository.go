package storage

import (
	"context"
	"sync"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/ports"
)

// MemoryRepository keeps everything in process memory. It backs dry runs and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	cases   map[string]domain.CaseRecord
	order   []string
	reviews []domain.ApprovalQueueEntry
	logs    []domain.RunLogEntry
}

var _ ports.CaseRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{cases: map[string]domain.CaseRecord{}}
}

// Exists implements ports.CaseRepository.
func (m *MemoryRepository) Exists(_ context.Context, link string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cases[link]
	return ok, nil
}

// InsertIfAbsent implements ports.CaseRepository.
func (m *MemoryRepository) InsertIfAbsent(_ context.Context, record domain.CaseRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[record.Link]; ok {
		return false, nil
	}
	m.cases[record.Link] = record
	m.order = append(m.order, record.Link)
	return true, nil
}

// EnqueueReview implements ports.CaseRepository.
func (m *MemoryRepository) EnqueueReview(_ context.Context, entries ...domain.ApprovalQueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append(m.reviews, entries...)
	return nil
}

// AppendLog implements ports.CaseRepository.
func (m *MemoryRepository) AppendLog(_ context.Context, entry domain.RunLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

// Close implements io.Closer.
func (m *MemoryRepository) Close() error { return nil }

// Cases returns stored cases in insertion order.
func (m *MemoryRepository) Cases() []domain.CaseRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CaseRecord, 0, len(m.order))
	for _, link := range m.order {
		out = append(out, m.cases[link])
	}
	return out
}

// Reviews returns all queued review entries.
func (m *MemoryRepository) Reviews() []domain.ApprovalQueueEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ApprovalQueueEntry(nil), m.reviews...)
}

// Logs returns all run log entries.
func (m *MemoryRepository) Logs() []domain.RunLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.RunLogEntry(nil), m.logs...)
}
