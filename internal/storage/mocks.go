package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// MockNarrativeStorage is an in-memory NarrativeStorage for testing
type MockNarrativeStorage struct {
	mu         sync.Mutex
	Narratives []models.Narrative
	WriteErr   error
	GetErr     error
	Closed     bool
}

func (m *MockNarrativeStorage) WriteNarratives(ctx context.Context, narratives []models.Narrative) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	for _, n := range narratives {
		if m.has(n.ID) {
			continue
		}
		m.Narratives = append(m.Narratives, n)
	}
	return nil
}

func (m *MockNarrativeStorage) has(id string) bool {
	for _, n := range m.Narratives {
		if n.ID == id {
			return true
		}
	}
	return false
}

func (m *MockNarrativeStorage) GetNarratives(ctx context.Context, filter NarrativeFilter) ([]models.Narrative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	result := make([]models.Narrative, 0)
	for _, n := range m.Narratives {
		if filter.Matches(n) {
			result = append(result, n)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []models.Narrative{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockNarrativeStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
