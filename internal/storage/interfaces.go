package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// NarrativeStorage defines the interface for narrative history storage
type NarrativeStorage interface {
	// WriteNarratives writes a batch of narratives to storage
	WriteNarratives(ctx context.Context, narratives []models.Narrative) error

	// GetNarratives retrieves narratives with filtering options, newest first
	GetNarratives(ctx context.Context, filter NarrativeFilter) ([]models.Narrative, error)

	// Close closes the storage connection
	Close() error
}

// NarrativeFilter defines filtering options for narrative queries
type NarrativeFilter struct {
	Symbol     string
	AssetClass models.AssetClass
	RuleName   string
	Priority   models.Priority
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
	Offset     int
}

// Matches reports whether n passes every set field of the filter.
// Limit and Offset are not considered.
func (f NarrativeFilter) Matches(n models.Narrative) bool {
	if f.Symbol != "" && n.Symbol != f.Symbol {
		return false
	}
	if f.AssetClass != "" && n.AssetClass != f.AssetClass {
		return false
	}
	if f.RuleName != "" && n.RuleName != f.RuleName {
		return false
	}
	if f.Priority != "" && n.Priority != f.Priority {
		return false
	}
	if !f.StartTime.IsZero() && n.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && n.Timestamp.After(f.EndTime) {
		return false
	}
	return true
}
