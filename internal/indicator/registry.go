package indicator

import (
	"fmt"
	"sync"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// Extension computes asset-class specific metrics for one symbol.
// chronological is ordered oldest to newest and holds at least 5 bars.
type Extension func(symbol string, chronological models.Series) models.MetricSet

// ExtensionMetadata describes a registered extension
type ExtensionMetadata struct {
	Name        string
	AssetClass  models.AssetClass
	Description string
	Metrics     []string // metric names the extension produces
}

// ExtensionRegistry holds per-asset-class metric extensions, applied in registration order
type ExtensionRegistry struct {
	mu         sync.RWMutex
	extensions map[models.AssetClass][]Extension
	metadata   map[models.AssetClass][]ExtensionMetadata
}

// NewExtensionRegistry creates an empty registry
func NewExtensionRegistry() *ExtensionRegistry {
	return &ExtensionRegistry{
		extensions: make(map[models.AssetClass][]Extension),
		metadata:   make(map[models.AssetClass][]ExtensionMetadata),
	}
}

// Register adds an extension for an asset class
func (r *ExtensionRegistry) Register(class models.AssetClass, ext Extension, metadata ExtensionMetadata) error {
	if ext == nil {
		return fmt.Errorf("extension cannot be nil")
	}
	if metadata.Name == "" {
		return fmt.Errorf("extension name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.metadata[class] {
		if existing.Name == metadata.Name {
			return fmt.Errorf("extension %q already registered for %s", metadata.Name, class)
		}
	}

	metadata.AssetClass = class
	r.extensions[class] = append(r.extensions[class], ext)
	r.metadata[class] = append(r.metadata[class], metadata)
	return nil
}

// For returns the extensions registered for an asset class
func (r *ExtensionRegistry) For(class models.AssetClass) []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Extension, len(r.extensions[class]))
	copy(result, r.extensions[class])
	return result
}

// Metadata returns the metadata of the extensions registered for an asset class
func (r *ExtensionRegistry) Metadata(class models.AssetClass) []ExtensionMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ExtensionMetadata, len(r.metadata[class]))
	copy(result, r.metadata[class])
	return result
}
