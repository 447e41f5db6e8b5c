package indicator

import (
	"github.com/mohamedkhairy/market-intel/internal/models"
	indicatorpkg "github.com/mohamedkhairy/market-intel/pkg/indicator"
)

// Volume trend labels
const (
	VolumeIncreasing = "increasing"
	VolumeDecreasing = "decreasing"
)

// RegisterDefaultExtensions registers the crypto, stocks and forex extensions
func RegisterDefaultExtensions(registry *ExtensionRegistry) error {
	if err := registry.Register(models.AssetClassCrypto, cryptoMetrics, ExtensionMetadata{
		Name:        "crypto",
		Description: "Volume trend and asset name for crypto pairs",
		Metrics:     []string{"volume_trend", "crypto_asset"},
	}); err != nil {
		return err
	}

	if err := registry.Register(models.AssetClassStocks, stockMetrics, ExtensionMetadata{
		Name:        "stocks",
		Description: "Volume trend and company for equities",
		Metrics:     []string{"volume_trend", "company"},
	}); err != nil {
		return err
	}

	return registry.Register(models.AssetClassForex, forexMetrics, ExtensionMetadata{
		Name:        "forex",
		Description: "Currency pair label",
		Metrics:     []string{"currency_pair"},
	})
}

func cryptoMetrics(symbol string, chronological models.Series) models.MetricSet {
	return models.MetricSet{
		"volume_trend": models.Label(volumeTrend(chronological.Volumes())),
		"crypto_asset": models.Label(symbol),
	}
}

func stockMetrics(symbol string, chronological models.Series) models.MetricSet {
	return models.MetricSet{
		"volume_trend": models.Label(volumeTrend(chronological.Volumes())),
		"company":      models.Label(symbol),
	}
}

func forexMetrics(symbol string, _ models.Series) models.MetricSet {
	return models.MetricSet{
		"currency_pair": models.Label(symbol),
	}
}

// volumeTrend is "increasing" when there are more than 5 volumes and the
// latest exceeds the mean of the last 5
func volumeTrend(volumes []float64) string {
	if len(volumes) > 5 && volumes[len(volumes)-1] > indicatorpkg.SMA(volumes, 5) {
		return VolumeIncreasing
	}
	return VolumeDecreasing
}
