package market

import (
	"github.com/mohamedkhairy/market-intel/internal/models"
	indicatorpkg "github.com/mohamedkhairy/market-intel/pkg/indicator"
)

// Activity thresholds on the mean latest/prior volume ratio
const (
	highActivityRatio = 1.5
	lowActivityRatio  = 0.7
)

// SessionActivity compares each symbol's latest reported volume with the mean
// of its earlier volumes and classifies the mean ratio. Symbols with fewer
// than two volume points or no prior volume are ignored; with no data the
// activity is "Medium".
func (a *Aggregator) SessionActivity(data models.AssetData) string {
	var ratios []float64
	for _, sd := range data.Symbols {
		vols := sd.Values.ReportedVolumes()
		if len(vols) < 2 {
			continue
		}
		prior := indicatorpkg.Mean(vols[1:])
		if prior > 0 {
			ratios = append(ratios, vols[0]/prior)
		}
	}

	if len(ratios) == 0 {
		return models.ActivityMedium
	}

	r := indicatorpkg.Mean(ratios)
	switch {
	case r > highActivityRatio:
		return models.ActivityHigh
	case r < lowActivityRatio:
		return models.ActivityLow
	default:
		return models.ActivityMedium
	}
}
