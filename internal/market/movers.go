package market

import (
	"context"
	"fmt"
	"sort"

	"github.com/mohamedkhairy/market-intel/internal/models"
	indicatorpkg "github.com/mohamedkhairy/market-intel/pkg/indicator"
)

// Top mover metrics
const (
	MoverByChangePct = "change_pct"
	MoverByRange     = "range"
)

// TopMoversKey is the cache key for a top movers result
func TopMoversKey(by string, topN int) string {
	return fmt.Sprintf("top_movers:%s:%d", by, topN)
}

// TopMovers ranks symbols by change_pct (latest vs oldest close) or range
// (max high - min low). Gainers are sorted descending and losers ascending;
// ties keep request order. Unknown metrics fall back to change_pct.
// The result is cached briefly for other readers.
func (a *Aggregator) TopMovers(ctx context.Context, data models.AssetData, topN int, by string) models.TopMovers {
	if by != MoverByRange {
		by = MoverByChangePct
	}

	rows := make([]models.Mover, 0, len(data.Symbols))
	for _, sd := range data.Symbols {
		if len(sd.Values) == 0 {
			continue
		}
		rows = append(rows, moverFor(sd))
	}

	metric := func(m models.Mover) float64 {
		if by == MoverByRange {
			return m.Range
		}
		return m.ChangePct
	}

	gainers := make([]models.Mover, len(rows))
	copy(gainers, rows)
	sort.SliceStable(gainers, func(i, j int) bool {
		return metric(gainers[i]) > metric(gainers[j])
	})

	losers := make([]models.Mover, len(rows))
	copy(losers, rows)
	sort.SliceStable(losers, func(i, j int) bool {
		return metric(losers[i]) < metric(losers[j])
	})

	result := models.TopMovers{
		Gainers: truncate(gainers, topN),
		Losers:  truncate(losers, topN),
		By:      by,
	}

	a.store.Set(ctx, TopMoversKey(by, topN), result, a.config.TopMoversTTL)
	return result
}

func moverFor(sd models.SymbolData) models.Mover {
	latest := sd.Values[0].Close
	oldest := sd.Values[len(sd.Values)-1].Close

	changePct := 0.0
	if oldest != 0 {
		changePct = (latest - oldest) / oldest * 100.0
	}

	return models.Mover{
		Symbol:    sd.Symbol,
		Latest:    indicatorpkg.Round(latest, 6),
		ChangePct: indicatorpkg.Round(changePct, 4),
		Range:     indicatorpkg.Round(indicatorpkg.Max(sd.Values.Highs())-indicatorpkg.Min(sd.Values.Lows()), 6),
	}
}

func truncate(movers []models.Mover, n int) []models.Mover {
	if n < 0 {
		n = 0
	}
	if len(movers) > n {
		return movers[:n]
	}
	return movers
}
