package market

import (
	"time"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// Session names
const (
	SessionWeekend      = "Weekend"
	SessionAfterHours   = "After Hours"
	SessionRegularHours = "Regular Trading Hours"
	SessionSydney       = "Sydney"
	SessionTokyo        = "Tokyo"
	SessionLondon       = "London"
	SessionNewYork      = "New York"
)

// sessionWindow is a UTC time-of-day window with inclusive bounds.
// A window whose start is after its end wraps past midnight.
type sessionWindow struct {
	name       string
	start, end time.Duration
}

func (w sessionWindow) contains(tod time.Duration) bool {
	if w.start <= w.end {
		return tod >= w.start && tod <= w.end
	}
	return tod >= w.start || tod <= w.end
}

func hm(hour, minute int) time.Duration {
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
}

// forexSessions is ordered by priority, highest first
var forexSessions = []sessionWindow{
	{SessionNewYork, hm(13, 0), hm(21, 0)},
	{SessionLondon, hm(8, 0), hm(16, 0)},
	{SessionTokyo, hm(0, 0), hm(9, 0)},
	{SessionSydney, hm(22, 0), hm(6, 0)},
}

var regularHours = sessionWindow{SessionRegularHours, hm(9, 30), hm(16, 0)}

// Session returns the trading session for the asset class at the aggregator's current time
func (a *Aggregator) Session(class models.AssetClass) string {
	return SessionAt(class, a.clock.Now())
}

// SessionAt returns the trading session for the asset class at t, evaluated in UTC.
// Saturday and Sunday are always "Weekend". Forex resolves overlapping sessions
// by priority New York > London > Tokyo > Sydney.
func SessionAt(class models.AssetClass, t time.Time) string {
	utc := t.UTC()
	if wd := utc.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return SessionWeekend
	}

	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	tod := utc.Sub(midnight)

	if class == models.AssetClassForex {
		for _, w := range forexSessions {
			if w.contains(tod) {
				return w.name
			}
		}
		return SessionAfterHours
	}

	if regularHours.contains(tod) {
		return regularHours.name
	}
	return SessionAfterHours
}
