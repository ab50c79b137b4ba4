package report

import (
	"incov-backend/lib/scrapers/mohfw"
	"time"
)

// Summary is the country-wide total of one scrape.
type Summary struct {
	TotalConfirmed int
	TotalRecovered int
	TotalDeaths    int
	RegionCount    int
	GeneratedAt    time.Time
}

// Summarize adds up records. An empty slice is a valid input and yields a
// zero summary stamped with now.
func Summarize(records []mohfw.RegionRecord, now time.Time) Summary {
	summary := Summary{GeneratedAt: now}
	for _, r := range records {
		summary.TotalConfirmed += r.Confirmed()
		summary.TotalRecovered += r.Recovered
		summary.TotalDeaths += r.Deaths
		summary.RegionCount++
	}
	return summary
}
