package timezone

import (
	"time"

	_ "time/tzdata"
)

// Location is the civil timezone every date in the published artifacts is
// expressed in. India observes no daylight saving, so a fixed offset is
// exact until Init swaps in the tzdata zone.
var Location = time.FixedZone("IST", 5*60*60+30*60)

// Init replaces Location with the named IANA zone. It is called once by
// the CLI before any component runs.
func Init(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Location = loc
	return nil
}

// force timezone so that the calendar day of the data file does not depend
// on where the job happens to be scheduled.
func Now() time.Time {
	return time.Now().In(Location)
}

// StartOfDay returns midnight of t's calendar day in Location.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
}

// FileDate is the YYYY-MM-DD name of the daily data file for t.
func FileDate(t time.Time) string {
	return t.In(Location).Format("2006-01-02")
}

// Stamp is the human readable last-update time used in reports.
func Stamp(t time.Time) string {
	return t.In(Location).Format("2006-01-02 15:04:05")
}
