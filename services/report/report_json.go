package report

import (
	"encoding/json"
	"fmt"
	"incov-backend/lib/fsutil"
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/lib/timezone"
	"io"
)

// RegionEntry is one element of report.json.
type RegionEntry struct {
	State     string `json:"state"`
	Effected  int    `json:"effected"`
	Recovered int    `json:"recovered"`
	Death     int    `json:"death"`
}

// TotalsEntry is the last element of report.json. Consumers of the file
// expect the totals appended to the region list rather than under a
// separate key, so it has to stay that way.
type TotalsEntry struct {
	TotalEffected int    `json:"total_effected"`
	TotalCured    int    `json:"total_cured"`
	TotalDeath    int    `json:"total_death"`
	TotalStates   int    `json:"total_states"`
	LastUpdate    string `json:"last_update"`
}

func reportEntries(records []mohfw.RegionRecord, summary Summary) []any {
	entries := make([]any, 0, len(records)+1)
	for _, r := range records {
		entries = append(entries, RegionEntry{
			State:     r.Region,
			Effected:  r.Confirmed(),
			Recovered: r.Recovered,
			Death:     r.Deaths,
		})
	}
	entries = append(entries, TotalsEntry{
		TotalEffected: summary.TotalConfirmed,
		TotalCured:    summary.TotalRecovered,
		TotalDeath:    summary.TotalDeaths,
		TotalStates:   summary.RegionCount,
		LastUpdate:    timezone.Stamp(summary.GeneratedAt),
	})
	return entries
}

func EncodeReport(w io.Writer, records []mohfw.RegionRecord, summary Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(reportEntries(records, summary))
}

func WriteReport(path string, records []mohfw.RegionRecord, summary Summary) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		return EncodeReport(w, records, summary)
	})
}

// DecodeReport splits report.json back into its region entries and the
// trailing totals entry.
func DecodeReport(data []byte) ([]RegionEntry, TotalsEntry, error) {
	var raw []json.RawMessage
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, TotalsEntry{}, err
	}
	if len(raw) == 0 {
		return nil, TotalsEntry{}, fmt.Errorf("report has no totals entry")
	}

	regions := make([]RegionEntry, len(raw)-1)
	for i, r := range raw[:len(raw)-1] {
		err = json.Unmarshal(r, &regions[i])
		if err != nil {
			return nil, TotalsEntry{}, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	var totals TotalsEntry
	err = json.Unmarshal(raw[len(raw)-1], &totals)
	if err != nil {
		return nil, TotalsEntry{}, fmt.Errorf("totals: %w", err)
	}
	return regions, totals, nil
}
