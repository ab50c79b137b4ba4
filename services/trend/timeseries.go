package trend

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"incov-backend/lib/textutil"
	"strconv"
	"strings"
)

var metadataColumns = map[string]bool{
	"Province/State": true,
	"Country/Region": true,
	"Lat":            true,
	"Long":           true,
}

// ParseTimeSeries reads a global time series table (one row per country or
// province, one column per day) and returns the national row of country:
// the row whose Country/Region matches and whose Province/State is empty.
// Metadata columns are dropped, date columns keep their order.
func ParseTimeSeries(data []byte, country string) (Series, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty time series")
	}

	header := rows[0]
	provinceCol, countryCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Province/State":
			provinceCol = i
		case "Country/Region":
			countryCol = i
		}
	}
	if countryCol < 0 || provinceCol < 0 {
		return nil, fmt.Errorf("time series header is missing Province/State or Country/Region")
	}

	var match []string
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			continue
		}
		if strings.TrimSpace(row[provinceCol]) != "" {
			continue
		}
		if textutil.NormalizeName(row[countryCol]) != textutil.NormalizeName(country) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("more than one national row for %s", country)
		}
		match = row
	}
	if match == nil {
		return nil, fmt.Errorf("no national row for %s", country)
	}

	series := make(Series, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if metadataColumns[name] {
			continue
		}
		cell := strings.TrimSpace(match[i])
		value, err := strconv.Atoi(cell)
		if err != nil {
			// some days of the recovered table were published as floats
			f, ferr := strconv.ParseFloat(cell, 64)
			if ferr != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			value = int(f)
		}
		series = append(series, Point{Date: name, Value: value})
	}
	return series, nil
}
