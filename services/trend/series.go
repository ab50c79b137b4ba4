package trend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"incov-backend/lib/timezone"
	"sort"
	"time"
)

type SeriesName string

const (
	Confirmed SeriesName = "CONFIRMED"
	Deaths    SeriesName = "DEATHS"
	Recovered SeriesName = "RECOVERED"
)

// DateKeyLayout is the M/D/YY form, without leading zeros, that both the
// upstream time series and the recovered seed table use as keys.
const DateKeyLayout = "1/2/06"

// DateKey formats t as a series key in the report timezone. A key that is
// formatted any other way (zero padded, four digit year) will not collide
// with the seed key for the same day and the series gains a duplicate day.
func DateKey(t time.Time) string {
	return t.In(timezone.Location).Format(DateKeyLayout)
}

func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateKeyLayout, key, timezone.Location)
}

type Point struct {
	Date  string
	Value int
}

// Series is a date keyed cumulative count in chronological order. It
// serializes as a JSON object whose keys keep that order.
type Series []Point

func (s Series) Get(date string) (int, bool) {
	for _, p := range s {
		if p.Date == date {
			return p.Value, true
		}
	}
	return 0, false
}

// Set overwrites the value of date if present, otherwise appends it.
func (s Series) Set(date string, value int) Series {
	for i, p := range s {
		if p.Date == date {
			s[i].Value = value
			return s
		}
	}
	return append(s, Point{Date: date, Value: value})
}

// SeriesFromMap orders a key/value table chronologically.
func SeriesFromMap(values map[string]int) (Series, error) {
	type dated struct {
		Point
		day time.Time
	}
	points := make([]dated, 0, len(values))
	for key, value := range values {
		day, err := ParseDateKey(key)
		if err != nil {
			return nil, fmt.Errorf("date key %q: %w", key, err)
		}
		points = append(points, dated{Point: Point{Date: key, Value: value}, day: day})
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].day.Equal(points[j].day) {
			return points[i].Date < points[j].Date
		}
		return points[i].day.Before(points[j].day)
	})

	series := make(Series, len(points))
	for i, p := range points {
		series[i] = p.Point
	}
	return series, nil
}

func (s Series) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Date)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", p.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Series) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	tok, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("series must be a json object")
	}

	var out Series
	for decoder.More() {
		tok, err = decoder.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var value int
		err = decoder.Decode(&value)
		if err != nil {
			return fmt.Errorf("value of %s: %w", key, err)
		}
		out = append(out, Point{Date: key, Value: value})
	}
	_, err = decoder.Token()
	if err != nil {
		return err
	}

	*s = out
	return nil
}

// Snapshot is the content of trend.json.
type Snapshot map[SeriesName]Series
