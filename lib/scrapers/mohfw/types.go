package mohfw

import (
	"fmt"

	"github.com/titanous/json5"
)

// RegionRecord is one state/UT row of the source table.
type RegionRecord struct {
	Region            string
	ConfirmedDomestic int
	ConfirmedForeign  int
	Recovered         int
	Deaths            int
}

// Confirmed is the total confirmed count regardless of nationality.
func (r RegionRecord) Confirmed() int {
	return r.ConfirmedDomestic + r.ConfirmedForeign
}

// Columns maps record fields to cell indexes within a row. A negative
// ConfirmedForeign means the source no longer splits confirmed cases by
// nationality.
type Columns struct {
	Region            int `json:"region"`
	ConfirmedDomestic int `json:"confirmed"`
	ConfirmedForeign  int `json:"confirmed_foreign"`
	Recovered         int `json:"recovered"`
	Deaths            int `json:"deaths"`
}

// UnmarshalJSON decodes columns from configuration. An omitted
// confirmed_foreign means the merged layout rather than column 0.
func (c *Columns) UnmarshalJSON(data []byte) error {
	type columns Columns
	decoded := columns{ConfirmedForeign: -1}
	err := json5.Unmarshal(data, &decoded)
	if err != nil {
		return err
	}
	*c = Columns(decoded)
	return nil
}

// Validate rejects negative indexes for the required fields and any two
// fields sharing a cell.
func (c Columns) Validate() error {
	fields := []struct {
		name string
		idx  int
	}{
		{"region", c.Region},
		{"confirmed", c.ConfirmedDomestic},
		{"confirmed_foreign", c.ConfirmedForeign},
		{"recovered", c.Recovered},
		{"deaths", c.Deaths},
	}

	used := map[int]string{}
	for _, f := range fields {
		if f.idx < 0 {
			if f.name == "confirmed_foreign" {
				continue
			}
			return fmt.Errorf("column %s has negative index %d", f.name, f.idx)
		}
		if other, ok := used[f.idx]; ok {
			return fmt.Errorf("columns %s and %s both read cell %d", other, f.name, f.idx)
		}
		used[f.idx] = f.name
	}
	return nil
}

// Split reports whether confirmed cases are split by nationality.
func (c Columns) Split() bool {
	return c.ConfirmedForeign >= 0
}

func (c Columns) width() int {
	max := c.Region
	for _, idx := range []int{c.ConfirmedDomestic, c.ConfirmedForeign, c.Recovered, c.Deaths} {
		if idx > max {
			max = idx
		}
	}
	return max + 1
}

// Selector locates the state table within the page. The source moves its
// table around between redesigns, so all of this lives in configuration.
type Selector struct {
	// CSS selector of the element that contains the rows.
	Table string `json:"table"`
	// which match of Table to use when several match.
	Index int `json:"index"`
	// CSS selector of a row within Table, defaults to "tr".
	Row string `json:"row"`
	// rows dropped from the start (headers) and end (totals, footnotes).
	SkipHead int     `json:"skip_head"`
	SkipTail int     `json:"skip_tail"`
	Columns  Columns `json:"columns"`
	// characters trimmed from the end of numeric cells, e.g. "#" footnote
	// markers.
	Annotations string `json:"annotations"`
	// rows with a cell containing one of these (case and whitespace
	// insensitive) are dropped, for totals rows whose position moves.
	Exclude []string `json:"exclude"`
}

// DefaultSelector matches the first layout of the page: every row of the
// document, a header row and a totals row, serial number in column 0 and
// confirmed split into Indian and foreign nationals.
func DefaultSelector() Selector {
	return Selector{
		Table:    "body",
		Row:      "tr",
		SkipHead: 1,
		SkipTail: 1,
		Columns: Columns{
			Region:            1,
			ConfirmedDomestic: 2,
			ConfirmedForeign:  3,
			Recovered:         4,
			Deaths:            5,
		},
		Annotations: "#*",
	}
}
