package mohfw

import (
	"bytes"
	"fmt"
	"incov-backend/lib/errs"
	"incov-backend/lib/htmlutil"
	"incov-backend/lib/textutil"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extract reads the state table out of markup according to sel. It is a
// pure function of its inputs: the same page and selector always yield
// the same records in the same order.
func Extract(markup []byte, sel Selector) ([]RegionRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, &errs.MalformedRowError{Row: -1, Err: fmt.Errorf("parse html: %w", err)}
	}
	return ExtractDocument(doc, sel)
}

func ExtractDocument(doc *goquery.Document, sel Selector) ([]RegionRecord, error) {
	err := sel.Columns.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid selector: %w", err)
	}
	if sel.Table == "" {
		sel.Table = "body"
	}
	if sel.Row == "" {
		sel.Row = "tr"
	}

	tables := doc.Find(sel.Table)
	if sel.Index < 0 || sel.Index >= tables.Length() {
		return nil, &errs.MalformedRowError{
			Row: -1,
			Err: fmt.Errorf("selector %q matched %d elements, wanted index %d", sel.Table, tables.Length(), sel.Index),
		}
	}

	rows := tables.Eq(sel.Index).Find(sel.Row)
	end := rows.Length() - sel.SkipTail
	if sel.SkipHead < 0 || sel.SkipTail < 0 || end < sel.SkipHead {
		return nil, &errs.MalformedRowError{
			Row: -1,
			Err: fmt.Errorf("table has %d rows, cannot skip %d head and %d tail rows", rows.Length(), sel.SkipHead, sel.SkipTail),
		}
	}

	width := sel.Columns.width()
	records := make([]RegionRecord, 0, end-sel.SkipHead)
	for i := sel.SkipHead; i < end; i++ {
		cells := htmlutil.CellTexts(rows.Eq(i).Find("td"))
		rowIdx := i - sel.SkipHead
		if excluded(cells, sel.Exclude) {
			continue
		}
		if len(cells) < width {
			return nil, &errs.MalformedRowError{Row: rowIdx, Got: len(cells), Want: width}
		}

		record, err := parseRow(cells, sel, rowIdx)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// excluded reports whether any cell of a row names one of the excluded
// rows (totals, footnotes).
func excluded(cells []string, exclude []string) bool {
	if len(exclude) == 0 {
		return false
	}
	for _, c := range cells {
		if textutil.MatchName(c, exclude) {
			return true
		}
	}
	return false
}

func parseRow(cells []string, sel Selector, rowIdx int) (RegionRecord, error) {
	cols := sel.Columns
	record := RegionRecord{Region: cells[cols.Region]}

	fields := []struct {
		name string
		idx  int
		dst  *int
	}{
		{name: "confirmed", idx: cols.ConfirmedDomestic, dst: &record.ConfirmedDomestic},
		{name: "confirmed_foreign", idx: cols.ConfirmedForeign, dst: &record.ConfirmedForeign},
		{name: "recovered", idx: cols.Recovered, dst: &record.Recovered},
		{name: "deaths", idx: cols.Deaths, dst: &record.Deaths},
	}
	for _, f := range fields {
		if f.idx < 0 {
			continue
		}
		n, err := ParseCount(cells[f.idx], sel.Annotations)
		if err != nil {
			return RegionRecord{}, &errs.MalformedRowError{Row: rowIdx, Field: f.name, Err: err}
		}
		*f.dst = n
	}

	return record, nil
}

// ParseCount parses a non-negative count after trimming whitespace and any
// trailing annotation characters.
func ParseCount(cell string, annotations string) (int, error) {
	text := strings.TrimSpace(cell)
	if annotations != "" {
		text = strings.TrimRight(text, annotations+" ")
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
