package report

import (
	"encoding/csv"
	"fmt"
	"incov-backend/lib/fsutil"
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/lib/timezone"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Layout int

const (
	// LayoutSplit keeps confirmed cases split into Indian and foreign
	// nationals, the first format of the published data files.
	LayoutSplit Layout = iota
	// LayoutMerged has a single confirmed column.
	LayoutMerged
)

var (
	SplitHeader  = []string{"state/ut", "confirmed (indian)", "confirmed (foreign)", "cured/discharged", "death"}
	MergedHeader = []string{"state/ut", "confirmed", "cured/discharged", "death"}
)

// LayoutFor picks the CSV layout matching the columns a selector extracts.
func LayoutFor(cols mohfw.Columns) Layout {
	if cols.Split() {
		return LayoutSplit
	}
	return LayoutMerged
}

func (l Layout) Header() []string {
	if l == LayoutMerged {
		return MergedHeader
	}
	return SplitHeader
}

// CSVPath is the daily data file for date inside dir.
func CSVPath(dir string, date time.Time) string {
	return filepath.Join(dir, timezone.FileDate(date)+".csv")
}

// WriteCSV writes records to the daily data file for date, replacing an
// earlier file from the same day. The file appears complete or not at all.
func WriteCSV(dir string, date time.Time, layout Layout, records []mohfw.RegionRecord) (string, error) {
	path := CSVPath(dir, date)
	err := fsutil.WriteAtomic(path, func(w io.Writer) error {
		return EncodeCSV(w, layout, records)
	})
	return path, err
}

// EncodeCSV writes the header row and one row per record, CRLF terminated
// like the files already in the data repository.
func EncodeCSV(w io.Writer, layout Layout, records []mohfw.RegionRecord) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	err := writer.Write(layout.Header())
	if err != nil {
		return err
	}
	for _, r := range records {
		var row []string
		switch layout {
		case LayoutMerged:
			row = []string{
				r.Region,
				strconv.Itoa(r.Confirmed()),
				strconv.Itoa(r.Recovered),
				strconv.Itoa(r.Deaths),
			}
		default:
			row = []string{
				r.Region,
				strconv.Itoa(r.ConfirmedDomestic),
				strconv.Itoa(r.ConfirmedForeign),
				strconv.Itoa(r.Recovered),
				strconv.Itoa(r.Deaths),
			}
		}
		err = writer.Write(row)
		if err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a data file written by WriteCSV. The layout is detected
// from the header.
func ReadCSV(path string) ([]mohfw.RegionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCSV(f)
}

func DecodeCSV(r io.Reader) ([]mohfw.RegionRecord, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	var layout Layout
	switch len(rows[0]) {
	case len(SplitHeader):
		layout = LayoutSplit
	case len(MergedHeader):
		layout = LayoutMerged
	default:
		return nil, fmt.Errorf("unknown header %v", rows[0])
	}

	records := make([]mohfw.RegionRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		nums := make([]int, len(row)-1)
		for j, cell := range row[1:] {
			nums[j], err = strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
		}

		record := mohfw.RegionRecord{Region: row[0]}
		if layout == LayoutMerged {
			record.ConfirmedDomestic = nums[0]
			record.Recovered = nums[1]
			record.Deaths = nums[2]
		} else {
			record.ConfirmedDomestic = nums[0]
			record.ConfirmedForeign = nums[1]
			record.Recovered = nums[2]
			record.Deaths = nums[3]
		}
		records = append(records, record)
	}
	return records, nil
}
