package report

import (
	"html"
	"incov-backend/lib/fsutil"
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/lib/textutil"
	"incov-backend/lib/timezone"
	"io"
	"os"
	"strings"

	_ "embed"
)

//go:embed template.html
var DefaultTemplate string

const RowTemplate = "<tr><td>$S</td><td>$E</td><td>$C</td><td>$D</td></tr>"

// TableRows renders one RowTemplate per record, in order.
func TableRows(records []mohfw.RegionRecord) string {
	var rows strings.Builder
	for _, r := range records {
		rows.WriteString(textutil.Substitute(RowTemplate, map[string]any{
			"S": html.EscapeString(r.Region),
			"E": r.Confirmed(),
			"C": r.Recovered,
			"D": r.Deaths,
		}))
	}
	return rows.String()
}

// Render fills the report template. Placeholders: $EFFECTED, $RECOVERED,
// $DEATHS, $STATES, $UPDATED and $TABLE. Unknown placeholders are left
// as they are.
func Render(tmpl string, records []mohfw.RegionRecord, summary Summary) string {
	return textutil.Substitute(tmpl, map[string]any{
		"EFFECTED":  summary.TotalConfirmed,
		"RECOVERED": summary.TotalRecovered,
		"DEATHS":    summary.TotalDeaths,
		"STATES":    summary.RegionCount,
		"UPDATED":   timezone.Stamp(summary.GeneratedAt),
		"TABLE":     TableRows(records),
	})
}

// LoadTemplate reads the template at path, or returns DefaultTemplate
// when path is empty.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return DefaultTemplate, nil
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(contents), nil
}

func WriteHTML(path, tmpl string, records []mohfw.RegionRecord, summary Summary) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, Render(tmpl, records, summary))
		return err
	})
}
