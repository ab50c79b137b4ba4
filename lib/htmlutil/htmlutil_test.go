package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "Andaman and Nicobar Islands", CleanText("\n\t Andaman and\n   Nicobar Islands ​"))
	require.Equal(t, "12#", CleanText(" 12# "))
	require.Equal(t, "", CleanText("\n\t"))
}

func TestCellTexts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table><tr><td>1</td><td> <b>Kerala</b> </td><td>25</td></tr></table>`))
	require.NoError(t, err)

	cells := CellTexts(doc.Find("td"))
	require.Equal(t, []string{"1", "Kerala", "25"}, cells)
}
