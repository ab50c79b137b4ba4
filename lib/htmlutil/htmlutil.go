package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		} else if unicode.IsSpace(c) {
			newStr.WriteRune(' ')
		}
	}
	return newStr.String()
}

// CleanText collapses the text of a table cell the way it reads on screen:
// non-printable runes dropped, inner whitespace collapsed, ends trimmed.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	return innerWhitespace.ReplaceAllString(s, " ")
}

// CellTexts returns the cleaned text of every node in sel, in order.
func CellTexts(sel *goquery.Selection) []string {
	cells := make([]string, len(sel.Nodes))
	for i, n := range sel.Nodes {
		cells[i] = CleanText(GetText(n))
	}
	return cells
}
