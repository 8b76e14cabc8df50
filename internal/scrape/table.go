package scrape

import (
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"aecvision/internal/textutil"
)

// TableClass marks the catalog tables that hold document rows.
const TableClass = "tblStandard"

// Cell is one table cell reduced to its text and the first hyperlink it holds.
type Cell struct {
	Text string
	Href string
}

// TableRow is one data row of a catalog table.
type TableRow struct {
	Cells []Cell
}

// Cell returns the i-th cell and whether the row has one.
func (r TableRow) Cell(i int) (Cell, bool) {
	if i < 0 || i >= len(r.Cells) {
		return Cell{}, false
	}
	return r.Cells[i], true
}

// ParseTables collects the data rows of every catalog table in document order.
// The first row of each table is a header and is skipped. Links are resolved
// against base; cell text is NFKC-normalized and whitespace-collapsed.
func ParseTables(r io.Reader, base *url.URL) ([]TableRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var rows []TableRow
	for table := range findAll(doc, isCatalogTable) {
		for i, tr := range collectRows(table) {
			if i == 0 {
				continue
			}
			rows = append(rows, parseRow(tr, base))
		}
	}
	return rows, nil
}

func isCatalogTable(n *html.Node) bool {
	if n.Type != html.ElementNode || n.DataAtom != atom.Table {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(attr.Val) {
			if class == TableClass {
				return true
			}
		}
	}
	return false
}

// collectRows returns the rows owned by table, skipping rows of nested tables.
func collectRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Table:
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func parseRow(tr *html.Node, base *url.URL) TableRow {
	var row TableRow
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Td {
			continue
		}
		row.Cells = append(row.Cells, Cell{
			Text: textutil.CleanText(nodeText(c)),
			Href: firstHref(c, base),
		})
	}
	return row
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func firstHref(n *html.Node, base *url.URL) string {
	for a := range findAll(n, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.A
	}) {
		for _, attr := range a.Attr {
			if attr.Key != "href" {
				continue
			}
			href := strings.TrimSpace(attr.Val)
			if href == "" {
				continue
			}
			return resolve(base, href)
		}
	}
	return ""
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// findAll yields matching nodes in document order without descending into
// matched nodes.
func findAll(root *html.Node, match func(*html.Node) bool) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		var walk func(*html.Node) bool
		walk = func(n *html.Node) bool {
			if match(n) {
				return yield(n)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(root)
	}
}
