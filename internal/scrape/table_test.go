package scrape

import (
	"net/url"
	"strings"
	"testing"
)

const catalogPage = `<html><body>
<table class="nav"><tr><td><a href="/home">Home</a></td></tr></table>
<table class="tblStandard wide">
  <tr><th>Number</th><th>Title</th><th>PDF</th></tr>
  <tr><td> 072100-1 </td><td>Slab&nbsp;Edge
      Insulation</td><td><a href="/til/sDetail/072100-1.pdf">PDF</a></td></tr>
  <tr><td>NOTE</td><td>Orphan</td><td></td></tr>
</table>
<table class="tblStandard">
  <tr><td>header</td></tr>
  <tr><td><a href="https://cdn.test/x.pdf">033000-2</a></td><td>Footing</td></tr>
</table>
</body></html>`

func TestParseTables(t *testing.T) {
	base, _ := url.Parse("https://www.example.test/")
	rows, err := ParseTables(strings.NewReader(catalogPage), base)
	if err != nil {
		t.Fatalf("ParseTables returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 data rows across both tables, got %d: %+v", len(rows), rows)
	}

	first := rows[0]
	if first.Cells[0].Text != "072100-1" {
		t.Fatalf("number cell = %q", first.Cells[0].Text)
	}
	if first.Cells[1].Text != "Slab Edge Insulation" {
		t.Fatalf("title cell = %q", first.Cells[1].Text)
	}
	if first.Cells[2].Href != "https://www.example.test/til/sDetail/072100-1.pdf" {
		t.Fatalf("link cell = %q", first.Cells[2].Href)
	}

	if cell, ok := rows[1].Cell(2); !ok || cell.Href != "" {
		t.Fatalf("expected empty link cell, got %+v ok=%v", cell, ok)
	}
	if _, ok := rows[2].Cell(2); ok {
		t.Fatal("expected two-cell row to report missing third cell")
	}
	if rows[2].Cells[0].Href != "https://cdn.test/x.pdf" || rows[2].Cells[0].Text != "033000-2" {
		t.Fatalf("unexpected absolute link cell %+v", rows[2].Cells[0])
	}
}

func TestParseTablesNoCatalogTable(t *testing.T) {
	rows, err := ParseTables(strings.NewReader(`<table><tr><td>x</td></tr></table>`), nil)
	if err != nil {
		t.Fatalf("ParseTables returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %+v", rows)
	}
}
