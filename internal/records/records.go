package records

import (
	"net/url"
	"strings"
)

// Detail is one drawing sheet row. A single logical detail rasterized into N
// pages produces N Detail values sharing Number; FileName is empty when the
// sheet was never rasterized.
type Detail struct {
	FileName string `json:"file_name,omitempty"`
	Number   string `json:"number"`
	Title    string `json:"title"`
	Link     string `json:"link"`
}

// Rasterized reports whether the detail has a saved page image.
func (d Detail) Rasterized() bool {
	return d.FileName != ""
}

// ImageURL resolves the hosted location of the page image under base. It
// returns "" for details that were never rasterized or when base is empty.
func (d Detail) ImageURL(base string) string {
	base = strings.TrimRight(base, "/")
	if !d.Rasterized() || base == "" {
		return ""
	}
	return base + "/" + url.PathEscape(d.FileName)
}

// Specification is one narrative specification document reduced to text.
// Number uses the catalog's grouped form, e.g. "07 21 00".
type Specification struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Link   string `json:"link"`
}

// Row is the raw, possibly incomplete shape produced by decoders before
// validation. A nil field means the cell was missing; an empty string is a
// present but blank cell.
type Row struct {
	FileName *string
	Number   *string
	Title    *string
	Body     *string
	Link     *string
}

// Str returns a pointer to s, for building rows in decoders and tests.
func Str(s string) *string {
	return &s
}
