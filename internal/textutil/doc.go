// Package textutil normalizes scraped text and derives filesystem-safe names.
//
// CleanText folds compatibility characters with NFKC and collapses whitespace
// runs so table cells and extracted document text compare and print
// consistently. FileStem turns catalog identifiers
// into names that are safe to use as page image file names.
package textutil
