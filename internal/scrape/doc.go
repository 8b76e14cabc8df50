// Package scrape reads the public detail and specification catalogs and turns
// their linked documents into raw catalog rows.
//
// ReadTable parses every catalog table on a page with golang.org/x/net/html,
// skipping each table's header row. ScrapeDetails downloads each detail PDF
// and rasterizes it with pdftoppm into {number}_{page}.png files under the
// data directory; ScrapeSpecifications downloads each specification DOCX and
// reduces it to paragraph text. Downloads run on a bounded errgroup pool and
// results keep table order. Rows without a number are skipped with a warning;
// documents that fail to download or convert still yield a record without the
// derived content so they can be linked and reported.
package scrape
