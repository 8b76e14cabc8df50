// Package catalog persists scraped detail and specification rows, cached
// image captions, and run history in a local SQLite database.
//
// Scrape replaces the detail and specification tables wholesale so a build
// always links a consistent snapshot. The caption cache lets an interrupted
// build resume without paying for captions it already received.
package catalog
