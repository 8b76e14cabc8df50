// Package pipeline runs the scrape, build and upload commands. Each run takes
// an exclusive workspace lock, opens the catalog, records its outcome in the
// run history and optionally exports a metrics textfile.
package pipeline
