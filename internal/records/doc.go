// Package records defines the Detail and Specification value types produced by
// the catalog scrapers and the validation that turns raw decoded rows into
// them. Rows missing a required cell are rejected with a ValidationError and
// never reach the linker.
package records
