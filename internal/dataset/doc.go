// Package dataset turns linked detail records into conversational training
// entries and writes them to disk.
//
// The Assembler produces one user/assistant pair per selected record. The
// user turn references the hosted page image (or the original sheet link when
// no image exists); the assistant turn is the enrichment caption when one was
// produced, otherwise a sentence pointing at the matching specification.
// Write persists entries as JSON Lines or a JSON array through an atomic
// temp-file rename so an interrupted run never truncates the previous output.
package dataset
