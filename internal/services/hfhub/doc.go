// Package hfhub publishes dataset files to a Hugging Face Hub dataset
// repository through the commit API.
//
// UploadFile streams a single-file NDJSON commit (header line plus a
// base64 file operation); CreateRepo optionally creates the repository first.
package hfhub
