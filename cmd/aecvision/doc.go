// Command aecvision builds a vision-language dataset from published
// construction details and specifications.
//
// The scrape command refreshes the local catalog, build links and captions the
// cataloged records and writes the dataset file, and upload publishes that
// file to a dataset repository. status reports workspace health and the last
// run of each command.
package main
