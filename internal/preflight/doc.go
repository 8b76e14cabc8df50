// Package preflight provides readiness checks for the binaries, directories
// and remote APIs that aecvision depends on.
//
// These checks run in two contexts:
//   - The pipeline checks the rasterizer and directories before a scrape.
//   - The CLI "aecvision status" command renders every check plus a catalog
//     snapshot from InspectCatalog.
//
// Credential checks are gated by their feature toggles and only contact the
// remote API when Options.Network is set.
package preflight
